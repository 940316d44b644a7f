// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// NATSConfig configures one NATSBackendTransport instance.
// V2CPrefix/C2VPrefix/VehicleID/ContentID implement an MQTT-shaped topic
// mapping translated onto NATS subjects.
type NATSConfig struct {
	Address       string `json:"address"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	CredsFilePath string `json:"creds_file_path,omitempty"`

	VehicleID string `json:"vehicle_id"`
	V2CPrefix string `json:"v2c_prefix"`
	C2VPrefix string `json:"c2v_prefix"`
	ContentID uint32 `json:"content_id"`
}

// NATSBackendTransport implements BackendTransport over a NATS connection:
// core pub/sub for BestEffort persistence, JetStream for Volatile and
// Durable (core pub/sub for those too when JetStream is unavailable).
// The publish subject is derived from V2CPrefix/VehicleID/ContentID, and
// the subscribe subject swaps in C2VPrefix, matching a peer instance
// configured with the two prefixes reversed.
type NATSBackendTransport struct {
	cfg NATSConfig

	connMu sync.Mutex
	nc     *nats.Conn
	js     nats.JetStreamContext
	sub    *nats.Subscription

	mu    sync.Mutex
	state ConnectionState

	contentCB ContentCallback
	statusCB  ConnectionStatusCallback
	queueCB   QueueStatusCallback

	lastQueue   atomic.Uint32 // QueueLevel
	fullLatched atomic.Bool   // true once a publish observes QueueFull; cleared on QueueLow

	// statsMu guards stats independently of mu so the hot publish path never
	// contends with connection-state/callback registration.
	statsMu sync.Mutex
	stats   Stats
}

// NewNATSBackendTransport constructs a transport bound to cfg.ContentID.
func NewNATSBackendTransport(cfg NATSConfig) *NATSBackendTransport {
	return &NATSBackendTransport{cfg: cfg, state: Disconnected}
}

func (t *NATSBackendTransport) publishSubject() string {
	return fmt.Sprintf("%s.%s.%d", t.cfg.V2CPrefix, t.cfg.VehicleID, t.cfg.ContentID)
}

func (t *NATSBackendTransport) subscribeSubject() string {
	return fmt.Sprintf("%s.%s.%d", t.cfg.C2VPrefix, t.cfg.VehicleID, t.cfg.ContentID)
}

// Start transitions Disconnected -> Connecting, then connects synchronously:
// it blocks in nats.Connect and moves Connecting -> Connected on success, or
// Connecting -> Disconnected on failure, returning the error. Only later
// disconnects and reconnects are reported from NATS library goroutines.
func (t *NATSBackendTransport) Start(ctx context.Context) error {
	t.setState(Connecting, "start requested")

	var opts []nats.Option
	if t.cfg.Username != "" && t.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(t.cfg.Username, t.cfg.Password))
	}
	if t.cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(t.cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			t.setState(Reconnecting, fmt.Sprintf("disconnected: %v", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			t.setState(Connected, fmt.Sprintf("reconnected to %s", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.WarnOnce("nats-backend-error", "NATS backend transport error:", err)
		}),
	)

	nc, err := nats.Connect(t.cfg.Address, opts...)
	if err != nil {
		t.setState(Disconnected, fmt.Sprintf("connect failed: %v", err))
		return err
	}

	js, err := nc.JetStream()
	if err != nil {
		log.WarnOnce("nats-backend-jetstream", "JetStream unavailable, Volatile/Durable publishes degrade to core NATS:", err)
		js = nil
	}

	sub, err := nc.Subscribe(t.subscribeSubject(), func(msg *nats.Msg) {
		t.recordReceive(len(msg.Data))
		if cb := t.getContentCB(); cb != nil {
			cb(t.cfg.ContentID, msg.Data)
		}
	})
	if err != nil {
		nc.Close()
		t.setState(Disconnected, fmt.Sprintf("subscribe failed: %v", err))
		return err
	}

	t.connMu.Lock()
	t.nc, t.js, t.sub = nc, js, sub
	t.connMu.Unlock()

	t.setState(Connected, "connected")
	go t.watchContext(ctx)
	return nil
}

// conn returns the current NATS connection and JetStream context under
// connMu, so Publish never races Start/Stop's assignment of t.nc/t.js.
func (t *NATSBackendTransport) conn() (*nats.Conn, nats.JetStreamContext) {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.nc, t.js
}

func (t *NATSBackendTransport) watchContext(ctx context.Context) {
	<-ctx.Done()
	_ = t.Stop()
}

// Stop unsubscribes (messages still pending delivery are discarded, not
// drained), closes the underlying connection, and returns to Disconnected.
func (t *NATSBackendTransport) Stop() error {
	t.connMu.Lock()
	sub, nc := t.sub, t.nc
	t.sub, t.nc, t.js = nil, nil, nil
	t.connMu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if nc != nil {
		nc.Close()
	}
	t.setState(Disconnected, "stop requested")
	return nil
}

// Publish sends payload toward the bound content id. BestEffort uses core
// NATS publish (fire-and-forget, QoS-0-equivalent); Volatile and Durable use
// JetStream when available, the latter onto a stream expected to retain the
// last value per subject (the closest JetStream equivalent to an MQTT
// retained message).
func (t *NATSBackendTransport) Publish(data []byte, persistence Persistence) (bool, QueueLevel) {
	if t.ConnectionState() != Connected {
		t.recordFailure()
		return false, t.currentQueueLevel()
	}

	if t.fullLatched.Load() {
		level := t.deriveQueueLevel()
		if level == QueueLow {
			t.fullLatched.Store(false)
		} else {
			t.recordFailure()
			return false, level
		}
	}

	nc, js := t.conn()
	if nc == nil {
		t.recordFailure()
		return false, t.currentQueueLevel()
	}

	var err error
	switch persistence {
	case Volatile, Durable:
		if js != nil {
			_, err = js.Publish(t.publishSubject(), data)
		} else {
			err = nc.Publish(t.publishSubject(), data)
		}
	default:
		err = nc.Publish(t.publishSubject(), data)
	}

	if err != nil {
		t.recordFailure()
		return false, t.currentQueueLevel()
	}

	t.recordSend(len(data))

	level := t.deriveQueueLevel()
	if level != QueueLevel(t.lastQueue.Load()) {
		t.lastQueue.Store(uint32(level))
		if cb := t.getQueueCB(); cb != nil {
			cb(level)
		}
	}
	if level == QueueFull {
		t.fullLatched.Store(true)
	}
	return true, level
}

// deriveQueueLevel derives a QueueLevel hint from the bytes still held in the
// connection's outgoing buffer (nats.Conn.Buffered()), the closest analogue
// NATS offers to a transport-internal queue depth: above 1 MiB is QueueFull,
// above 64 KiB is QueueHigh, anything less is QueueLow.
func (t *NATSBackendTransport) deriveQueueLevel() QueueLevel {
	nc, _ := t.conn()
	if nc == nil {
		return QueueFull
	}
	pending, _ := nc.Buffered()
	switch {
	case pending > 1<<20:
		return QueueFull
	case pending > 1<<16:
		return QueueHigh
	default:
		return QueueLow
	}
}

func (t *NATSBackendTransport) currentQueueLevel() QueueLevel {
	return QueueLevel(t.lastQueue.Load())
}

func (t *NATSBackendTransport) OnContent(cb ContentCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contentCB = cb
}

func (t *NATSBackendTransport) OnConnectionStatus(cb ConnectionStatusCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusCB = cb
}

func (t *NATSBackendTransport) OnQueueStatus(cb QueueStatusCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queueCB = cb
}

func (t *NATSBackendTransport) getContentCB() ContentCallback {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.contentCB
}

func (t *NATSBackendTransport) getQueueCB() QueueStatusCallback {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queueCB
}

func (t *NATSBackendTransport) ContentID() uint32 { return t.cfg.ContentID }

func (t *NATSBackendTransport) ConnectionState() ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *NATSBackendTransport) QueueFull() bool {
	return t.currentQueueLevel() == QueueFull
}

func (t *NATSBackendTransport) Healthy() bool {
	return t.ConnectionState() == Connected
}

func (t *NATSBackendTransport) Stats() Stats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

func (t *NATSBackendTransport) recordSend(n int) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats.MessagesSent++
	t.stats.BytesSent += uint64(n)
	t.stats.LastSendNS = time.Now().UnixNano()
}

func (t *NATSBackendTransport) recordReceive(n int) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats.MessagesReceived++
	t.stats.BytesReceived += uint64(n)
	t.stats.LastReceiveNS = time.Now().UnixNano()
}

func (t *NATSBackendTransport) recordFailure() {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats.MessagesFailed++
}

// setState transitions the connection state and invokes the registered
// status callback from the calling goroutine (always a NATS library
// callback goroutine or Start's own goroutine), never under a caller-held
// publish-path mutex.
func (t *NATSBackendTransport) setState(s ConnectionState, reason string) {
	t.mu.Lock()
	t.state = s
	cb := t.statusCB
	t.mu.Unlock()

	if cb != nil {
		cb(s, reason)
	}
}
