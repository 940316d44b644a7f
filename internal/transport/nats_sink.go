// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// NATSSink implements Sink for the legacy per-kind pipeline: one NATS
// subject per record kind, fire-and-forget publish.
type NATSSink struct {
	address string
	nc      *nats.Conn

	mu      sync.Mutex
	running bool

	statsMu sync.Mutex
	stats   Stats

	connected atomic.Bool
}

// NewNATSSink constructs a Sink connecting to address on Start.
func NewNATSSink(address string) *NATSSink {
	return &NATSSink{address: address}
}

func (s *NATSSink) Name() string { return "nats-sink" }

func (s *NATSSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	nc, err := nats.Connect(s.address,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.connected.Store(false)
			if err != nil {
				log.WarnOnce("nats-sink-disconnect", "NATS sink disconnected:", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.connected.Store(true)
		}),
	)
	if err != nil {
		return err
	}
	s.nc = nc
	s.connected.Store(true)
	s.running = true

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()
	return nil
}

func (s *NATSSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.connected.Store(false)
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	return nil
}

func (s *NATSSink) Publish(topic string, data []byte) bool {
	s.mu.Lock()
	nc := s.nc
	running := s.running
	s.mu.Unlock()

	if !running || nc == nil {
		s.recordFailure()
		return false
	}
	if err := nc.Publish(topic, data); err != nil {
		s.recordFailure()
		return false
	}

	s.statsMu.Lock()
	s.stats.MessagesSent++
	s.stats.BytesSent += uint64(len(data))
	s.stats.LastSendNS = time.Now().UnixNano()
	s.statsMu.Unlock()
	return true
}

func (s *NATSSink) Healthy() bool {
	return s.connected.Load()
}

func (s *NATSSink) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *NATSSink) recordFailure() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.MessagesFailed++
}
