// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// RTSample is one actuator write or reported actual crossing the RT
// transport boundary.
type RTSample struct {
	Path string
	Val  value.ActuatorValue
}

// RTCallback receives actuator actuals reported back by the RT side.
type RTCallback func(RTSample)

// RTTransport is the pluggable real-time transport Bridge B forwards
// actuator targets through and receives actuals from.
type RTTransport interface {
	Send(s RTSample) error
	OnReceive(cb RTCallback)
	Close() error
}

// LoggingRTTransport only logs every send; it never reports actuals. Useful
// for bench/dry-run deployments with no real RT endpoint attached.
type LoggingRTTransport struct{}

func NewLoggingRTTransport() *LoggingRTTransport { return &LoggingRTTransport{} }

func (t *LoggingRTTransport) Send(s RTSample) error {
	log.Infof("RT transport (logging): actuator target %s = %+v", s.Path, s.Val)
	return nil
}
func (t *LoggingRTTransport) OnReceive(RTCallback) {}
func (t *LoggingRTTransport) Close() error         { return nil }

// LoopbackRTTransport echoes every send back as an actual after a
// configurable delay, useful for integration tests and simulation.
type LoopbackRTTransport struct {
	delay time.Duration
	cb    RTCallback
	stop  chan struct{}
}

func NewLoopbackRTTransport(delay time.Duration) *LoopbackRTTransport {
	return &LoopbackRTTransport{delay: delay, stop: make(chan struct{})}
}

func (t *LoopbackRTTransport) Send(s RTSample) error {
	go func() {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if t.cb != nil {
				t.cb(s)
			}
		case <-t.stop:
		}
	}()
	return nil
}

func (t *LoopbackRTTransport) OnReceive(cb RTCallback) { t.cb = cb }
func (t *LoopbackRTTransport) Close() error            { close(t.stop); return nil }

// UDPRTTransport sends actuator targets as "PATH|KIND:VALUE|TIMESTAMP_NS"
// text lines (see encodeRTLine) to a unicast or multicast peer and listens for actual reports on a
// local socket.
type UDPRTTransport struct {
	conn    *net.UDPConn
	peer    *net.UDPAddr
	cb      RTCallback
	closeCh chan struct{}
}

// NewUDPRTTransport binds localAddr and targets peerAddr. When peerAddr names
// a multicast group, multicastIface selects the outgoing and group-membership
// interface by name (the default interface is used if empty).
func NewUDPRTTransport(localAddr, peerAddr, multicastIface string) (*UDPRTTransport, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return nil, err
	}

	var conn *net.UDPConn
	if peer.IP.IsMulticast() {
		var iface *net.Interface
		if multicastIface != "" {
			iface, err = net.InterfaceByName(multicastIface)
			if err != nil {
				return nil, fmt.Errorf("udp rt transport: multicast interface %q: %w", multicastIface, err)
			}
		}
		conn, err = net.ListenMulticastUDP("udp", iface, &net.UDPAddr{IP: peer.IP, Port: local.Port})
		if err != nil {
			return nil, err
		}
		if iface != nil {
			if err := ipv4.NewPacketConn(conn).SetMulticastInterface(iface); err != nil {
				conn.Close()
				return nil, fmt.Errorf("udp rt transport: setting outgoing multicast interface: %w", err)
			}
		}
	} else {
		conn, err = net.ListenUDP("udp", local)
		if err != nil {
			return nil, err
		}
	}

	t := &UDPRTTransport{conn: conn, peer: peer, closeCh: make(chan struct{})}
	go t.readLoop()
	return t, nil
}

func (t *UDPRTTransport) Send(s RTSample) error {
	line := encodeRTLine(s.Path, s.Val)
	_, err := t.conn.WriteToUDP([]byte(line), t.peer)
	return err
}

func (t *UDPRTTransport) OnReceive(cb RTCallback) { t.cb = cb }

func (t *UDPRTTransport) readLoop() {
	buf := make([]byte, 65536)
	for {
		select {
		case <-t.closeCh:
			return
		default:
		}
		t.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		path, av, ok := decodeRTLine(string(buf[:n]))
		if !ok {
			log.WarnOnce("udp-rt-malformed-line", "UDP RT transport: malformed line on receive")
			continue
		}
		if t.cb != nil {
			t.cb(RTSample{Path: path, Val: av})
		}
	}
}

func (t *UDPRTTransport) Close() error {
	close(t.closeCh)
	return t.conn.Close()
}

// encodeRTLine renders s as "PATH|KIND:VALUE|TIMESTAMP_NS". The value carries
// a one-letter kind prefix so decodeRTLine can rebuild the exact
// ActuatorValue variant; floats use strconv's shortest round-tripping
// representation, so no precision is lost in the text encoding.
func encodeRTLine(path string, av value.ActuatorValue) string {
	var val string
	switch av.Kind {
	case value.ActuatorBool:
		val = "b:" + strconv.FormatBool(av.BoolVal)
	case value.ActuatorInt64:
		val = "i:" + strconv.FormatInt(av.Int64Val, 10)
	case value.ActuatorUint64:
		val = "u:" + strconv.FormatUint(av.Uint64Val, 10)
	case value.ActuatorFloat64:
		val = "f:" + strconv.FormatFloat(av.FloatVal, 'g', -1, 64)
	case value.ActuatorString:
		val = "s:" + av.StringVal
	default:
		val = "e:"
	}
	return fmt.Sprintf("%s|%s|%d", path, val, time.Now().UnixNano())
}

// decodeRTLine parses a line produced by encodeRTLine. The timestamp field is
// validated but not returned: Bridge B's RTSample carries no timestamp of its
// own, matching the rest of the RT transport interface.
func decodeRTLine(line string) (string, value.ActuatorValue, bool) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return "", value.ActuatorValue{}, false
	}
	path, val := parts[0], parts[1]
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", value.ActuatorValue{}, false
	}
	kind, payload, ok := strings.Cut(val, ":")
	if !ok {
		return "", value.ActuatorValue{}, false
	}
	switch kind {
	case "b":
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return "", value.ActuatorValue{}, false
		}
		return path, value.ActuatorFromBool(b), true
	case "i":
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return "", value.ActuatorValue{}, false
		}
		return path, value.ActuatorFromInt64(n), true
	case "u":
		n, err := strconv.ParseUint(payload, 10, 64)
		if err != nil {
			return "", value.ActuatorValue{}, false
		}
		return path, value.ActuatorFromUint64(n), true
	case "f":
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return "", value.ActuatorValue{}, false
		}
		return path, value.ActuatorFromFloat64(f), true
	case "s":
		return path, value.ActuatorFromString(payload), true
	case "e":
		return path, value.ActuatorValue{}, true
	default:
		return "", value.ActuatorValue{}, false
	}
}
