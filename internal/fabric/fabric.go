// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fabric wraps a NATS connection as the in-vehicle pub/sub fabric
// the actuator bridges and the CAN encoder subscribe to, narrowed to the
// fixed topic set this domain uses.
package fabric

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// Fixed fabric topics.
const (
	TopicSignals        = "rt.vss.signals"
	TopicActuatorTarget = "rt.vss.actuators.target"
	TopicActuatorActual = "rt.vss.actuators.actual"
)

// pollChanCapacity bounds how many unread messages NATS will buffer for a
// Poller before dropping, generous enough that a 10ms poll cadence never
// backs up under normal actuator/signal traffic.
const pollChanCapacity = 1024

// Fabric is a thin pub/sub handle shared by both actuator bridges. All
// subscription lifetime is owned by the Pollers it hands out; Fabric itself
// only dials and publishes.
type Fabric struct {
	nc *nats.Conn
}

// Poller is a bounded take-each reader over one or more fabric subjects:
// up to 100 samples taken per poll, 10ms sleep between polls when the
// channel runs dry, rather than busy-spinning or dispatching straight from
// the NATS library goroutine.
type Poller struct {
	ch   chan *nats.Msg
	subs []*nats.Subscription
}

// NewPoller subscribes to every subject in subjects and returns a Poller
// that multiplexes them onto one channel.
func (f *Fabric) NewPoller(subjects ...string) (*Poller, error) {
	ch := make(chan *nats.Msg, pollChanCapacity)
	p := &Poller{ch: ch}

	for _, subject := range subjects {
		sub, err := f.nc.ChanSubscribe(subject, ch)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("fabric: chan-subscribe to %q failed: %w", subject, err)
		}
		p.subs = append(p.subs, sub)
	}
	return p, nil
}

// TakeEach drains up to max pending messages without blocking. An empty
// result means the caller should sleep (10ms, per spec) before polling
// again.
func (p *Poller) TakeEach(max int) []*nats.Msg {
	out := make([]*nats.Msg, 0, max)
	for len(out) < max {
		select {
		case msg := <-p.ch:
			out = append(out, msg)
		default:
			return out
		}
	}
	return out
}

// Close unsubscribes every subject this poller registered.
func (p *Poller) Close() {
	for _, sub := range p.subs {
		_ = sub.Unsubscribe()
	}
	p.subs = nil
}

// Connect dials address and returns a ready Fabric handle.
func Connect(address string) (*Fabric, error) {
	nc, err := nats.Connect(address, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		log.WarnOnce("fabric-error", "fabric connection error:", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("fabric: connect to %q failed: %w", address, err)
	}
	return &Fabric{nc: nc}, nil
}

// Publish sends data on subject.
func (f *Fabric) Publish(subject string, data []byte) error {
	if err := f.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("fabric: publish to %q failed: %w", subject, err)
	}
	return nil
}

// Close closes the underlying connection. Callers must Close every Poller
// they obtained from this Fabric first.
func (f *Fabric) Close() {
	if f.nc != nil {
		f.nc.Close()
	}
}
