// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package can

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/internal/fabric"
	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

// pollBatchMax and pollIdleSleep mirror the actuator bridges' bounded
// take-each polling loop, applied here to the dedicated CAN-encoding
// subscriber.
const (
	pollBatchMax  = 100
	pollIdleSleep = 10 * time.Millisecond
)

// Writer is the subset of SocketWriter the Subscriber depends on, so tests
// can substitute a recording double instead of a real SocketCAN interface.
type Writer interface {
	WriteFrame(f Frame) error
}

// Subscriber reads actuator targets off the fabric and encodes every one
// mapped in the static signal table into its CAN frame, emitting completed
// frames through a Writer as soon as each contributing signal updates them.
type Subscriber struct {
	enc    *Encoder
	writer Writer

	poller *fabric.Poller
	stop   chan struct{}
	done   chan struct{}
}

// NewSubscriber builds a subscriber over table, writing completed frames to
// writer.
func NewSubscriber(table *Table, writer Writer) *Subscriber {
	return &Subscriber{
		enc:    NewEncoder(table),
		writer: writer,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the fabric's actuator-target topic and launches the
// poll loop.
func (s *Subscriber) Start(fab *fabric.Fabric) error {
	poller, err := fab.NewPoller(fabric.TopicActuatorTarget)
	if err != nil {
		return err
	}
	s.poller = poller
	go s.pollLoop()
	return nil
}

// Stop ends the poll loop and releases its subscription.
func (s *Subscriber) Stop() {
	close(s.stop)
	<-s.done
	s.poller.Close()
}

func (s *Subscriber) pollLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		msgs := s.poller.TakeEach(pollBatchMax)
		if len(msgs) == 0 {
			time.Sleep(pollIdleSleep)
			continue
		}
		for _, msg := range msgs {
			s.handle(msg)
		}
	}
}

func (s *Subscriber) handle(msg *nats.Msg) {
	path, v, ok := wire.DecodeFabricValue(msg.Data)
	if !ok {
		return
	}
	av, ok := value.ActuatorFromValue(v)
	if !ok {
		log.WarnOncef("can-unsupported-"+path, "can: unsupported actuator variant for %s", path)
		return
	}
	if !s.enc.Encode(path, av) {
		return
	}
	m, ok := s.enc.table.Lookup(path)
	if !ok {
		return
	}
	frame, ok := s.enc.Frames().Snapshot(m.ArbitrationID)
	if !ok {
		return
	}
	if err := s.writer.WriteFrame(frame); err != nil {
		log.WarnOncef("can-write-"+path, "can: failed to write frame for %s: %v", path, err)
	}
}
