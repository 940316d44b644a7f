// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/internal/fabric"
	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// pollBatchMax and pollIdleSleep implement the bounded take-each polling
// loop: up to 100 samples per poll, 10ms sleep between polls when nothing
// is pending, to avoid busy-spinning while keeping tail latency low.
const (
	pollBatchMax   = 100
	pollIdleSleep  = 10 * time.Millisecond
)

// BridgeA couples the application-plane broker to the fabric: non-actuator
// fabric signal samples and actuator actuals flow to the broker; broker
// actuator-target writes flow to the fabric.
type BridgeA struct {
	broker Broker
	fab    *fabric.Fabric
	prefix string

	mu      sync.Mutex
	handles map[string]SignalHandle // path -> handle, built once at Start then read-mostly

	poller *fabric.Poller
	stop   chan struct{}
	done   chan struct{}
}

// NewBridgeA constructs a bridge discovering broker paths under prefix.
func NewBridgeA(broker Broker, fab *fabric.Fabric, prefix string) *BridgeA {
	return &BridgeA{broker: broker, fab: fab, prefix: prefix, handles: map[string]SignalHandle{}, stop: make(chan struct{}), done: make(chan struct{})}
}

// Start discovers signals, registers actuator handlers, and launches the
// fabric poll loop reading the signals and actuator-actual topics.
func (b *BridgeA) Start() error {
	handles, err := b.broker.DiscoverSignals(b.prefix)
	if err != nil {
		return err
	}

	b.mu.Lock()
	for _, h := range handles {
		b.handles[h.Path] = h
	}
	b.mu.Unlock()

	for _, h := range handles {
		if h.Class != ClassActuator {
			continue
		}
		path := h.Path
		if err := b.broker.RegisterActuatorHandler(path, func(av value.ActuatorValue) {
			b.onActuatorTarget(path, av)
		}); err != nil {
			log.Warnf("bridge A: failed to register actuator handler for %s: %v", path, err)
		}
	}

	poller, err := b.fab.NewPoller(fabric.TopicSignals, fabric.TopicActuatorActual)
	if err != nil {
		return err
	}
	b.poller = poller
	go b.pollLoop()
	return nil
}

// Stop ends the poll loop and releases its subscriptions.
func (b *BridgeA) Stop() {
	close(b.stop)
	<-b.done
	b.poller.Close()
}

func (b *BridgeA) pollLoop() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		msgs := b.poller.TakeEach(pollBatchMax)
		if len(msgs) == 0 {
			time.Sleep(pollIdleSleep)
			continue
		}
		for _, msg := range msgs {
			b.handleFabricMessage(msg)
		}
	}
}

func (b *BridgeA) handleFabricMessage(msg *nats.Msg) {
	switch msg.Subject {
	case fabric.TopicSignals:
		b.onFabricSignal(msg.Subject, msg.Data)
	case fabric.TopicActuatorActual:
		b.onFabricActuatorActual(msg.Subject, msg.Data)
	}
}

// onActuatorTarget converts an application-written actuator target and
// forwards it to the fabric's actuator/target topic.
func (b *BridgeA) onActuatorTarget(path string, av value.ActuatorValue) {
	msg := wireEncodeActuator(path, av)
	if err := b.fab.Publish(fabric.TopicActuatorTarget, msg); err != nil {
		log.WarnOncef("bridge-a-publish-target-"+path, "bridge A: failed to publish actuator target for %s: %v", path, err)
	}
}

// onFabricSignal handles a sample arriving on the fabric's signals topic.
// Samples on an actuator-classed path are skipped here; actuator actuals
// arrive on their own topic instead.
func (b *BridgeA) onFabricSignal(_ string, data []byte) {
	path, v, ok := wireDecode(data)
	if !ok {
		return
	}
	if b.isActuatorPath(path) {
		return
	}
	if err := b.broker.Publish(path, v); err != nil {
		log.WarnOncef("bridge-a-publish-signal-"+path, "bridge A: failed to publish signal %s to broker: %v", path, err)
	}
}

// onFabricActuatorActual publishes an actual value reported by the RT side
// back onto the broker under the same path.
func (b *BridgeA) onFabricActuatorActual(_ string, data []byte) {
	path, v, ok := wireDecode(data)
	if !ok {
		return
	}
	if err := b.broker.Publish(path, v); err != nil {
		log.WarnOncef("bridge-a-publish-actual-"+path, "bridge A: failed to publish actuator actual %s to broker: %v", path, err)
	}
}

func (b *BridgeA) isActuatorPath(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handles[path]
	return ok && h.Class == ClassActuator
}
