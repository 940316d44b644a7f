// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"time"

	"github.com/vehicleedge/telemetry-export/internal/fabric"
	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// BridgeB forwards fabric actuator targets through a pluggable RT transport,
// and publishes RT-reported actuals back onto the fabric.
type BridgeB struct {
	fab *fabric.Fabric
	rt  RTTransport

	poller *fabric.Poller
	stop   chan struct{}
	done   chan struct{}
}

// NewBridgeB constructs a bridge over rt.
func NewBridgeB(fab *fabric.Fabric, rt RTTransport) *BridgeB {
	return &BridgeB{fab: fab, rt: rt, stop: make(chan struct{}), done: make(chan struct{})}
}

// Start registers the RT transport's actual-receive callback and launches
// the fabric poll loop reading the actuator-target topic.
func (b *BridgeB) Start() error {
	b.rt.OnReceive(b.onRTActual)

	poller, err := b.fab.NewPoller(fabric.TopicActuatorTarget)
	if err != nil {
		return err
	}
	b.poller = poller
	go b.pollLoop()
	return nil
}

// Stop ends the poll loop and releases its subscription.
func (b *BridgeB) Stop() {
	close(b.stop)
	<-b.done
	b.poller.Close()
}

func (b *BridgeB) pollLoop() {
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
			b.onFabricTarget(msg.Subject, msg.Data)
		}
	}
}

func (b *BridgeB) onFabricTarget(_ string, data []byte) {
	path, v, ok := wireDecode(data)
	if !ok {
		return
	}
	av, ok := value.ActuatorFromValue(v)
	if !ok {
		log.WarnOncef("bridge-b-unsupported-"+path, "bridge B: unsupported actuator target variant for %s", path)
		return
	}
	if err := b.rt.Send(RTSample{Path: path, Val: av}); err != nil {
		log.WarnOncef("bridge-b-send-"+path, "bridge B: failed to send actuator target %s to RT transport: %v", path, err)
	}
}

func (b *BridgeB) onRTActual(s RTSample) {
	if err := b.fab.Publish(fabric.TopicActuatorActual, wireEncodeActuator(s.Path, s.Val)); err != nil {
		log.WarnOncef("bridge-b-publish-actual-"+s.Path, "bridge B: failed to publish actuator actual %s: %v", s.Path, err)
	}
}
