// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

// NATSBroker is a concrete Broker grounded on a plain NATS request/reply and
// pub/sub subject scheme on the application plane (separate from the fabric
// connection Bridge A/B poll): discovery is a request/reply round trip,
// publish is a fire-and-forget core publish, and actuator handler
// registration is a plain Subscribe.
type NATSBroker struct {
	nc             *nats.Conn
	discoverySubj  string
	signalSubjFmt  string
	targetSubjFmt  string
	requestTimeout time.Duration
}

// NATSBrokerConfig names the subjects the application-plane broker answers
// on. SignalSubjFmt/TargetSubjFmt must each contain exactly one "%s" for the
// path.
type NATSBrokerConfig struct {
	DiscoverySubject string
	SignalSubjFmt    string
	TargetSubjFmt    string
	RequestTimeout   time.Duration
}

func NewNATSBroker(nc *nats.Conn, cfg NATSBrokerConfig) *NATSBroker {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	return &NATSBroker{
		nc:             nc,
		discoverySubj:  cfg.DiscoverySubject,
		signalSubjFmt:  cfg.SignalSubjFmt,
		targetSubjFmt:  cfg.TargetSubjFmt,
		requestTimeout: cfg.RequestTimeout,
	}
}

type discoveredSignal struct {
	Path  string `json:"path"`
	Class uint8  `json:"class"`
}

// DiscoverSignals sends prefix as a request payload and expects a JSON array
// of discoveredSignal back.
func (b *NATSBroker) DiscoverSignals(prefix string) ([]SignalHandle, error) {
	msg, err := b.nc.Request(b.discoverySubj, []byte(prefix), b.requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("broker discovery request failed: %w", err)
	}
	var found []discoveredSignal
	if err := json.Unmarshal(msg.Data, &found); err != nil {
		return nil, fmt.Errorf("broker discovery reply malformed: %w", err)
	}
	handles := make([]SignalHandle, 0, len(found))
	for _, f := range found {
		handles = append(handles, SignalHandle{Path: f.Path, Class: SignalClass(f.Class)})
	}
	return handles, nil
}

// Publish wire-encodes v and publishes it to the path's signal subject.
func (b *NATSBroker) Publish(path string, v value.Value) error {
	return b.nc.Publish(fmt.Sprintf(b.signalSubjFmt, path), wireEncode(path, v))
}

// RegisterActuatorHandler subscribes to the path's target subject, decoding
// each message as an ActuatorValue before invoking cb. Decode failures are
// dropped with a rate-limited warning rather than propagated, matching the
// fire-and-forget nature of the broker-side callback contract.
func (b *NATSBroker) RegisterActuatorHandler(path string, cb ActuatorHandlerFunc) error {
	subj := fmt.Sprintf(b.targetSubjFmt, path)
	_, err := b.nc.Subscribe(subj, func(msg *nats.Msg) {
		_, v, ok := wire.DecodeFabricValue(msg.Data)
		if !ok {
			log.WarnOncef("broker-target-decode-"+path, "broker: malformed actuator target on %s", subj)
			return
		}
		av, ok := value.ActuatorFromValue(v)
		if !ok {
			log.WarnOncef("broker-target-narrow-"+path, "broker: actuator target on %s has unsupported variant", subj)
			return
		}
		cb(av)
	})
	if err != nil {
		return fmt.Errorf("broker: subscribe to %s failed: %w", subj, err)
	}
	return nil
}
