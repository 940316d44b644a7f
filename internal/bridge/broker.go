// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bridge implements the actuator round-trip bridge pair coupling the
// application-plane signal broker to the real-time side via the pub/sub
// fabric.
package bridge

import "github.com/vehicleedge/telemetry-export/pkg/value"

// SignalClass tags whether a broker-discovered path is a plain signal or an
// actuator target/actual pair.
type SignalClass uint8

const (
	ClassSignal SignalClass = iota
	ClassActuator
)

// SignalHandle is a cached, typed handle to one broker-side path.
type SignalHandle struct {
	Path  string
	Class SignalClass
}

// ActuatorHandlerFunc is invoked by the Broker when an application writes to
// an actuator target path it was registered for.
type ActuatorHandlerFunc func(v value.ActuatorValue)

// Broker abstracts the application-plane signal broker that Bridge A talks
// to. The concrete broker (schema registry + pub/sub) is outside this
// repository's scope; this interface is the seam Bridge A is grounded on.
type Broker interface {
	// DiscoverSignals returns every known path matching prefix, annotated
	// with its class (actuator targets/actuals are ClassActuator).
	DiscoverSignals(prefix string) ([]SignalHandle, error)

	// Publish writes a value.Value to path on the broker side.
	Publish(path string, v value.Value) error

	// RegisterActuatorHandler installs cb to fire whenever an application
	// writes a target value to path.
	RegisterActuatorHandler(path string, cb ActuatorHandlerFunc) error
}
