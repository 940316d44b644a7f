// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

// wireDecode parses a fabric message into its (path, Value) pair. The
// returned path/Value own their own storage (copied out of data by the wire
// decoder), so callers may hold them past the lifetime of the inbound NATS
// message buffer.
func wireDecode(data []byte) (string, value.Value, bool) {
	return wire.DecodeFabricValue(data)
}

func wireEncode(path string, v value.Value) []byte {
	return wire.EncodeFabricValue(path, v)
}

// wireEncodeActuator widens av to the general Value union before framing,
// since the fabric only carries one Value wire shape; narrowing back to
// ActuatorValue happens at Bridge B's RT-facing edge.
func wireEncodeActuator(path string, av value.ActuatorValue) []byte {
	return wireEncode(path, av.ToValue())
}
