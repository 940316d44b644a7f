// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package can

import (
	"math"

	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// Encoder converts actuator writes into CAN bit fields against a static
// signal table, coalescing into per-arbitration-id frames.
type Encoder struct {
	table  *Table
	frames *FrameSet
}

// NewEncoder builds an Encoder over table, with its own frame buffer.
func NewEncoder(table *Table) *Encoder {
	return &Encoder{table: table, frames: NewFrameSet()}
}

// Frames exposes the coalescing buffer so a writer can drain completed
// frames after a batch of Encode calls.
func (e *Encoder) Frames() *FrameSet { return e.frames }

// Encode packs av into the frame buffer for path's mapping. It returns
// false (without touching the frame buffer) when path isn't mapped or when
// a string value doesn't match any entry in the signal's enum table. An
// unmapped enum is a per-path warning, not an error, and the frame buffer
// is left untouched.
func (e *Encoder) Encode(path string, av value.ActuatorValue) bool {
	m, ok := e.table.Lookup(path)
	if !ok {
		return false
	}

	var raw uint64
	switch av.Kind {
	case value.ActuatorBool:
		if av.BoolVal {
			raw = 1
		}
	case value.ActuatorInt64:
		raw = rawFromNumeric(float64(av.Int64Val), m)
	case value.ActuatorUint64:
		raw = rawFromNumeric(float64(av.Uint64Val), m)
	case value.ActuatorFloat64:
		raw = rawFromNumeric(av.FloatVal, m)
	case value.ActuatorString:
		v, ok := m.EnumMap[av.StringVal]
		if !ok {
			log.WarnOncef("can-unknown-enum-"+path, "can: %q is not a known enum value for signal %s (path %s)", av.StringVal, m.SignalName, path)
			return false
		}
		raw = v
	default:
		return false
	}

	raw = clampRaw(raw, m.maxRawValue())
	e.frames.pack(m, raw)
	return true
}

// rawFromNumeric applies the inverse affine transform (raw = (value -
// offset) / factor), rounds to nearest, then clamps to a non-negative
// integer (the final bit-length clamp happens in Encode via clampRaw).
func rawFromNumeric(v float64, m SignalMapping) uint64 {
	r := math.Round((v - m.Offset) / m.Factor)
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	if r > math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(r)
}

func clampRaw(raw, max uint64) uint64 {
	if raw > max {
		return max
	}
	return raw
}
