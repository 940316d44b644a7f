// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package value

// ActuatorKind tags an ActuatorValue's payload slot. Unlike the general
// Value union, actuator values are scalar-or-string only: no arrays, no
// structs.
type ActuatorKind uint8

const (
	ActuatorEmpty ActuatorKind = iota
	ActuatorBool
	ActuatorInt64
	ActuatorUint64
	ActuatorFloat64
	ActuatorString
)

// ActuatorValue is the narrow tagged union carried across the actuator
// round-trip channel (application broker <-> real-time controller).
type ActuatorValue struct {
	Kind      ActuatorKind
	BoolVal   bool
	Int64Val  int64
	Uint64Val uint64
	FloatVal  float64
	StringVal string
}

func ActuatorFromBool(v bool) ActuatorValue {
	return ActuatorValue{Kind: ActuatorBool, BoolVal: v}
}
func ActuatorFromInt64(v int64) ActuatorValue {
	return ActuatorValue{Kind: ActuatorInt64, Int64Val: v}
}
func ActuatorFromUint64(v uint64) ActuatorValue {
	return ActuatorValue{Kind: ActuatorUint64, Uint64Val: v}
}
func ActuatorFromFloat64(v float64) ActuatorValue {
	return ActuatorValue{Kind: ActuatorFloat64, FloatVal: v}
}
func ActuatorFromString(v string) ActuatorValue {
	return ActuatorValue{Kind: ActuatorString, StringVal: v}
}

// ToValue widens an ActuatorValue into the general Value union, the
// direction used when the bridges publish an actuator value onto a fabric
// topic (Bridge A's targets, Bridge B's RT-reported actuals).
func (a ActuatorValue) ToValue() Value {
	switch a.Kind {
	case ActuatorBool:
		return Bool(a.BoolVal)
	case ActuatorInt64:
		return Int64(a.Int64Val)
	case ActuatorUint64:
		return Uint64(a.Uint64Val)
	case ActuatorFloat64:
		return Float64(a.FloatVal)
	case ActuatorString:
		return String(a.StringVal)
	default:
		return Empty()
	}
}

// ActuatorFromValue narrows a general Value into an ActuatorValue.
// Unsupported variants (arrays, structs, or any width not representable in
// the narrow union) return ok == false so the caller can log-once and drop.
func ActuatorFromValue(v Value) (ActuatorValue, bool) {
	switch v.Kind {
	case KindBool:
		return ActuatorFromBool(v.BoolVal), true
	case KindInt8:
		return ActuatorFromInt64(int64(v.Int8Val)), true
	case KindInt16:
		return ActuatorFromInt64(int64(v.Int16Val)), true
	case KindInt32:
		return ActuatorFromInt64(int64(v.Int32Val)), true
	case KindInt64:
		return ActuatorFromInt64(v.Int64Val), true
	case KindUint8:
		return ActuatorFromUint64(uint64(v.Uint8Val)), true
	case KindUint16:
		return ActuatorFromUint64(uint64(v.Uint16Val)), true
	case KindUint32:
		return ActuatorFromUint64(uint64(v.Uint32Val)), true
	case KindUint64:
		return ActuatorFromUint64(v.Uint64Val), true
	case KindFloat32:
		return ActuatorFromFloat64(float64(v.Float32V)), true
	case KindFloat64:
		return ActuatorFromFloat64(v.Float64V), true
	case KindString:
		return ActuatorFromString(v.StringVal), true
	default:
		return ActuatorValue{}, false
	}
}
