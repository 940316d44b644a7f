// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package value implements the tagged-union Value type and the fixed
// ingestable record kinds (signal sample, event, metric sample, log entry)
// that enter the telemetry export pipeline. It is the in-memory mirror of
// the wire-level oneof described by pkg/wire.
package value

// Kind tags which payload slot of a Value is meaningful. All other slots
// MUST be unset on the wire and ignored on decode.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindArray  // ordered array of any scalar Kind
	KindStruct // named, ordered fields; depth-one (fields may not be KindStruct)
	KindStructArray
)

// Struct is a named record with ordered fields. A Value whose Kind is
// KindStruct carries exactly one *Struct in StructVal. Per the depth-one
// wire restriction, no Field.Value may itself have Kind == KindStruct or
// KindStructArray; pkg/wire's encoder enforces this at encode time.
type Struct struct {
	TypeName string
	Fields   []Field
}

// Field is one named slot of a Struct, itself carrying a scalar Value.
type Field struct {
	Name  string
	Value Value
}

// Value is a tagged union over every wire scalar plus arrays/structs.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	BoolVal   bool
	Int8Val   int8
	Int16Val  int16
	Int32Val  int32
	Int64Val  int64
	Uint8Val  uint8
	Uint16Val uint16
	Uint32Val uint32
	Uint64Val uint64
	Float32V  float32
	Float64V  float64
	StringVal string

	// ArrayVal holds the elements when Kind == KindArray; each element's
	// Kind must be a scalar kind (not KindArray/KindStruct/KindStructArray).
	ArrayVal []Value

	// StructVal holds the single struct payload when Kind == KindStruct.
	StructVal *Struct

	// StructArrayVal holds elements when Kind == KindStructArray.
	StructArrayVal []*Struct
}

func Empty() Value { return Value{Kind: KindEmpty} }

func Bool(v bool) Value     { return Value{Kind: KindBool, BoolVal: v} }
func Int8(v int8) Value     { return Value{Kind: KindInt8, Int8Val: v} }
func Int16(v int16) Value   { return Value{Kind: KindInt16, Int16Val: v} }
func Int32(v int32) Value   { return Value{Kind: KindInt32, Int32Val: v} }
func Int64(v int64) Value   { return Value{Kind: KindInt64, Int64Val: v} }
func Uint8(v uint8) Value   { return Value{Kind: KindUint8, Uint8Val: v} }
func Uint16(v uint16) Value { return Value{Kind: KindUint16, Uint16Val: v} }
func Uint32(v uint32) Value { return Value{Kind: KindUint32, Uint32Val: v} }
func Uint64(v uint64) Value { return Value{Kind: KindUint64, Uint64Val: v} }
func Float32(v float32) Value {
	return Value{Kind: KindFloat32, Float32V: v}
}
func Float64(v float64) Value {
	return Value{Kind: KindFloat64, Float64V: v}
}
func String(v string) Value { return Value{Kind: KindString, StringVal: v} }
func Array(elems []Value) Value {
	return Value{Kind: KindArray, ArrayVal: elems}
}
func StructValue(s *Struct) Value {
	return Value{Kind: KindStruct, StructVal: s}
}
func StructArray(elems []*Struct) Value {
	return Value{Kind: KindStructArray, StructArrayVal: elems}
}

// IsScalar reports whether k may appear as a Struct field's Value Kind
// under the depth-one wire restriction.
func IsScalar(k Kind) bool {
	switch k {
	case KindStruct, KindStructArray:
		return false
	default:
		return true
	}
}
