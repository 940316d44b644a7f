// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"math"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// Encoder serializes TransferBatch values to the wire format. It is
// infallible for well-typed inputs: an item carrying an unknown/unsupported
// Value variant is dropped with Stats.ItemsDropped incremented rather than
// aborting the whole batch. A zero Encoder is ready to use.
type Encoder struct {
	Stats Stats

	// InternPaths, when true, emits an xxhash-derived path_id instead of
	// the literal path string for signal samples. Disabled by default since
	// no dictionary distribution mechanism exists to resolve path_id back
	// to a path on the receiving end.
	InternPaths bool
}

// EncodeBatch serializes b into the unified TransferBatch wire form.
func (e *Encoder) EncodeBatch(b *TransferBatch) []byte {
	var out []byte
	out = protowire.AppendTag(out, fnBatchSourceID, protowire.BytesType)
	out = protowire.AppendString(out, b.SourceID)
	out = protowire.AppendTag(out, fnBatchSequence, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(b.Sequence))
	out = protowire.AppendTag(out, fnBatchBaseTSMs, protowire.VarintType)
	out = protowire.AppendVarint(out, protowire.EncodeZigZag(b.BaseTimestampMs))

	for _, item := range b.Items {
		itemBytes, ok := e.encodeItem(b.SourceID, &item)
		if !ok {
			e.Stats.ItemsDropped++
			continue
		}
		out = protowire.AppendTag(out, fnBatchItems, protowire.BytesType)
		out = protowire.AppendBytes(out, itemBytes)
	}
	return out
}

func (e *Encoder) encodeItem(sourceID string, item *TransferItem) ([]byte, bool) {
	var out []byte
	out = protowire.AppendTag(out, fnItemDeltaMs, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(item.TimestampDeltaMs))

	switch item.Kind {
	case ItemSignal:
		if item.Signal == nil {
			return nil, false
		}
		payload, ok := e.encodeSignal(item.Signal)
		if !ok {
			return nil, false
		}
		out = protowire.AppendTag(out, fnItemSignal, protowire.BytesType)
		out = protowire.AppendBytes(out, payload)
	case ItemEvent:
		if item.Event == nil {
			return nil, false
		}
		out = protowire.AppendTag(out, fnItemEvent, protowire.BytesType)
		out = protowire.AppendBytes(out, e.encodeEvent(sourceID, item.Event))
	case ItemMetric:
		if item.Metric == nil {
			return nil, false
		}
		out = protowire.AppendTag(out, fnItemMetric, protowire.BytesType)
		out = protowire.AppendBytes(out, e.encodeMetric(sourceID, item.Metric))
	case ItemLog:
		if item.Log == nil {
			return nil, false
		}
		out = protowire.AppendTag(out, fnItemLog, protowire.BytesType)
		out = protowire.AppendBytes(out, e.encodeLog(sourceID, item.Log))
	default:
		return nil, false
	}
	return out, true
}

func (e *Encoder) encodeSignal(s *value.SignalSample) ([]byte, bool) {
	var out []byte
	if e.InternPaths {
		id := uint32(xxhash.Sum64String(s.Path))
		out = protowire.AppendTag(out, fnSigPathID, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(id))
	} else {
		out = protowire.AppendTag(out, fnSigPath, protowire.BytesType)
		out = protowire.AppendString(out, s.Path)
	}
	out = protowire.AppendTag(out, fnSigQuality, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(s.Quality))

	valBytes, ok := encodeValue(s.Val, 0)
	if !ok {
		return nil, false
	}
	out = protowire.AppendTag(out, fnSigValue, protowire.BytesType)
	out = protowire.AppendBytes(out, valBytes)
	return out, true
}

func (e *Encoder) encodeEvent(sourceID string, ev *value.Event) []byte {
	var out []byte
	out = protowire.AppendTag(out, fnEvtID, protowire.BytesType)
	out = protowire.AppendString(out, ev.EventID)
	out = protowire.AppendTag(out, fnEvtCategory, protowire.BytesType)
	out = protowire.AppendString(out, ev.Category)
	out = protowire.AppendTag(out, fnEvtType, protowire.BytesType)
	out = protowire.AppendString(out, ev.EventType)
	out = protowire.AppendTag(out, fnEvtSeverity, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(ev.Severity))

	attrs := value.InjectServiceLabel(sourceID, ev.Attributes)
	out = appendStringMap(out, fnEvtAttrKeys, fnEvtAttrVals, attrs)
	out = appendStringMap(out, fnEvtCtxKeys, fnEvtCtxVals, ev.Context)
	return out
}

func (e *Encoder) encodeMetric(sourceID string, m *value.MetricSample) []byte {
	var out []byte
	out = protowire.AppendTag(out, fnMetName, protowire.BytesType)
	out = protowire.AppendString(out, m.Name)
	out = protowire.AppendTag(out, fnMetKind, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(m.Kind))

	switch m.Kind {
	case value.MetricGauge:
		out = protowire.AppendTag(out, fnMetGauge, protowire.Fixed64Type)
		out = protowire.AppendFixed64(out, math.Float64bits(m.GaugeValue))
	case value.MetricCounter:
		out = protowire.AppendTag(out, fnMetCounter, protowire.Fixed64Type)
		out = protowire.AppendFixed64(out, math.Float64bits(m.CounterValue))
	case value.MetricHistogram:
		out = protowire.AppendTag(out, fnMetCount, protowire.VarintType)
		out = protowire.AppendVarint(out, m.SampleCount)
		out = protowire.AppendTag(out, fnMetSum, protowire.Fixed64Type)
		out = protowire.AppendFixed64(out, math.Float64bits(m.SampleSum))
		for _, b := range m.Buckets {
			out = protowire.AppendTag(out, fnMetBounds, protowire.Fixed64Type)
			out = protowire.AppendFixed64(out, math.Float64bits(b.UpperBound))
		}
		for _, b := range m.Buckets {
			out = protowire.AppendTag(out, fnMetCounts, protowire.VarintType)
			out = protowire.AppendVarint(out, b.CumulativeCount)
		}
	}

	labels := value.InjectServiceLabel(sourceID, m.Labels)
	out = appendStringMap(out, fnMetLblKeys, fnMetLblVals, labels)
	return out
}

func (e *Encoder) encodeLog(sourceID string, l *value.LogEntry) []byte {
	var out []byte
	out = protowire.AppendTag(out, fnLogLevel, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(l.Level))
	out = protowire.AppendTag(out, fnLogComponent, protowire.BytesType)
	out = protowire.AppendString(out, l.Component)
	out = protowire.AppendTag(out, fnLogMessage, protowire.BytesType)
	out = protowire.AppendString(out, l.Message)

	attrs := value.InjectServiceLabel(sourceID, l.Attributes)
	out = appendStringMap(out, fnLogAttrKeys, fnLogAttrVals, attrs)

	out = protowire.AppendTag(out, fnLogTraceID, protowire.BytesType)
	out = protowire.AppendString(out, l.TraceID)
	out = protowire.AppendTag(out, fnLogSpanID, protowire.BytesType)
	out = protowire.AppendString(out, l.SpanID)
	return out
}

// appendStringMap writes m as two parallel key/value sequences of equal
// length. A "service" key, when present, is written first; the remaining
// keys follow in map iteration order. Empty strings are written as
// present-and-empty, never omitted; this is load-bearing for receiver hashing.
func appendStringMap(out []byte, keyField, valField protowire.Number, m map[string]string) []byte {
	if v, ok := m["service"]; ok {
		out = protowire.AppendTag(out, keyField, protowire.BytesType)
		out = protowire.AppendString(out, "service")
		out = protowire.AppendTag(out, valField, protowire.BytesType)
		out = protowire.AppendString(out, v)
	}
	for k, v := range m {
		if k == "service" {
			continue
		}
		out = protowire.AppendTag(out, keyField, protowire.BytesType)
		out = protowire.AppendString(out, k)
		out = protowire.AppendTag(out, valField, protowire.BytesType)
		out = protowire.AppendString(out, v)
	}
	return out
}

// encodeValue serializes v. depth must be 0 for the top-level call; struct
// fields are encoded with depth 1 and MUST NOT themselves be struct-typed,
// enforced here by returning ok=false if a nested struct is encountered
// below depth 0.
func encodeValue(v value.Value, depth int) ([]byte, bool) {
	var out []byte
	out = protowire.AppendTag(out, fnValKind, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(v.Kind))

	switch v.Kind {
	case value.KindEmpty:
		// no payload
	case value.KindBool:
		out = protowire.AppendTag(out, fnValBool, protowire.VarintType)
		b := uint64(0)
		if v.BoolVal {
			b = 1
		}
		out = protowire.AppendVarint(out, b)
	case value.KindInt8:
		out = appendZigzag32(out, int32(v.Int8Val))
	case value.KindInt16:
		out = appendZigzag32(out, int32(v.Int16Val))
	case value.KindInt32:
		out = appendZigzag32(out, v.Int32Val)
	case value.KindInt64:
		out = protowire.AppendTag(out, fnValInt64, protowire.VarintType)
		out = protowire.AppendVarint(out, protowire.EncodeZigZag(v.Int64Val))
	case value.KindUint8:
		out = appendVarint32(out, uint32(v.Uint8Val))
	case value.KindUint16:
		out = appendVarint32(out, uint32(v.Uint16Val))
	case value.KindUint32:
		out = appendVarint32(out, v.Uint32Val)
	case value.KindUint64:
		out = protowire.AppendTag(out, fnValUint64, protowire.VarintType)
		out = protowire.AppendVarint(out, v.Uint64Val)
	case value.KindFloat32:
		out = protowire.AppendTag(out, fnValFloat32, protowire.Fixed32Type)
		out = protowire.AppendFixed32(out, math.Float32bits(v.Float32V))
	case value.KindFloat64:
		out = protowire.AppendTag(out, fnValFloat64, protowire.Fixed64Type)
		out = protowire.AppendFixed64(out, math.Float64bits(v.Float64V))
	case value.KindString:
		out = protowire.AppendTag(out, fnValString, protowire.BytesType)
		out = protowire.AppendString(out, v.StringVal)
	case value.KindArray:
		for _, elem := range v.ArrayVal {
			if !value.IsScalar(elem.Kind) || elem.Kind == value.KindArray {
				return nil, false // arrays of scalars only
			}
			elemBytes, ok := encodeValue(elem, depth)
			if !ok {
				return nil, false
			}
			out = protowire.AppendTag(out, fnValArray, protowire.BytesType)
			out = protowire.AppendBytes(out, elemBytes)
		}
	case value.KindStruct:
		if depth > 0 {
			return nil, false // depth-one restriction
		}
		if v.StructVal == nil {
			return nil, false
		}
		sBytes, ok := encodeStruct(v.StructVal)
		if !ok {
			return nil, false
		}
		out = protowire.AppendTag(out, fnValStruct, protowire.BytesType)
		out = protowire.AppendBytes(out, sBytes)
	case value.KindStructArray:
		if depth > 0 {
			return nil, false
		}
		for _, s := range v.StructArrayVal {
			sBytes, ok := encodeStruct(s)
			if !ok {
				return nil, false
			}
			out = protowire.AppendTag(out, fnValStructArr, protowire.BytesType)
			out = protowire.AppendBytes(out, sBytes)
		}
	default:
		return nil, false // unknown variant: caller drops the item
	}
	return out, true
}

func appendZigzag32(out []byte, v int32) []byte {
	out = protowire.AppendTag(out, fnValInt32, protowire.VarintType)
	return protowire.AppendVarint(out, protowire.EncodeZigZag(int64(v)))
}

func appendVarint32(out []byte, v uint32) []byte {
	out = protowire.AppendTag(out, fnValUint32, protowire.VarintType)
	return protowire.AppendVarint(out, uint64(v))
}

// encodeStruct serializes a struct whose fields must all be scalar-valued
// (depth-one restriction: fields are encoded at depth 1, rejecting any
// nested struct/struct-array field).
func encodeStruct(s *value.Struct) ([]byte, bool) {
	var out []byte
	out = protowire.AppendTag(out, fnStructTypeName, protowire.BytesType)
	out = protowire.AppendString(out, s.TypeName)

	for _, f := range s.Fields {
		if !value.IsScalar(f.Value.Kind) {
			return nil, false
		}
		fBytes, ok := encodeField(&f)
		if !ok {
			return nil, false
		}
		out = protowire.AppendTag(out, fnStructFields, protowire.BytesType)
		out = protowire.AppendBytes(out, fBytes)
	}
	return out, true
}

func encodeField(f *value.Field) ([]byte, bool) {
	var out []byte
	out = protowire.AppendTag(out, fnFieldName, protowire.BytesType)
	out = protowire.AppendString(out, f.Name)

	valBytes, ok := encodeValue(f.Value, 1)
	if !ok {
		return nil, false
	}
	out = protowire.AppendTag(out, fnFieldValue, protowire.BytesType)
	out = protowire.AppendBytes(out, valBytes)
	return out, true
}
