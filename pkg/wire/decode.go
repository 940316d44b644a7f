// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// Decoder deserializes the wire format produced by Encoder. Failure is
// fail-fast only at the outer TransferBatch frame boundary: a malformed
// outer frame yields no recovered items at all. Within an otherwise
// well-formed batch, individual malformed items are skipped and counted
// rather than aborting the decode, mirroring the encoder's per-item drop
// behavior.
type Decoder struct {
	Stats Stats
}

// DecodeBatch parses data into a TransferBatch. It returns an error only for
// a malformed outer frame; per-item problems are absorbed into d.Stats.
func (d *Decoder) DecodeBatch(data []byte) (*TransferBatch, error) {
	b := &TransferBatch{}
	var itemBlobs [][]byte

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			d.Stats.BatchesRejected++
			return nil, fmt.Errorf("wire: malformed batch tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fnBatchSourceID:
			s, n, ok := consumeString(data, typ)
			if !ok {
				d.Stats.BatchesRejected++
				return nil, fmt.Errorf("wire: malformed batch source_id")
			}
			b.SourceID = s
			data = data[n:]
		case fnBatchSequence:
			v, n, ok := consumeVarint(data, typ)
			if !ok {
				d.Stats.BatchesRejected++
				return nil, fmt.Errorf("wire: malformed batch sequence")
			}
			b.Sequence = uint32(v)
			data = data[n:]
		case fnBatchBaseTSMs:
			v, n, ok := consumeVarint(data, typ)
			if !ok {
				d.Stats.BatchesRejected++
				return nil, fmt.Errorf("wire: malformed batch base_timestamp_ms")
			}
			b.BaseTimestampMs = protowire.DecodeZigZag(v)
			data = data[n:]
		case fnBatchItems:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				d.Stats.BatchesRejected++
				return nil, fmt.Errorf("wire: malformed batch item")
			}
			itemBlobs = append(itemBlobs, blob)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				d.Stats.BatchesRejected++
				return nil, fmt.Errorf("wire: malformed batch field %d", num)
			}
			data = data[n:]
		}
	}

	for _, blob := range itemBlobs {
		item, ok := d.decodeItem(blob)
		if !ok {
			d.Stats.ItemsDropped++
			continue
		}
		item.AbsoluteMs = b.BaseTimestampMs + int64(item.TimestampDeltaMs)
		b.Items = append(b.Items, item)
	}
	return b, nil
}

// DecodeLegacyBatch decodes a single-kind batch produced by a pre-unification
// sender. Structurally a legacy batch is a TransferBatch whose items all
// share one ItemKind, so decoding is DecodeBatch plus a homogeneity check;
// no separate wire shape exists.
func (d *Decoder) DecodeLegacyBatch(data []byte, want ItemKind) (*TransferBatch, error) {
	b, err := d.DecodeBatch(data)
	if err != nil {
		return nil, err
	}
	kept := b.Items[:0]
	for _, item := range b.Items {
		if item.Kind != want {
			d.Stats.ItemsDropped++
			continue
		}
		kept = append(kept, item)
	}
	b.Items = kept
	return b, nil
}

func (d *Decoder) decodeItem(data []byte) (TransferItem, bool) {
	item := TransferItem{}
	haveKind := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return TransferItem{}, false
		}
		data = data[n:]

		switch num {
		case fnItemDeltaMs:
			v, n, ok := consumeVarint(data, typ)
			if !ok {
				return TransferItem{}, false
			}
			item.TimestampDeltaMs = uint32(v)
			data = data[n:]
		case fnItemSignal:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return TransferItem{}, false
			}
			sig, ok := decodeSignal(blob)
			if !ok {
				return TransferItem{}, false
			}
			item.Kind, item.Signal, haveKind = ItemSignal, sig, true
			data = data[n:]
		case fnItemEvent:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return TransferItem{}, false
			}
			item.Kind, item.Event, haveKind = ItemEvent, decodeEvent(blob), true
			data = data[n:]
		case fnItemMetric:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return TransferItem{}, false
			}
			item.Kind, item.Metric, haveKind = ItemMetric, decodeMetric(blob), true
			data = data[n:]
		case fnItemLog:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return TransferItem{}, false
			}
			item.Kind, item.Log, haveKind = ItemLog, decodeLog(blob), true
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return TransferItem{}, false
			}
			data = data[n:]
		}
	}
	return item, haveKind
}

func decodeSignal(data []byte) (*value.SignalSample, bool) {
	s := &value.SignalSample{}
	var pathID uint32
	haveValue := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, false
		}
		data = data[n:]

		switch num {
		case fnSigPath:
			str, n, ok := consumeString(data, typ)
			if !ok {
				return nil, false
			}
			s.Path = str
			data = data[n:]
		case fnSigPathID:
			v, n, ok := consumeVarint(data, typ)
			if !ok {
				return nil, false
			}
			pathID = uint32(v)
			data = data[n:]
		case fnSigQuality:
			v, n, ok := consumeVarint(data, typ)
			if !ok {
				return nil, false
			}
			s.Quality = value.QualityFromWire(v)
			data = data[n:]
		case fnSigValue:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return nil, false
			}
			v, ok := decodeValue(blob)
			if !ok {
				return nil, false
			}
			s.Val, haveValue = v, true
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
		}
	}
	if !haveValue {
		return nil, false
	}
	if s.Path == "" && pathID != 0 {
		// No interning dictionary is carried on the wire or distributed to
		// this receiver, so the literal path is unrecoverable; fall back to
		// the documented textual placeholder.
		s.Path = fmt.Sprintf("<path_id:%d>", pathID)
	}
	return s, true
}

func decodeEvent(data []byte) *value.Event {
	ev := &value.Event{}
	var attrKeys, attrVals, ctxKeys, ctxVals []string

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ev
		}
		data = data[n:]

		switch num {
		case fnEvtID:
			ev.EventID, data = consumeStringOr(data, typ, ev.EventID)
		case fnEvtCategory:
			ev.Category, data = consumeStringOr(data, typ, ev.Category)
		case fnEvtType:
			ev.EventType, data = consumeStringOr(data, typ, ev.EventType)
		case fnEvtSeverity:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				ev.Severity = value.EventSeverity(v)
			}
			data = advance(data, n)
		case fnEvtAttrKeys:
			attrKeys, data = appendStringOr(data, typ, attrKeys)
		case fnEvtAttrVals:
			attrVals, data = appendStringOr(data, typ, attrVals)
		case fnEvtCtxKeys:
			ctxKeys, data = appendStringOr(data, typ, ctxKeys)
		case fnEvtCtxVals:
			ctxVals, data = appendStringOr(data, typ, ctxVals)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = advance(data, n)
		}
	}
	ev.Attributes = zipStringMap(attrKeys, attrVals)
	ev.Context = zipStringMap(ctxKeys, ctxVals)
	return ev
}

func decodeMetric(data []byte) *value.MetricSample {
	m := &value.MetricSample{}
	var lblKeys, lblVals []string
	var bounds []float64
	var counts []uint64

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return m
		}
		data = data[n:]

		switch num {
		case fnMetName:
			m.Name, data = consumeStringOr(data, typ, m.Name)
		case fnMetKind:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				m.Kind = value.MetricKind(v)
			}
			data = advance(data, n)
		case fnMetGauge:
			v, n, ok := consumeFixed64(data, typ)
			if ok {
				m.GaugeValue = math.Float64frombits(v)
			}
			data = advance(data, n)
		case fnMetCounter:
			v, n, ok := consumeFixed64(data, typ)
			if ok {
				m.CounterValue = math.Float64frombits(v)
			}
			data = advance(data, n)
		case fnMetCount:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				m.SampleCount = v
			}
			data = advance(data, n)
		case fnMetSum:
			v, n, ok := consumeFixed64(data, typ)
			if ok {
				m.SampleSum = math.Float64frombits(v)
			}
			data = advance(data, n)
		case fnMetBounds:
			v, n, ok := consumeFixed64(data, typ)
			if ok {
				bounds = append(bounds, math.Float64frombits(v))
			}
			data = advance(data, n)
		case fnMetCounts:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				counts = append(counts, v)
			}
			data = advance(data, n)
		case fnMetLblKeys:
			lblKeys, data = appendStringOr(data, typ, lblKeys)
		case fnMetLblVals:
			lblVals, data = appendStringOr(data, typ, lblVals)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = advance(data, n)
		}
	}

	// Parallel bounds/counts arrays are tolerated if mismatched in length:
	// only the overlapping prefix forms complete buckets.
	n := len(bounds)
	if len(counts) < n {
		n = len(counts)
	}
	for i := 0; i < n; i++ {
		m.Buckets = append(m.Buckets, value.HistogramBucket{UpperBound: bounds[i], CumulativeCount: counts[i]})
	}
	m.Labels = zipStringMap(lblKeys, lblVals)
	return m
}

func decodeLog(data []byte) *value.LogEntry {
	l := &value.LogEntry{}
	var attrKeys, attrVals []string

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return l
		}
		data = data[n:]

		switch num {
		case fnLogLevel:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				l.Level = value.LogLevel(v)
			}
			data = advance(data, n)
		case fnLogComponent:
			l.Component, data = consumeStringOr(data, typ, l.Component)
		case fnLogMessage:
			l.Message, data = consumeStringOr(data, typ, l.Message)
		case fnLogAttrKeys:
			attrKeys, data = appendStringOr(data, typ, attrKeys)
		case fnLogAttrVals:
			attrVals, data = appendStringOr(data, typ, attrVals)
		case fnLogTraceID:
			l.TraceID, data = consumeStringOr(data, typ, l.TraceID)
		case fnLogSpanID:
			l.SpanID, data = consumeStringOr(data, typ, l.SpanID)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = advance(data, n)
		}
	}
	l.Attributes = zipStringMap(attrKeys, attrVals)
	return l
}

// decodeValue parses a Value submessage. Any Kind the decoder does not
// recognize, whether a future sender-side extension or corruption of the
// kind byte, resolves to the Empty variant rather than failing the item.
func decodeValue(data []byte) (value.Value, bool) {
	var kind value.Kind = value.KindEmpty
	var out value.Value
	haveKind := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return value.Value{}, false
		}
		data = data[n:]

		switch num {
		case fnValKind:
			v, n, ok := consumeVarint(data, typ)
			if !ok {
				return value.Value{}, false
			}
			kind, haveKind = value.Kind(v), true
			data = data[n:]
		case fnValBool:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				out = value.Bool(v != 0)
			}
			data = advance(data, n)
		case fnValInt32:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				out = value.Int32(int32(protowire.DecodeZigZag(v)))
			}
			data = advance(data, n)
		case fnValInt64:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				out = value.Int64(protowire.DecodeZigZag(v))
			}
			data = advance(data, n)
		case fnValUint32:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				out = value.Uint32(uint32(v))
			}
			data = advance(data, n)
		case fnValUint64:
			v, n, ok := consumeVarint(data, typ)
			if ok {
				out = value.Uint64(v)
			}
			data = advance(data, n)
		case fnValFloat32:
			v, n, ok := consumeFixed32(data, typ)
			if ok {
				out = value.Float32(math.Float32frombits(v))
			}
			data = advance(data, n)
		case fnValFloat64:
			v, n, ok := consumeFixed64(data, typ)
			if ok {
				out = value.Float64(math.Float64frombits(v))
			}
			data = advance(data, n)
		case fnValString:
			str, n, ok := consumeString(data, typ)
			if ok {
				out = value.String(str)
			}
			data = advance(data, n)
		case fnValArray:
			blob, n, ok := consumeBytes(data, typ)
			if ok {
				if elem, ok := decodeValue(blob); ok {
					out.ArrayVal = append(out.ArrayVal, elem)
				}
			}
			data = advance(data, n)
		case fnValStruct:
			blob, n, ok := consumeBytes(data, typ)
			if ok {
				if s, ok := decodeStruct(blob); ok {
					out = value.StructValue(s)
				}
			}
			data = advance(data, n)
		case fnValStructArr:
			blob, n, ok := consumeBytes(data, typ)
			if ok {
				if s, ok := decodeStruct(blob); ok {
					out.StructArrayVal = append(out.StructArrayVal, s)
				}
			}
			data = advance(data, n)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = advance(data, n)
		}
	}

	if !haveKind {
		return value.Empty(), true
	}
	out.Kind = resolveDecodedKind(kind, out)
	return out, true
}

// resolveDecodedKind re-applies the declared Kind once every field has been
// consumed, since fnValArray/fnValStruct/fnValStructArr accumulate into out
// incrementally and the declared kind tag may arrive before or after them.
// Declared widths narrower than a wire field (int8/int16, uint8/uint16) are
// normalized to the wire field's own width and decode as int32/uint32; every
// other declared kind decodes as declared, so an int64/uint64 holding a small
// value stays int64/uint64. The value's magnitude plays no part.
func resolveDecodedKind(declared value.Kind, out value.Value) value.Kind {
	switch declared {
	case value.KindInt8, value.KindInt16:
		return value.KindInt32
	case value.KindUint8, value.KindUint16:
		return value.KindUint32
	case value.KindArray, value.KindStruct, value.KindStructArray,
		value.KindBool, value.KindInt32, value.KindInt64,
		value.KindUint32, value.KindUint64,
		value.KindFloat32, value.KindFloat64, value.KindString, value.KindEmpty:
		return declared
	default:
		return value.KindEmpty // unrecognized kind byte: Empty, never an error
	}
}

func decodeStruct(data []byte) (*value.Struct, bool) {
	s := &value.Struct{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, false
		}
		data = data[n:]

		switch num {
		case fnStructTypeName:
			str, n, ok := consumeString(data, typ)
			if !ok {
				return nil, false
			}
			s.TypeName = str
			data = data[n:]
		case fnStructFields:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return nil, false
			}
			f, ok := decodeField(blob)
			if ok {
				s.Fields = append(s.Fields, f)
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
		}
	}
	return s, true
}

func decodeField(data []byte) (value.Field, bool) {
	f := value.Field{}
	haveValue := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return value.Field{}, false
		}
		data = data[n:]

		switch num {
		case fnFieldName:
			str, n, ok := consumeString(data, typ)
			if !ok {
				return value.Field{}, false
			}
			f.Name = str
			data = data[n:]
		case fnFieldValue:
			blob, n, ok := consumeBytes(data, typ)
			if !ok {
				return value.Field{}, false
			}
			v, ok := decodeValue(blob)
			if !ok {
				return value.Field{}, false
			}
			f.Value, haveValue = v, true
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return value.Field{}, false
			}
			data = data[n:]
		}
	}
	return f, haveValue
}

// zipStringMap recombines the parallel key/value sequences emitted by
// appendStringMap. Mismatched lengths are tolerated by truncating to the
// shorter sequence.
func zipStringMap(keys, vals []string) map[string]string {
	if len(keys) == 0 && len(vals) == 0 {
		return nil
	}
	n := len(keys)
	if len(vals) < n {
		n = len(vals)
	}
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		out[keys[i]] = vals[i]
	}
	return out
}

// skipMismatch advances past a field whose wire type doesn't match what the
// field number expects, using protowire's generic any-type skip so a single
// garbled field never derails or stalls the rest of the message.
func skipMismatch(data []byte, typ protowire.Type) int {
	return protowire.ConsumeFieldValue(0, typ, data)
}

func consumeVarint(data []byte, typ protowire.Type) (uint64, int, bool) {
	if typ != protowire.VarintType {
		return 0, skipMismatch(data, typ), false
	}
	v, n := protowire.ConsumeVarint(data)
	return v, n, n >= 0
}

func consumeFixed32(data []byte, typ protowire.Type) (uint32, int, bool) {
	if typ != protowire.Fixed32Type {
		return 0, skipMismatch(data, typ), false
	}
	v, n := protowire.ConsumeFixed32(data)
	return v, n, n >= 0
}

func consumeFixed64(data []byte, typ protowire.Type) (uint64, int, bool) {
	if typ != protowire.Fixed64Type {
		return 0, skipMismatch(data, typ), false
	}
	v, n := protowire.ConsumeFixed64(data)
	return v, n, n >= 0
}

func consumeBytes(data []byte, typ protowire.Type) ([]byte, int, bool) {
	if typ != protowire.BytesType {
		return nil, skipMismatch(data, typ), false
	}
	v, n := protowire.ConsumeBytes(data)
	return v, n, n >= 0
}

func consumeString(data []byte, typ protowire.Type) (string, int, bool) {
	b, n, ok := consumeBytes(data, typ)
	return string(b), n, ok
}

func consumeStringOr(data []byte, typ protowire.Type, cur string) (string, []byte) {
	s, n, ok := consumeString(data, typ)
	if !ok {
		return cur, advance(data, n)
	}
	return s, data[n:]
}

func appendStringOr(data []byte, typ protowire.Type, cur []string) ([]string, []byte) {
	s, n, ok := consumeString(data, typ)
	if !ok {
		return cur, advance(data, n)
	}
	return append(cur, s), data[n:]
}

// advance consumes n bytes from data, falling back to consuming the rest of
// the buffer if n is negative so a single unparseable field can never stall
// the decode loop.
func advance(data []byte, n int) []byte {
	if n < 0 || n > len(data) {
		return nil
	}
	return data[n:]
}
