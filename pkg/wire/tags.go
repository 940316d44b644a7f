// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire implements a length-delimited tag-value binary encoding for
// TransferBatch: varint field tags (via
// google.golang.org/protobuf/encoding/protowire), zigzag for signed
// integers, length-delimited strings/embedded messages. There is no
// generated .proto/.pb.go pair; the encoder/decoder hand-roll the wire
// bytes directly against the fixed field numbers below, which is stable for
// as long as this file does not change them.
package wire

import "google.golang.org/protobuf/encoding/protowire"

// TransferBatch field numbers.
const (
	fnBatchSourceID  protowire.Number = 1
	fnBatchSequence  protowire.Number = 2
	fnBatchBaseTSMs  protowire.Number = 3
	fnBatchItems     protowire.Number = 4
)

// TransferItem field numbers. Exactly one of fnItemSignal/Event/Metric/Log
// is present per item (the in-memory oneof).
const (
	fnItemDeltaMs protowire.Number = 1
	fnItemSignal  protowire.Number = 2
	fnItemEvent   protowire.Number = 3
	fnItemMetric  protowire.Number = 4
	fnItemLog     protowire.Number = 5
)

// SignalSample field numbers.
const (
	fnSigPath    protowire.Number = 1
	fnSigPathID  protowire.Number = 2
	fnSigQuality protowire.Number = 3
	fnSigValue   protowire.Number = 4
)

// Event field numbers.
const (
	fnEvtID       protowire.Number = 1
	fnEvtCategory protowire.Number = 2
	fnEvtType     protowire.Number = 3
	fnEvtSeverity protowire.Number = 4
	fnEvtAttrKeys protowire.Number = 5
	fnEvtAttrVals protowire.Number = 6
	fnEvtCtxKeys  protowire.Number = 7
	fnEvtCtxVals  protowire.Number = 8
)

// Metric field numbers.
const (
	fnMetName    protowire.Number = 1
	fnMetKind    protowire.Number = 2
	fnMetGauge   protowire.Number = 3
	fnMetCounter protowire.Number = 4
	fnMetCount   protowire.Number = 5
	fnMetSum     protowire.Number = 6
	fnMetBounds  protowire.Number = 7
	fnMetCounts  protowire.Number = 8
	fnMetLblKeys protowire.Number = 9
	fnMetLblVals protowire.Number = 10
)

// LogEntry field numbers.
const (
	fnLogLevel     protowire.Number = 1
	fnLogComponent protowire.Number = 2
	fnLogMessage   protowire.Number = 3
	fnLogAttrKeys  protowire.Number = 4
	fnLogAttrVals  protowire.Number = 5
	fnLogTraceID   protowire.Number = 6
	fnLogSpanID    protowire.Number = 7
)

// Value field numbers. Kind selects which single payload field is set.
const (
	fnValKind      protowire.Number = 1
	fnValBool      protowire.Number = 2
	fnValInt32     protowire.Number = 3 // widened int8/int16/int32
	fnValInt64     protowire.Number = 4
	fnValUint32    protowire.Number = 5 // widened uint8/uint16/uint32
	fnValUint64    protowire.Number = 6
	fnValFloat32   protowire.Number = 7
	fnValFloat64   protowire.Number = 8
	fnValString    protowire.Number = 9
	fnValArray     protowire.Number = 10 // repeated embedded Value
	fnValStruct    protowire.Number = 11
	fnValStructArr protowire.Number = 12 // repeated embedded Struct
)

// Struct/Field field numbers.
const (
	fnStructTypeName protowire.Number = 1
	fnStructFields   protowire.Number = 2 // repeated embedded Field

	fnFieldName  protowire.Number = 1
	fnFieldValue protowire.Number = 2
)
