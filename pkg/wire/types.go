// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import "github.com/vehicleedge/telemetry-export/pkg/value"

// ItemKind tags which ingestable record a TransferItem carries.
type ItemKind uint8

const (
	ItemSignal ItemKind = iota
	ItemEvent
	ItemMetric
	ItemLog
)

// TransferItem is the wire-adjacent form of one ingestable record: one of
// the four kinds, plus its millisecond delta against the enclosing batch's
// base timestamp.
type TransferItem struct {
	Kind            ItemKind
	TimestampDeltaMs uint32

	Signal *value.SignalSample // set iff Kind == ItemSignal
	Event  *value.Event        // set iff Kind == ItemEvent
	Metric *value.MetricSample // set iff Kind == ItemMetric
	Log    *value.LogEntry     // set iff Kind == ItemLog

	// AbsoluteMs is populated by the decoder only (base + delta); zero on
	// items built by the encoder/batch builder, which carry the delta and
	// rely on the enclosing TransferBatch.BaseTimestampMs instead.
	AbsoluteMs int64
}

// TransferBatch is the unit of transmission: source, monotonic batch
// sequence, base timestamp, and an arrival-ordered item list.
type TransferBatch struct {
	SourceID        string
	Sequence        uint32
	BaseTimestampMs int64
	Items           []TransferItem
}

// Stats accumulates the counters the encode/decode contracts require:
// unknown-variant-dropped and malformed-frame-dropped counts.
type Stats struct {
	ItemsDropped    uint64 // single item skipped: nil payload, unsupported Value, undecodable item, or wrong kind in DecodeLegacyBatch
	BatchesRejected uint64 // malformed outer frame, whole batch dropped
	AgeDropped      uint64 // not set by Encoder or Decoder; batch.Builder.AgeDropped counts records clamped to delta 0
}
