// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package batch implements the unified batch builder: accumulation of
// heterogeneous ingestable records into one TransferBatch, copying each
// record (shallowly; see Builder) at add time.
package batch

import (
	"sync"

	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

// roughItemOverhead is a conservative per-item byte estimate used by
// estimatedSize to drive the byte-threshold flush trigger without
// serializing on every add; true encoded size is only known at Build.
const roughItemOverhead = 16

// Builder accumulates records for one source into a single TransferBatch.
// Each Add stores a shallow copy of the record under lock: the record struct
// is copied, but its maps, slices and Value payload stay shared with the
// caller, so later changes the caller makes to them show up in the built
// batch.
type Builder struct {
	sourceID string
	maxItems int

	mu         sync.Mutex
	items      []wire.TransferItem
	haveBase   bool
	baseMs     int64
	estSize    int
	seq        uint32
	ageDropped uint64
}

// New constructs a Builder for sourceID, flushing at maxItems items at the
// latest (the count-full trigger is evaluated by the caller via Full).
func New(sourceID string, maxItems int) *Builder {
	return &Builder{sourceID: sourceID, maxItems: maxItems}
}

func (b *Builder) addLocked(kind wire.ItemKind, tsMs int64, sig *value.SignalSample, ev *value.Event, met *value.MetricSample, lg *value.LogEntry) {
	if !b.haveBase {
		b.baseMs = tsMs
		b.haveBase = true
	}

	var deltaMs uint32
	if tsMs < b.baseMs {
		// Record arrived older than the batch base: clamp to delta 0 and
		// count it rather than reject it.
		b.ageDropped++
		deltaMs = 0
	} else {
		delta := tsMs - b.baseMs
		if delta > 0xFFFFFFFF {
			delta = 0xFFFFFFFF
		}
		deltaMs = uint32(delta)
	}

	item := wire.TransferItem{Kind: kind, TimestampDeltaMs: deltaMs, Signal: sig, Event: ev, Metric: met, Log: lg}
	b.items = append(b.items, item)
	b.estSize += roughItemOverhead + estimateRecordSize(kind, sig, ev, met, lg)
}

// AddSignal appends a signal sample. Record timestamps are in milliseconds
// since the Unix epoch.
func (b *Builder) AddSignal(tsMs int64, s *value.SignalSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *s
	b.addLocked(wire.ItemSignal, tsMs, &cp, nil, nil, nil)
}

// AddEvent appends an event record.
func (b *Builder) AddEvent(tsMs int64, e *value.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *e
	b.addLocked(wire.ItemEvent, tsMs, nil, &cp, nil, nil)
}

// AddMetric appends a metric sample.
func (b *Builder) AddMetric(tsMs int64, m *value.MetricSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *m
	b.addLocked(wire.ItemMetric, tsMs, nil, nil, &cp, nil)
}

// AddLog appends a structured log entry.
func (b *Builder) AddLog(tsMs int64, l *value.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *l
	b.addLocked(wire.ItemLog, tsMs, nil, nil, nil, &cp)
}

// Size reports the number of accumulated items.
func (b *Builder) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Ready reports whether the batch is non-empty.
func (b *Builder) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items) > 0
}

// Full reports whether the batch has reached its configured item ceiling.
func (b *Builder) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxItems > 0 && len(b.items) >= b.maxItems
}

// EstimatedSize returns the running byte-size estimate used to drive the
// byte-threshold flush trigger without paying for a full serialization pass
// on every add.
func (b *Builder) EstimatedSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.estSize
}

// AgeDropped reports the cumulative count of records clamped to delta 0
// because they arrived older than the batch's base timestamp.
func (b *Builder) AgeDropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ageDropped
}

// Build serializes the accumulated batch via the wire codec and returns the
// encoded bytes together with the encoder's drop statistics. The returned
// slice references no state inside the builder, so the builder is safe to
// Reset and reuse immediately after this call returns.
func (b *Builder) Build() ([]byte, wire.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tb := &wire.TransferBatch{
		SourceID:        b.sourceID,
		Sequence:        b.seq,
		BaseTimestampMs: b.baseMs,
		Items:           append([]wire.TransferItem(nil), b.items...),
	}
	enc := &wire.Encoder{}
	data := enc.EncodeBatch(tb)
	b.seq++
	return data, enc.Stats
}

// Reset clears accumulated state, ready for the next batch. It is invoked
// explicitly by the caller after Build, or implicitly is safe to call at any
// time (e.g. before the first Add of a new cycle).
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
	b.haveBase = false
	b.baseMs = 0
	b.estSize = 0
}

func estimateRecordSize(kind wire.ItemKind, sig *value.SignalSample, ev *value.Event, met *value.MetricSample, lg *value.LogEntry) int {
	switch kind {
	case wire.ItemSignal:
		if sig == nil {
			return 0
		}
		return len(sig.Path) + 16
	case wire.ItemEvent:
		if ev == nil {
			return 0
		}
		n := len(ev.EventID) + len(ev.Category) + len(ev.EventType)
		for k, v := range ev.Attributes {
			n += len(k) + len(v)
		}
		for k, v := range ev.Context {
			n += len(k) + len(v)
		}
		return n
	case wire.ItemMetric:
		if met == nil {
			return 0
		}
		n := len(met.Name) + 16*(1+len(met.Buckets))
		for k, v := range met.Labels {
			n += len(k) + len(v)
		}
		return n
	case wire.ItemLog:
		if lg == nil {
			return 0
		}
		n := len(lg.Component) + len(lg.Message) + len(lg.TraceID) + len(lg.SpanID)
		for k, v := range lg.Attributes {
			n += len(k) + len(v)
		}
		return n
	default:
		return 0
	}
}
