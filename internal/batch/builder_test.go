// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

func TestBuilderArrivalOrderAndBaseTimestamp(t *testing.T) {
	b := New("probe", 100)
	assert.False(t, b.Ready())

	b.AddSignal(1_000_000, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	b.AddEvent(1_000_100, &value.Event{EventID: "e1"})
	b.AddMetric(1_000_250, &value.MetricSample{Name: "m1", Kind: value.MetricCounter, CounterValue: 1})

	assert.True(t, b.Ready())
	assert.Equal(t, 3, b.Size())

	data, stats := b.Build()
	assert.Zero(t, stats.ItemsDropped)

	dec := &wire.Decoder{}
	got, err := dec.DecodeBatch(data)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	assert.Equal(t, int64(1_000_000), got.BaseTimestampMs)
	assert.Equal(t, wire.ItemSignal, got.Items[0].Kind)
	assert.Equal(t, wire.ItemEvent, got.Items[1].Kind)
	assert.Equal(t, wire.ItemMetric, got.Items[2].Kind)
	assert.Equal(t, uint32(0), got.Items[0].TimestampDeltaMs)
	assert.Equal(t, uint32(100), got.Items[1].TimestampDeltaMs)
	assert.Equal(t, uint32(250), got.Items[2].TimestampDeltaMs)
}

func TestBuilderClampsRecordsOlderThanBase(t *testing.T) {
	b := New("probe", 100)
	b.AddSignal(1_000_000, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	b.AddSignal(999_000, &value.SignalSample{Path: "b", Val: value.Bool(false)}) // older than base

	assert.Equal(t, uint64(1), b.AgeDropped())

	data, _ := b.Build()
	dec := &wire.Decoder{}
	got, err := dec.DecodeBatch(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.Items[1].TimestampDeltaMs)
}

func TestBuilderFullAndReset(t *testing.T) {
	b := New("probe", 2)
	assert.False(t, b.Full())
	b.AddSignal(0, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	assert.False(t, b.Full())
	b.AddSignal(0, &value.SignalSample{Path: "b", Val: value.Bool(true)})
	assert.True(t, b.Full())

	b.Reset()
	assert.False(t, b.Ready())
	assert.False(t, b.Full())
	assert.Equal(t, 0, b.EstimatedSize())
}

func TestBuilderReusableAfterBuild(t *testing.T) {
	b := New("probe", 100)
	b.AddSignal(0, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	first, _ := b.Build()
	b.Reset()

	b.AddSignal(0, &value.SignalSample{Path: "b", Val: value.Bool(false)})
	second, _ := b.Build()

	dec := &wire.Decoder{}
	firstBatch, err := dec.DecodeBatch(first)
	require.NoError(t, err)
	secondBatch, err := dec.DecodeBatch(second)
	require.NoError(t, err)

	assert.Equal(t, "a", firstBatch.Items[0].Signal.Path)
	assert.Equal(t, "b", secondBatch.Items[0].Signal.Path)
	assert.Equal(t, uint32(0), firstBatch.Sequence)
	assert.Equal(t, uint32(1), secondBatch.Sequence)
}

func TestEstimatedSizeGrowsWithAdds(t *testing.T) {
	b := New("probe", 1000)
	assert.Equal(t, 0, b.EstimatedSize())
	b.AddSignal(0, &value.SignalSample{Path: "Vehicle.Speed", Val: value.Float64(1)})
	assert.Positive(t, b.EstimatedSize())
}
