// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package exporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehicleedge/telemetry-export/internal/transport"
	"github.com/vehicleedge/telemetry-export/pkg/compressor"
	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

// memSink is an in-process BackendTransport recording every published
// payload, used so pipeline tests never touch a real network.
type memSink struct {
	mu        sync.Mutex
	published [][]byte
	started   bool
}

func (m *memSink) Start(_ context.Context) error { m.started = true; return nil }
func (m *memSink) Stop() error                   { m.started = false; return nil }
func (m *memSink) Publish(data []byte, _ transport.Persistence) (bool, transport.QueueLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, append([]byte(nil), data...))
	return true, transport.QueueLow
}
func (m *memSink) OnContent(transport.ContentCallback)                 {}
func (m *memSink) OnConnectionStatus(transport.ConnectionStatusCallback) {}
func (m *memSink) OnQueueStatus(transport.QueueStatusCallback)          {}
func (m *memSink) ContentID() uint32                                    { return 1 }
func (m *memSink) ConnectionState() transport.ConnectionState           { return transport.Connected }
func (m *memSink) QueueFull() bool                                      { return false }
func (m *memSink) Healthy() bool                                        { return true }
func (m *memSink) Stats() transport.Stats                               { return transport.Stats{} }

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func (m *memSink) last() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published[len(m.published)-1]
}

func newTestPipeline(cfg Config) (*Pipeline, *memSink) {
	sink := &memSink{}
	p := New(cfg, sink, compressor.New(compressor.TypeNone))
	return p, sink
}

func TestPipelineCountTriggeredFlush(t *testing.T) {
	cfg := Config{SourceID: "probe", BatchMaxItems: 2, BatchMaxBytes: 1 << 20, BatchTimeout: time.Hour}
	p, sink := newTestPipeline(cfg)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	p.SendSignal(0, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	p.SendSignal(0, &value.SignalSample{Path: "b", Val: value.Bool(true)})

	require.Eventually(t, func() bool { return sink.count() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestPipelineTimerTriggeredFlush(t *testing.T) {
	cfg := Config{SourceID: "probe", BatchMaxItems: 1000, BatchMaxBytes: 1 << 20, BatchTimeout: 20 * time.Millisecond}
	p, sink := newTestPipeline(cfg)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	p.SendSignal(0, &value.SignalSample{Path: "a", Val: value.Bool(true)})

	require.Eventually(t, func() bool { return sink.count() >= 1 }, time.Second, 5*time.Millisecond)

	dec := &wire.Decoder{}
	got, err := dec.DecodeBatch(sink.last())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
}

func TestPipelineTerminalFlushOnStop(t *testing.T) {
	cfg := Config{SourceID: "probe", BatchMaxItems: 1000, BatchMaxBytes: 1 << 20, BatchTimeout: time.Hour}
	p, sink := newTestPipeline(cfg)
	require.NoError(t, p.Start(context.Background()))

	p.SendSignal(0, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	require.NoError(t, p.Stop())

	assert.Equal(t, 1, sink.count())
}

func TestPipelineDropsIngestionWhenNotRunning(t *testing.T) {
	cfg := Config{SourceID: "probe", BatchMaxItems: 1000, BatchMaxBytes: 1 << 20, BatchTimeout: time.Hour}
	p, _ := newTestPipeline(cfg)
	p.SendSignal(0, &value.SignalSample{Path: "a", Val: value.Bool(true)})
	assert.Zero(t, p.Stats().ItemsIngested)
}

func TestPipelineSecondStartIsIdempotent(t *testing.T) {
	cfg := Config{SourceID: "probe", BatchMaxItems: 1000, BatchMaxBytes: 1 << 20, BatchTimeout: time.Hour}
	p, _ := newTestPipeline(cfg)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())
}

func TestPipelineCompressionRatioStats(t *testing.T) {
	s := Stats{BytesBeforeCompress: 100, BytesAfterCompress: 40}
	assert.InDelta(t, 0.4, s.CompressionRatio(), 1e-9)
	assert.Equal(t, 1.0, Stats{}.CompressionRatio())
}
