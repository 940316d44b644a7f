// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package exporter implements the unified exporter pipeline: ingest -> batch
// -> compress -> publish, driven by a single background flush worker.
package exporter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vehicleedge/telemetry-export/internal/batch"
	"github.com/vehicleedge/telemetry-export/internal/transport"
	"github.com/vehicleedge/telemetry-export/pkg/compressor"
	"github.com/vehicleedge/telemetry-export/pkg/log"
	"github.com/vehicleedge/telemetry-export/pkg/value"
	"github.com/vehicleedge/telemetry-export/pkg/wire"
)

// Config holds a pipeline's batching, flush, and sink tunables.
type Config struct {
	SourceID      string
	BatchMaxItems int
	BatchMaxBytes int
	BatchTimeout  time.Duration
	Persistence   transport.Persistence
}

// Stats accumulates the pipeline's self-observability counters.
type Stats struct {
	BatchesSent          uint64
	BatchesFailed        uint64
	ItemsIngested        uint64
	ItemsDroppedWireCodec uint64
	AgeDropped           uint64
	BytesBeforeCompress  uint64
	BytesAfterCompress   uint64
}

// CompressionRatio computes BytesAfterCompress/BytesBeforeCompress on demand
// rather than tracking a running average.
func (s Stats) CompressionRatio() float64 {
	if s.BytesBeforeCompress == 0 {
		return 1.0
	}
	return float64(s.BytesAfterCompress) / float64(s.BytesBeforeCompress)
}

// Pipeline orchestrates one source's ingest/batch/compress/publish path with
// a single flush-worker goroutine. The flush worker waits on notify, a
// buffered channel drained via select against a time.Timer, rather than
// sync.Cond.
type Pipeline struct {
	cfg        Config
	builder    *batch.Builder
	compressor compressor.Compressor
	sink       transport.BackendTransport

	notify  chan struct{}
	done    chan struct{}
	running atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

// New constructs a Pipeline. sink and comp are owned exclusively by this
// pipeline for its lifetime.
func New(cfg Config, sink transport.BackendTransport, comp compressor.Compressor) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		builder:    batch.New(cfg.SourceID, cfg.BatchMaxItems),
		compressor: comp,
		sink:       sink,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start opens the transport and launches the flush worker. A second Start
// while already running is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.sink.Start(ctx); err != nil {
		p.running.Store(false)
		return err
	}
	p.done = make(chan struct{})
	go p.run()
	return nil
}

// Stop sets the run flag false, wakes the worker, and waits for it to
// perform its terminal flush and exit.
func (p *Pipeline) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	p.wake()
	<-p.done
	return p.sink.Stop()
}

func (p *Pipeline) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	timer := time.NewTimer(p.cfg.BatchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-p.notify:
			resetTimer(timer, p.cfg.BatchTimeout)
			p.doFlush()
		case <-timer.C:
			timer.Reset(p.cfg.BatchTimeout)
			if p.builder.Ready() {
				p.doFlush()
			}
		}

		if !p.running.Load() {
			p.doFlush() // terminal flush
			return
		}
	}
}

// resetTimer stops t, draining a pending fire if one already landed, then
// rearms it for d. A count/byte-triggered flush must not let the previous
// timer deadline fire immediately afterward.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (p *Pipeline) checkFlushNeeded() {
	if p.builder.Full() || p.builder.EstimatedSize() >= p.cfg.BatchMaxBytes {
		p.wake()
	}
}

func (p *Pipeline) doFlush() {
	if !p.builder.Ready() {
		return
	}
	var wireStats wire.Stats
	data, wireStats := p.builder.Build()
	p.builder.Reset()

	p.statsMu.Lock()
	p.stats.ItemsDroppedWireCodec += wireStats.ItemsDropped
	p.stats.AgeDropped = p.builder.AgeDropped()
	p.stats.BytesBeforeCompress += uint64(len(data))
	p.statsMu.Unlock()

	compressed, err := p.compressor.Compress(data)
	if err != nil {
		log.WarnOnce("exporter-compress-failed", "compression failed, publishing uncompressed:", err)
		compressed = data
	}

	p.statsMu.Lock()
	p.stats.BytesAfterCompress += uint64(len(compressed))
	p.statsMu.Unlock()

	ok, level := p.sink.Publish(compressed, p.cfg.Persistence)

	p.statsMu.Lock()
	if ok {
		p.stats.BatchesSent++
	} else {
		p.stats.BatchesFailed++
	}
	p.statsMu.Unlock()

	if level == transport.QueueFull {
		log.WarnOnce("exporter-queue-full", "backend transport queue full for source", p.cfg.SourceID)
	}
}

// SendSignal ingests one signal sample. Non-blocking beyond the builder
// mutex; silently dropped (uncounted) if the pipeline isn't running.
func (p *Pipeline) SendSignal(tsMs int64, s *value.SignalSample) {
	if !p.running.Load() {
		return
	}
	p.builder.AddSignal(tsMs, s)
	p.statsMu.Lock()
	p.stats.ItemsIngested++
	p.statsMu.Unlock()
	p.checkFlushNeeded()
}

// SendEvent ingests one event record.
func (p *Pipeline) SendEvent(tsMs int64, e *value.Event) {
	if !p.running.Load() {
		return
	}
	p.builder.AddEvent(tsMs, e)
	p.statsMu.Lock()
	p.stats.ItemsIngested++
	p.statsMu.Unlock()
	p.checkFlushNeeded()
}

// SendMetric ingests one metric sample.
func (p *Pipeline) SendMetric(tsMs int64, m *value.MetricSample) {
	if !p.running.Load() {
		return
	}
	p.builder.AddMetric(tsMs, m)
	p.statsMu.Lock()
	p.stats.ItemsIngested++
	p.statsMu.Unlock()
	p.checkFlushNeeded()
}

// SendLog ingests one structured log entry.
func (p *Pipeline) SendLog(tsMs int64, l *value.LogEntry) {
	if !p.running.Load() {
		return
	}
	p.builder.AddLog(tsMs, l)
	p.statsMu.Lock()
	p.stats.ItemsIngested++
	p.statsMu.Unlock()
	p.checkFlushNeeded()
}

// Stats returns a snapshot of the pipeline's counters.
func (p *Pipeline) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}
