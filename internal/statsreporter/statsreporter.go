// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statsreporter periodically logs a one-line summary of the
// pipeline, transport, and compressor counters, grounded on
// internal/taskManager's gocron-backed periodic services (e.g.
// commitJobService.go's DurationJob registration).
package statsreporter

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/vehicleedge/telemetry-export/internal/exporter"
	"github.com/vehicleedge/telemetry-export/internal/transport"
	"github.com/vehicleedge/telemetry-export/pkg/compressor"
	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// Reporter owns the scheduler and the components it summarizes.
type Reporter struct {
	scheduler gocron.Scheduler
	pipeline  *exporter.Pipeline
	backend   transport.BackendTransport
	comp      compressor.Compressor
}

// New wires a reporter over pipeline/backend/comp. backend and comp may be
// nil when a deployment doesn't wire the unified pipeline (e.g. the legacy
// per-kind-only path); their stats are skipped in that case.
func New(pipeline *exporter.Pipeline, backend transport.BackendTransport, comp compressor.Compressor) (*Reporter, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Reporter{scheduler: s, pipeline: pipeline, backend: backend, comp: comp}, nil
}

// Start registers the periodic summary job at the given interval and starts
// the scheduler.
func (r *Reporter) Start(interval time.Duration) error {
	if _, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.logSummary),
	); err != nil {
		return err
	}
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for any in-flight job.
func (r *Reporter) Stop() error {
	return r.scheduler.Shutdown()
}

func (r *Reporter) logSummary() {
	if r.pipeline != nil {
		ps := r.pipeline.Stats()
		log.Infof("stats: pipeline batches_sent=%d batches_failed=%d items_ingested=%d items_dropped_wire=%d age_dropped=%d compression_ratio=%.3f",
			ps.BatchesSent, ps.BatchesFailed, ps.ItemsIngested, ps.ItemsDroppedWireCodec, ps.AgeDropped, ps.CompressionRatio())
	}
	if r.backend != nil {
		ts := r.backend.Stats()
		log.Infof("stats: transport state=%s messages_sent=%d messages_failed=%d bytes_sent=%d messages_received=%d",
			r.backend.ConnectionState(), ts.MessagesSent, ts.MessagesFailed, ts.BytesSent, ts.MessagesReceived)
	}
	if r.comp != nil {
		cs := r.comp.Stats()
		log.Infof("stats: compressor type=%d bytes_in=%d bytes_out=%d ratio=%.3f",
			r.comp.Type(), cs.BytesIn, cs.BytesOut, cs.Ratio())
	}
}
