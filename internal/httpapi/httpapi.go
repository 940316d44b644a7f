// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package httpapi exposes the process's self-observability surface:
// /healthz, /metrics (Prometheus), and /stats (a JSON snapshot), served off
// a gorilla/mux router.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vehicleedge/telemetry-export/internal/exporter"
	"github.com/vehicleedge/telemetry-export/internal/transport"
	"github.com/vehicleedge/telemetry-export/pkg/compressor"
)

// Server wraps the health/metrics/stats router.
type Server struct {
	router *mux.Router

	pipeline *exporter.Pipeline
	backend  transport.BackendTransport
	comp     compressor.Compressor
}

// New builds a Server. pipeline/backend/comp may be nil; /stats then omits
// the corresponding section.
func New(pipeline *exporter.Pipeline, backend transport.BackendTransport, comp compressor.Compressor) *Server {
	s := &Server{router: mux.NewRouter(), pipeline: pipeline, backend: backend, comp: comp}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

// Handler returns the root http.Handler, for use with http.Server or tests.
func (s *Server) Handler() http.Handler { return s.router }

// handleHealthz reports 200 only when the backend transport (if any) is
// Healthy(); a pipeline wired without a transport always reports healthy.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.backend != nil && !s.backend.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statsSnapshot struct {
	Pipeline  *exporter.Stats    `json:"pipeline,omitempty"`
	Transport *transport.Stats   `json:"transport,omitempty"`
	Compressor *compressor.Stats `json:"compressor,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var snap statsSnapshot
	if s.pipeline != nil {
		ps := s.pipeline.Stats()
		snap.Pipeline = &ps
	}
	if s.backend != nil {
		ts := s.backend.Stats()
		snap.Transport = &ts
	}
	if s.comp != nil {
		cs := s.comp.Stats()
		snap.Compressor = &cs
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}
