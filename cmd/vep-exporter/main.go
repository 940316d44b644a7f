// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vep-exporter runs the unified exporter pipeline over a NATS-backed
// BackendTransport, together with the periodic stats reporter and the
// /healthz, /metrics and /stats HTTP surface. It subscribes to no record
// source itself: records enter the pipeline only through the pipeline's Send
// methods, which this command does not call.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/vehicleedge/telemetry-export/internal/config"
	"github.com/vehicleedge/telemetry-export/internal/exporter"
	"github.com/vehicleedge/telemetry-export/internal/httpapi"
	"github.com/vehicleedge/telemetry-export/internal/selfmetrics"
	"github.com/vehicleedge/telemetry-export/internal/statsreporter"
	"github.com/vehicleedge/telemetry-export/internal/transport"
	"github.com/vehicleedge/telemetry-export/pkg/compressor"
	"github.com/vehicleedge/telemetry-export/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		flagConfigFile = flag.String("config", "./config.json", "Path to the configuration file")
		flagGops       = flag.Bool("gops", false, "Listen via github.com/google/gops/agent (for debugging)")
		flagLogLevel   = flag.String("loglevel", "info", "debug, info, warn, or err")
	)
	flag.Parse()

	log.SetLogLevel(*flagLogLevel)

	if *flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	config.Init(*flagConfigFile)
	cfg := config.Keys

	backend := transport.NewNATSBackendTransport(transport.NATSConfig{
		Address:   fmt.Sprintf("nats://%s:%d", cfg.BrokerHost, cfg.BrokerPort),
		Username:  cfg.Username,
		Password:  cfg.Password,
		VehicleID: cfg.VehicleID,
		V2CPrefix: cfg.V2CPrefix,
		C2VPrefix: cfg.C2VPrefix,
		ContentID: cfg.ContentID,
	})

	comp := compressor.New(compressor.ParseType(cfg.CompressionType))

	pipeline := exporter.New(exporter.Config{
		SourceID:      cfg.SourceID,
		BatchMaxItems: cfg.BatchMaxItems,
		BatchMaxBytes: cfg.BatchMaxBytes,
		BatchTimeout:  cfg.BatchTimeoutDuration(),
		Persistence:   transport.Volatile,
	}, backend, comp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Start(ctx); err != nil {
		log.Fatalf("exporter: failed to start pipeline: %s", err.Error())
	}

	reporter, err := statsreporter.New(pipeline, backend, comp)
	if err != nil {
		log.Fatalf("exporter: failed to create stats reporter: %s", err.Error())
	}
	if err := reporter.Start(30 * time.Second); err != nil {
		log.Fatalf("exporter: failed to start stats reporter: %s", err.Error())
	}

	selfmetrics.New(prometheus.DefaultRegisterer, pipeline, backend, comp)
	api := httpapi.New(pipeline, backend, comp)
	httpServer := &http.Server{Addr: cfg.Addr, Handler: api.Handler()}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("exporter: http server failed: %s", err.Error())
		}
	}()

	log.Infof("exporter: running, source_id=%s vehicle_id=%s content_id=%d addr=%s", cfg.SourceID, cfg.VehicleID, cfg.ContentID, cfg.Addr)

	<-ctx.Done()
	log.Info("exporter: shutting down")

	_ = httpServer.Shutdown(context.Background())
	_ = reporter.Stop()
	if err := pipeline.Stop(); err != nil {
		log.Errorf("exporter: error stopping pipeline: %s", err.Error())
	}
	os.Exit(0)
}
