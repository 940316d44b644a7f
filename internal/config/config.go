// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the startup configuration bundle:
// read file, schema-validate, strictly decode, fatal-exit on any failure.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// Bundle is the full startup configuration.
type Bundle struct {
	// Transport endpoint parameters.
	BrokerHost   string `json:"broker_host"`
	BrokerPort   int    `json:"broker_port"`
	ClientID     string `json:"client_id"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	QoS          int    `json:"qos"`
	KeepaliveSec int    `json:"keepalive_sec"`

	// Bidirectional transport binding.
	VehicleID string `json:"vehicle_id"`
	ContentID uint32 `json:"content_id"`
	V2CPrefix string `json:"v2c_prefix"`
	C2VPrefix string `json:"c2v_prefix"`

	// Flush triggers.
	BatchMaxItems int    `json:"batch_max_items"`
	BatchMaxBytes int    `json:"batch_max_bytes"`
	BatchTimeout  string `json:"batch_timeout"` // parsable by time.ParseDuration

	// Compressor selection. CompressionLevel is range-checked by the schema
	// but not passed to the compressor, which always uses zstd.SpeedDefault.
	CompressionType  string `json:"compression_type"`
	CompressionLevel int    `json:"compression_level"`

	// Identifier injected as label/attribute key "service".
	SourceID string `json:"source_id"`

	// Fabric topic names. The fabric package publishes and subscribes on its
	// fixed topic constants and does not read these fields.
	DDSSignalsTopic        string `json:"dds_signals_topic"`
	DDSActuatorTargetTopic string `json:"dds_actuator_target_topic"`
	DDSActuatorActualTopic string `json:"dds_actuator_actual_topic"`

	// Path prefix for schema discovery (bridge). cmd/vep-bridge takes its
	// discovery prefix from its --prefix flag and does not read this field.
	SignalPattern string `json:"signal_pattern"`

	// Real-time transport selection (bridge).
	RTTransportType     string `json:"rt_transport_type"` // logging, loopback, or udp
	LoopbackDelayMs     int    `json:"loopback_delay_ms"`
	UDPTargetHost       string `json:"udp_target_host"`
	UDPTargetPort       int    `json:"udp_target_port"`
	UDPListenPort       int    `json:"udp_listen_port"`
	MulticastInterface  string `json:"multicast_interface"`
	ReadyTimeoutSeconds int    `json:"ready_timeout_seconds"`

	// Ambient (self-observability HTTP server, log verbosity).
	Addr     string `json:"addr"`
	LogLevel string `json:"log_level"`
}

// Keys holds the process-wide configuration, populated by Init.
var Keys = defaults()

// defaults are the values a deployment may safely leave unset.
func defaults() Bundle {
	return Bundle{
		BrokerHost:             "127.0.0.1",
		BrokerPort:             4222,
		ClientID:               "vehicle-edge-exporter",
		QoS:                    1,
		KeepaliveSec:           30,
		V2CPrefix:              "v2c",
		C2VPrefix:              "c2v",
		BatchMaxItems:          500,
		BatchMaxBytes:          64 * 1024,
		BatchTimeout:           "500ms",
		CompressionType:        "zstd",
		CompressionLevel:       3,
		DDSSignalsTopic:        "rt.vss.signals",
		DDSActuatorTargetTopic: "rt.vss.actuators.target",
		DDSActuatorActualTopic: "rt.vss.actuators.actual",
		RTTransportType:        "logging",
		LoopbackDelayMs:        5,
		UDPTargetHost:          "127.0.0.1",
		UDPTargetPort:          9101,
		UDPListenPort:          9100,
		ReadyTimeoutSeconds:    30,
		Addr:                   ":8090",
		LogLevel:               "info",
	}
}

// BatchTimeoutDuration parses BatchTimeout, falling back to 500ms if it was
// left empty. Init rejects anything present-but-unparsable, so the fallback
// only ever covers the zero-value case.
func (b Bundle) BatchTimeoutDuration() time.Duration {
	if b.BatchTimeout == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(b.BatchTimeout)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Init reads flagConfigFile, schema-validates it, then strictly decodes it
// over Keys's defaults. Any failure beyond "file absent" is fatal: Init never
// returns an error to its caller, it exits the process directly, reserving
// process-exit for startup/configuration failures only.
func Init(flagConfigFile string) {
	if flagConfigFile == "" {
		return
	}

	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Fatalf("config: reading %q: %v", flagConfigFile, err)
	}

	Validate(configSchema, json.RawMessage(raw))

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("config: decoding %q: %v", flagConfigFile, err)
	}

	if Keys.CompressionType != "zstd" && Keys.CompressionType != "none" {
		log.Fatalf("config: compression_type must be one of zstd|none, got %q", Keys.CompressionType)
	}
	if Keys.VehicleID == "" {
		log.Fatalf("config: vehicle_id must not be empty")
	}
	if Keys.SourceID == "" {
		log.Fatalf("config: source_id must not be empty")
	}
	if _, err := time.ParseDuration(Keys.BatchTimeout); err != nil {
		log.Fatalf("config: batch_timeout %q is not a valid duration: %v", Keys.BatchTimeout, err)
	}
	switch Keys.RTTransportType {
	case "logging", "loopback", "udp":
	default:
		log.Fatalf("config: rt_transport_type must be one of logging|loopback|udp, got %q", Keys.RTTransportType)
	}
}
