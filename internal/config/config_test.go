// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Keys = defaults()
	Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if Keys.CompressionType != "zstd" {
		t.Fatalf("expected defaults preserved, got %+v", Keys)
	}
}

func TestInitEmptyPathKeepsDefaults(t *testing.T) {
	Keys = defaults()
	Init("")
	if Keys.BatchMaxItems != 500 {
		t.Fatalf("expected default batch_max_items, got %d", Keys.BatchMaxItems)
	}
}

func TestBatchTimeoutDurationParsesOverride(t *testing.T) {
	b := defaults()
	b.BatchTimeout = "250ms"
	if got := b.BatchTimeoutDuration(); got.String() != "250ms" {
		t.Fatalf("expected 250ms, got %v", got)
	}
}

func TestBatchTimeoutDurationFallsBackOnEmpty(t *testing.T) {
	b := defaults()
	b.BatchTimeout = ""
	if got := b.BatchTimeoutDuration(); got.String() != "500ms" {
		t.Fatalf("expected 500ms fallback, got %v", got)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestInitDecodesValidConfig(t *testing.T) {
	Keys = defaults()
	path := writeConfigFile(t, `{
		"vehicle_id": "vin-123",
		"content_id": 7,
		"source_id": "probe",
		"compression_type": "none",
		"batch_timeout": "750ms"
	}`)
	Init(path)
	if Keys.VehicleID != "vin-123" || Keys.ContentID != 7 || Keys.SourceID != "probe" {
		t.Fatalf("unexpected decoded config: %+v", Keys)
	}
	if Keys.CompressionType != "none" {
		t.Fatalf("expected compression_type override, got %q", Keys.CompressionType)
	}
}
