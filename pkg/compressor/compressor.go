// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package compressor implements the pluggable batch-payload compression
// stage sitting between the wire codec and the backend transport.
package compressor

import "strings"

// Type selects which compression algorithm a Compressor implements.
type Type uint8

const (
	TypeNone Type = iota
	TypeZstd
)

// ParseType maps a case-insensitive configuration string to a Type. Unknown
// strings resolve to TypeNone, matching the "fail open to uncompressed"
// posture used throughout this component.
func ParseType(s string) Type {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ZSTD":
		return TypeZstd
	default:
		return TypeNone
	}
}

func (t Type) String() string {
	switch t {
	case TypeZstd:
		return "ZSTD"
	default:
		return "NONE"
	}
}

// Stats accumulates counters a Compressor exposes for self-observability.
type Stats struct {
	BytesIn        uint64
	BytesOut       uint64
	FailedFallback uint64 // compress attempts that fell back to uncompressed
}

// Ratio reports BytesOut/BytesIn, or 1.0 when nothing has been compressed
// yet, avoiding a divide-by-zero for freshly constructed compressors.
func (s Stats) Ratio() float64 {
	if s.BytesIn == 0 {
		return 1.0
	}
	return float64(s.BytesOut) / float64(s.BytesIn)
}

// Compressor transforms batch payloads before they reach the transport, and
// reverses the transform on ingest. Implementations must be safe for
// concurrent use by multiple exporter pipeline instances sharing a process.
type Compressor interface {
	Type() Type
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Stats() Stats
}

// New constructs the Compressor for t. TypeNone never fails; TypeZstd
// constructs a klauspost/compress/zstd-backed implementation lazily
// initialized on first use.
func New(t Type) Compressor {
	switch t {
	case TypeZstd:
		return newZstd()
	default:
		return newNone()
	}
}
