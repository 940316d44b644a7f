// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compressor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeZstd, ParseType("zstd"))
	assert.Equal(t, TypeZstd, ParseType(" ZSTD "))
	assert.Equal(t, TypeNone, ParseType("none"))
	assert.Equal(t, TypeNone, ParseType("bogus"))
	assert.Equal(t, TypeNone, ParseType(""))
}

func TestNoneRoundTrip(t *testing.T) {
	c := New(TypeNone)
	payload := []byte("hello telemetry")
	out, err := c.Compress(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	back, err := c.Decompress(out)
	require.NoError(t, err)
	assert.Equal(t, payload, back)
}

func TestZstdRoundTrip(t *testing.T) {
	c := New(TypeZstd)
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 17)
	}
	out, err := c.Compress(payload)
	require.NoError(t, err)
	assert.Less(t, len(out), len(payload), "repetitive payload should shrink under zstd")

	back, err := c.Decompress(out)
	require.NoError(t, err)
	assert.Equal(t, payload, back)

	stats := c.Stats()
	assert.Equal(t, uint64(len(payload)), stats.BytesIn)
	assert.Less(t, stats.Ratio(), 1.0)
}

func TestZstdEmptyPayload(t *testing.T) {
	c := New(TypeZstd)
	out, err := c.Compress(nil)
	require.NoError(t, err)
	back, err := c.Decompress(out)
	require.NoError(t, err)
	assert.Empty(t, back)
}
