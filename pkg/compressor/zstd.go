// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compressor

import (
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// zstdCompressor wraps a shared zstd encoder/decoder pair. Construction of
// the underlying codecs is deferred to first use and guarded by initOnce so
// New(TypeZstd) itself never fails.
type zstdCompressor struct {
	initOnce sync.Once
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	initErr  error

	bytesIn        atomic.Uint64
	bytesOut       atomic.Uint64
	failedFallback atomic.Uint64
}

func newZstd() *zstdCompressor { return &zstdCompressor{} }

func (c *zstdCompressor) Type() Type { return TypeZstd }

func (c *zstdCompressor) init() {
	c.initOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			c.initErr = err
			return
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			c.initErr = err
			return
		}
		c.enc, c.dec = enc, dec
	})
}

// Compress zstd-encodes data. Per spec, a failed compression attempt falls
// back to the original uncompressed bytes rather than propagating an error
// up through the exporter pipeline; FailedFallback is incremented and the
// failure is logged through log.WarnOnce, at most once per 30s window, so it
// is visible but not noisy.
func (c *zstdCompressor) Compress(data []byte) ([]byte, error) {
	c.init()
	c.bytesIn.Add(uint64(len(data)))
	if c.initErr != nil {
		c.failedFallback.Add(1)
		log.WarnOnce("zstd-compressor-init", "zstd compressor unavailable, falling back to uncompressed:", c.initErr)
		c.bytesOut.Add(uint64(len(data)))
		return data, nil
	}

	out := c.enc.EncodeAll(data, make([]byte, 0, len(data)+64))
	c.bytesOut.Add(uint64(len(out)))
	return out, nil
}

func (c *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	c.init()
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.dec.DecodeAll(data, nil)
}

func (c *zstdCompressor) Stats() Stats {
	return Stats{
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		FailedFallback: c.failedFallback.Load(),
	}
}
