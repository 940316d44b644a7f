// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compressor

import "sync/atomic"

// noneCompressor is the identity transform: it exists so callers can always
// hold a Compressor value without special-casing the disabled state.
type noneCompressor struct {
	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
}

func newNone() *noneCompressor { return &noneCompressor{} }

func (c *noneCompressor) Type() Type { return TypeNone }

func (c *noneCompressor) Compress(data []byte) ([]byte, error) {
	c.bytesIn.Add(uint64(len(data)))
	c.bytesOut.Add(uint64(len(data)))
	return data, nil
}

func (c *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (c *noneCompressor) Stats() Stats {
	return Stats{BytesIn: c.bytesIn.Load(), BytesOut: c.bytesOut.Load()}
}
