// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vehicleedge/telemetry-export/pkg/value"
)

// Fabric signal/actuator message field numbers. These are single-Value,
// path-addressed messages exchanged on the in-vehicle pub/sub fabric, much
// smaller than a TransferBatch, so they get their own minimal framing
// rather than being wrapped in one.
const (
	fnFabricPath  protowire.Number = 1
	fnFabricValue protowire.Number = 2
)

// EncodeFabricValue serializes one (path, Value) pair for publication on a
// fabric topic (signals, actuator target/actual).
func EncodeFabricValue(path string, v value.Value) []byte {
	var out []byte
	out = protowire.AppendTag(out, fnFabricPath, protowire.BytesType)
	out = protowire.AppendString(out, path)

	if valBytes, ok := encodeValue(v, 0); ok {
		out = protowire.AppendTag(out, fnFabricValue, protowire.BytesType)
		out = protowire.AppendBytes(out, valBytes)
	}
	return out
}

// DecodeFabricValue parses a message produced by EncodeFabricValue.
func DecodeFabricValue(data []byte) (path string, v value.Value, ok bool) {
	v = value.Empty()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", value.Value{}, false
		}
		data = data[n:]

		switch num {
		case fnFabricPath:
			s, n, ok2 := consumeString(data, typ)
			if !ok2 {
				return "", value.Value{}, false
			}
			path = s
			data = data[n:]
		case fnFabricValue:
			blob, n, ok2 := consumeBytes(data, typ)
			if !ok2 {
				return "", value.Value{}, false
			}
			decoded, ok2 := decodeValue(blob)
			if ok2 {
				v = decoded
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", value.Value{}, false
			}
			data = data[n:]
		}
	}
	return path, v, true
}
