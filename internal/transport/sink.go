// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport implements the two layered transport abstractions used
// by the export pipeline: the one-way Sink used by the legacy per-kind
// pipeline, and the bidirectional, content-addressed BackendTransport used
// by the unified exporter pipeline.
package transport

import "context"

// Sink is a one-way, topic-addressed publish capability used by the legacy
// per-kind pipeline (one topic per record kind).
type Sink interface {
	Start(ctx context.Context) error
	Stop() error
	Publish(topic string, data []byte) bool
	Healthy() bool
	Stats() Stats
	Name() string
}

// Stats accumulates the cumulative counters every transport implementation
// exposes for self-observability.
type Stats struct {
	MessagesSent     uint64
	MessagesFailed   uint64
	BytesSent        uint64
	MessagesReceived uint64
	BytesReceived    uint64
	LastSendNS       int64
	LastReceiveNS    int64
}
