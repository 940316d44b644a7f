// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import "context"

// Persistence selects the delivery guarantee requested for one publish.
type Persistence uint8

const (
	BestEffort Persistence = iota
	Volatile
	Durable
)

// QueueLevel hints at transport-level backpressure.
type QueueLevel uint8

const (
	QueueLow QueueLevel = iota
	QueueHigh
	QueueFull
)

func (q QueueLevel) String() string {
	switch q {
	case QueueHigh:
		return "HIGH"
	case QueueFull:
		return "FULL"
	default:
		return "LOW"
	}
}

// ConnectionState is the backend transport's connection state machine (spec
// §4.4): Disconnected -> Connecting -> Connected -> Reconnecting -> Connected,
// with stop() returning to Disconnected from any state.
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case Reconnecting:
		return "RECONNECTING"
	default:
		return "DISCONNECTED"
	}
}

// ContentCallback receives a (content_id, payload) pair delivered by the peer.
type ContentCallback func(contentID uint32, data []byte)

// ConnectionStatusCallback fires on every state transition, carrying a
// human-readable reason. It must never be invoked while the caller holds
// the transport's own mutex.
type ConnectionStatusCallback func(state ConnectionState, reason string)

// QueueStatusCallback fires whenever the transport's queue-depth hint
// crosses a threshold.
type QueueStatusCallback func(level QueueLevel)

// BackendTransport is the bidirectional, content-addressed transport bound
// at construction to exactly one 32-bit content id and one logical endpoint.
type BackendTransport interface {
	Start(ctx context.Context) error
	Stop() error

	Publish(data []byte, persistence Persistence) (ok bool, level QueueLevel)

	OnContent(cb ContentCallback)
	OnConnectionStatus(cb ConnectionStatusCallback)
	OnQueueStatus(cb QueueStatusCallback)

	ContentID() uint32
	ConnectionState() ConnectionState
	QueueFull() bool
	Healthy() bool
	Stats() Stats
}
