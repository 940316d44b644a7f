// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeBackend is a minimal in-memory BackendTransport used to exercise the
// interface contract (state machine, callbacks, fail-fast publish)
// without a live NATS server, which is unavailable in this test environment.
type fakeBackend struct {
	contentID uint32
	state     ConnectionState
	published [][]byte
	queue     QueueLevel

	contentCB ContentCallback
	statusCB  ConnectionStatusCallback
	queueCB   QueueStatusCallback

	stats Stats
}

func newFakeBackend(contentID uint32) *fakeBackend {
	return &fakeBackend{contentID: contentID, state: Disconnected}
}

func (f *fakeBackend) transition(s ConnectionState, reason string) {
	f.state = s
	if f.statusCB != nil {
		f.statusCB(s, reason)
	}
}

func (f *fakeBackend) Publish(data []byte, persistence Persistence) (bool, QueueLevel) {
	if f.state != Connected {
		f.stats.MessagesFailed++
		return false, f.queue
	}
	f.published = append(f.published, data)
	f.stats.MessagesSent++
	f.stats.BytesSent += uint64(len(data))
	return true, f.queue
}

func (f *fakeBackend) deliver(contentID uint32, data []byte) {
	if f.contentCB != nil {
		f.contentCB(contentID, data)
	}
}

func TestConnectionStateMachineTransitionsAndFiresCallback(t *testing.T) {
	b := newFakeBackend(42)
	var seen []ConnectionState
	b.statusCB = func(s ConnectionState, reason string) {
		seen = append(seen, s)
		assert.NotEmpty(t, reason)
	}

	b.transition(Connecting, "start requested")
	b.transition(Connected, "connected")
	b.transition(Reconnecting, "disconnected: network blip")
	b.transition(Connected, "reconnected")
	b.transition(Disconnected, "stop requested")

	assert.Equal(t, []ConnectionState{Connecting, Connected, Reconnecting, Connected, Disconnected}, seen)
}

func TestPublishFailsFastWhenDisconnected(t *testing.T) {
	b := newFakeBackend(1)
	ok, _ := b.Publish([]byte("x"), BestEffort)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), b.stats.MessagesFailed)
}

func TestPublishSucceedsWhenConnected(t *testing.T) {
	b := newFakeBackend(1)
	b.transition(Connected, "connected")
	ok, _ := b.Publish([]byte("payload"), Durable)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), b.stats.MessagesSent)
	assert.Equal(t, [][]byte{[]byte("payload")}, b.published)
}

func TestContentCallbackDeliversContentID(t *testing.T) {
	b := newFakeBackend(7)
	var gotID uint32
	var gotData []byte
	b.contentCB = func(contentID uint32, data []byte) {
		gotID, gotData = contentID, data
	}
	b.deliver(7, []byte("hello"))
	assert.Equal(t, uint32(7), gotID)
	assert.Equal(t, []byte("hello"), gotData)
}

func TestQueueLevelStringers(t *testing.T) {
	assert.Equal(t, "LOW", QueueLow.String())
	assert.Equal(t, "HIGH", QueueHigh.String())
	assert.Equal(t, "FULL", QueueFull.String())
}

func TestConnectionStateStringers(t *testing.T) {
	assert.Equal(t, "DISCONNECTED", Disconnected.String())
	assert.Equal(t, "CONNECTING", Connecting.String())
	assert.Equal(t, "CONNECTED", Connected.String())
	assert.Equal(t, "RECONNECTING", Reconnecting.String())
}

func TestNATSBackendTransportTopicMapping(t *testing.T) {
	tr := NewNATSBackendTransport(NATSConfig{
		VehicleID: "veh-1",
		V2CPrefix: "v2c",
		C2VPrefix: "c2v",
		ContentID: 99,
	})
	assert.Equal(t, "v2c.veh-1.99", tr.publishSubject())
	assert.Equal(t, "c2v.veh-1.99", tr.subscribeSubject())
	assert.Equal(t, uint32(99), tr.ContentID())
	assert.Equal(t, Disconnected, tr.ConnectionState())
	assert.False(t, tr.Healthy())
}
