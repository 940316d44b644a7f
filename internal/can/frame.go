// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package can

import "sync"

// standardIDMax is the highest 11-bit CAN identifier; anything above it must
// be sent as an extended (29-bit) frame.
const standardIDMax = 0x7FF

// Frame is one outgoing CAN frame, built up by packing one or more signals
// sharing an arbitration id into the same byte buffer.
type Frame struct {
	ArbitrationID uint32
	Extended      bool
	DLC           uint8
	Data          [8]byte
}

// IsExtended reports whether the frame must be sent with the extended-id
// flag: either the mapping says so explicitly, or the id doesn't fit in 11
// bits.
func (f Frame) IsExtended() bool {
	return f.Extended || f.ArbitrationID > standardIDMax
}

// FrameSet coalesces signal writes by arbitration id so that composite CAN
// messages (several signals packed into one frame) are emitted atomically,
// grounded on the original per-ID frame buffer map.
type FrameSet struct {
	mu     sync.Mutex
	frames map[uint32]*Frame
}

// NewFrameSet returns an empty coalescing buffer.
func NewFrameSet() *FrameSet {
	return &FrameSet{frames: make(map[uint32]*Frame)}
}

// pack writes raw into the frame for m.ArbitrationID, creating it
// zero-initialized on first use, and returns the frame's current state.
func (fs *FrameSet) pack(m SignalMapping, raw uint64) Frame {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, ok := fs.frames[m.ArbitrationID]
	if !ok {
		dlc := m.FrameLengthDLC
		if dlc == 0 || dlc > 8 {
			dlc = 8 // DLC clamped to 8 for classic CAN
		}
		f = &Frame{ArbitrationID: m.ArbitrationID, Extended: m.Extended, DLC: dlc}
		fs.frames[m.ArbitrationID] = f
	}
	packBits(f.Data[:f.DLC], m.BitStart, m.BitLength, raw)
	return *f
}

// Take removes and returns the frame buffered for id, if any, so a writer
// can emit it exactly once.
func (fs *FrameSet) Take(id uint32) (Frame, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.frames[id]
	if !ok {
		return Frame{}, false
	}
	delete(fs.frames, id)
	return *f, true
}

// Snapshot returns the current buffered frame for id without clearing it.
func (fs *FrameSet) Snapshot(id uint32) (Frame, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.frames[id]
	if !ok {
		return Frame{}, false
	}
	return *f, true
}

// packBits writes the low bitLength bits of raw into frame starting at
// bitStart, Intel (little-endian) bit order, replacing whatever the field
// held before and truncating at the frame boundary rather than writing past
// it. Bits outside the field are left as they are.
func packBits(frame []byte, bitStart, bitLength uint8, raw uint64) {
	if bitLength == 0 || bitLength >= 64 {
		return
	}
	raw &= (uint64(1) << bitLength) - 1

	totalBits := int(bitStart) + int(bitLength)
	endByte := (totalBits + 7) / 8
	if endByte > len(frame) {
		endByte = len(frame)
	}

	mask := ((uint64(1) << bitLength) - 1) << bitStart
	shifted := raw << bitStart
	for i := 0; i < endByte; i++ {
		frame[i] = frame[i]&^byte(mask>>uint(8*i)) | byte(shifted>>uint(8*i))
	}
}
