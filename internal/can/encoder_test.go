// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package can

import (
	"testing"

	"github.com/vehicleedge/telemetry-export/pkg/value"
)

func TestBitPackScenario(t *testing.T) {
	// bit_start=4, bit_length=12, value 0xABC into a zero-initialized
	// 8-byte frame yields [0xC0, 0xAB, 0, 0, 0, 0, 0, 0].
	frame := make([]byte, 8)
	packBits(frame, 4, 12, 0xABC)

	want := []byte{0xC0, 0xAB, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if frame[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x (full frame=%v)", i, frame[i], want[i], frame)
		}
	}
}

func TestBitPackTruncatesAtFrameBoundary(t *testing.T) {
	frame := make([]byte, 2)
	// bit_start=12, bit_length=8 would need bytes [1,2] but the frame is
	// only 2 bytes long: writes must stop at the boundary, never panic or
	// write past it.
	packBits(frame, 12, 8, 0xFF)
	if frame[0] == 0 && frame[1] == 0 {
		t.Fatal("expected some bits to land within the truncated frame")
	}
}

func TestStringEnumScenario(t *testing.T) {
	table := NewTable([]SignalMapping{{
		Path:           "Vehicle.Seat.Position",
		ArbitrationID:  0x100,
		FrameLengthDLC: 8,
		BitStart:       0,
		BitLength:      2,
		Factor:         1,
		EnumMap:        map[string]uint64{"UP": 0, "MIDDLE": 1, "DOWN": 2},
	}})
	enc := NewEncoder(table)

	if ok := enc.Encode("Vehicle.Seat.Position", value.ActuatorFromString("MIDDLE")); !ok {
		t.Fatal("expected MIDDLE to encode successfully")
	}
	frame, ok := enc.Frames().Snapshot(0x100)
	if !ok {
		t.Fatal("expected a buffered frame for arbitration id 0x100")
	}
	if frame.Data[0] != 0b01 {
		t.Fatalf("expected byte 0 == 0b01, got %#x", frame.Data[0])
	}

	// Writing an unmapped string must fail without touching the buffer.
	before, _ := enc.Frames().Snapshot(0x100)
	if ok := enc.Encode("Vehicle.Seat.Position", value.ActuatorFromString("INVALID")); ok {
		t.Fatal("expected INVALID to fail to encode")
	}
	after, _ := enc.Frames().Snapshot(0x100)
	if after != before {
		t.Fatalf("expected frame buffer unchanged after failed enum lookup: before=%+v after=%+v", before, after)
	}
}

func TestAffineTransformRoundAndClamp(t *testing.T) {
	table := NewTable([]SignalMapping{{
		Path:          "Vehicle.Powertrain.Speed",
		ArbitrationID: 0x200,
		BitStart:      0,
		BitLength:     8, // max raw 255
		Factor:        0.5,
		Offset:        10,
	}})
	enc := NewEncoder(table)

	// raw = (value - offset) / factor = (135 - 10) / 0.5 = 250
	enc.Encode("Vehicle.Powertrain.Speed", value.ActuatorFromFloat64(135))
	f, _ := enc.Frames().Snapshot(0x200)
	if f.Data[0] != 250 {
		t.Fatalf("expected raw 250, got %d", f.Data[0])
	}

	// A value that would compute a negative raw clamps to 0.
	enc2 := NewEncoder(table)
	enc2.Encode("Vehicle.Powertrain.Speed", value.ActuatorFromFloat64(0))
	f2, _ := enc2.Frames().Snapshot(0x200)
	if f2.Data[0] != 0 {
		t.Fatalf("expected negative raw clamped to 0, got %d", f2.Data[0])
	}

	// A value exceeding the bit-length's range clamps to the max, not wraps.
	enc3 := NewEncoder(table)
	enc3.Encode("Vehicle.Powertrain.Speed", value.ActuatorFromFloat64(1000))
	f3, _ := enc3.Frames().Snapshot(0x200)
	if f3.Data[0] != 255 {
		t.Fatalf("expected raw clamped to 255, got %d", f3.Data[0])
	}
}

func TestFrameSetCoalescesByArbitrationID(t *testing.T) {
	table := NewTable([]SignalMapping{
		{Path: "A", ArbitrationID: 0x300, BitStart: 0, BitLength: 4, Factor: 1},
		{Path: "B", ArbitrationID: 0x300, BitStart: 4, BitLength: 4, Factor: 1},
	})
	enc := NewEncoder(table)
	enc.Encode("A", value.ActuatorFromInt64(0xA))
	enc.Encode("B", value.ActuatorFromInt64(0xB))

	f, ok := enc.Frames().Snapshot(0x300)
	if !ok {
		t.Fatal("expected a coalesced frame for 0x300")
	}
	if f.Data[0] != 0xBA {
		t.Fatalf("expected coalesced byte 0xBA, got %#x", f.Data[0])
	}
}

func TestUnmappedPathReturnsFalse(t *testing.T) {
	enc := NewEncoder(NewTable(nil))
	if enc.Encode("Not.Mapped", value.ActuatorFromBool(true)) {
		t.Fatal("expected unmapped path to fail")
	}
}

func TestExtendedIDDetection(t *testing.T) {
	f := Frame{ArbitrationID: 0x1FFFFFFF}
	if !f.IsExtended() {
		t.Fatal("expected id above 11 bits to be detected as extended")
	}
	f2 := Frame{ArbitrationID: 0x123}
	if f2.IsExtended() {
		t.Fatal("expected an 11-bit id to not be extended")
	}
}

func TestLoadMappingsDefaultsFactor(t *testing.T) {
	data := []byte(`[{"path":"X","arbitration_id":1,"bit_start":0,"bit_length":4}]`)
	mappings, err := LoadMappings(data)
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}
	if len(mappings) != 1 || mappings[0].Factor != 1.0 {
		t.Fatalf("expected default factor 1.0, got %+v", mappings)
	}
}

func TestLoadMappingsRejectsMalformedJSON(t *testing.T) {
	_, err := LoadMappings([]byte(`not json`))
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
