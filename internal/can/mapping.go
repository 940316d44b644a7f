// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package can encodes actuator Values into CAN frames against a static
// signal table, and writes them to a SocketCAN interface. DBC/JSON grammar
// parsing stays out of scope; LoadMappings accepts the already-parsed table
// shape.
package can

import "encoding/json"

// SignalMapping is one static VSS-path-to-CAN-signal record.
type SignalMapping struct {
	Path           string            `json:"path"`
	MessageName    string            `json:"message_name"`
	ArbitrationID  uint32            `json:"arbitration_id"`
	Extended       bool              `json:"extended"`
	FrameLengthDLC uint8             `json:"frame_length_dlc"`
	SignalName     string            `json:"signal_name"`
	BitStart       uint8             `json:"bit_start"`
	BitLength      uint8             `json:"bit_length"`
	Factor         float64           `json:"factor"`
	Offset         float64           `json:"offset"`
	EnumMap        map[string]uint64 `json:"enum_map,omitempty"`
}

// maxRawValue returns the inclusive upper bound a raw integer may take once
// packed into BitLength bits.
func (m SignalMapping) maxRawValue() uint64 {
	if m.BitLength >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << m.BitLength) - 1
}

// LoadMappings parses the static table from its already-parsed JSON shape.
// Factor defaults to 1.0 when zero so a caller omitting it from JSON doesn't
// silently divide every raw value to zero.
func LoadMappings(data []byte) ([]SignalMapping, error) {
	var mappings []SignalMapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, err
	}
	for i := range mappings {
		if mappings[i].Factor == 0 {
			mappings[i].Factor = 1.0
		}
	}
	return mappings, nil
}

// Table indexes mappings by VSS path for encoder lookups.
type Table struct {
	byPath map[string]SignalMapping
}

// NewTable builds a Table over mappings, keyed by Path. Later entries with a
// duplicate path win, matching a static table where the last definition in
// file order is authoritative.
func NewTable(mappings []SignalMapping) *Table {
	t := &Table{byPath: make(map[string]SignalMapping, len(mappings))}
	for _, m := range mappings {
		t.byPath[m.Path] = m
	}
	return t
}

// Lookup returns the mapping for path, if any.
func (t *Table) Lookup(path string) (SignalMapping, bool) {
	m, ok := t.byPath[path]
	return m, ok
}
