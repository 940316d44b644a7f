// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package can

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// canFrameMaxLen is the maximum payload a classic (non-FD) struct can_frame
// carries on the wire; DLC is clamped to this by FrameSet.
const canFrameMaxLen = 8

// canIDFlagExtended, canEFFMask and canSFFMask mirror linux/can.h's
// CAN_EFF_FLAG and CAN_EFF_MASK/CAN_SFF_MASK bit layout for the 32-bit
// can_id field.
const (
	canIDFlagExtended = 0x80000000
	canEFFMask        = 0x1FFFFFFF
	canSFFMask        = 0x000007FF
)

// SocketWriter writes frames to a raw SocketCAN interface (e.g. "vcan0").
type SocketWriter struct {
	fd int
}

// OpenSocketWriter binds a CAN_RAW socket to ifaceName.
func OpenSocketWriter(ifaceName string) (*SocketWriter, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: open raw socket: %w", err)
	}

	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: resolve interface %q: %w", ifaceName, err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind to %q: %w", ifaceName, err)
	}

	return &SocketWriter{fd: fd}, nil
}

// WriteFrame sends f as one struct can_frame: 4-byte can_id (with the
// extended flag set when appropriate), 1-byte DLC, 3 bytes padding, 8 bytes
// of data.
func (w *SocketWriter) WriteFrame(f Frame) error {
	var buf [16]byte

	id := f.ArbitrationID
	if f.IsExtended() {
		id = (id & canEFFMask) | canIDFlagExtended
	} else {
		id &= canSFFMask
	}

	buf[0] = byte(id)
	buf[1] = byte(id >> 8)
	buf[2] = byte(id >> 16)
	buf[3] = byte(id >> 24)
	dlc := f.DLC
	if dlc > canFrameMaxLen {
		dlc = canFrameMaxLen
	}
	buf[4] = dlc
	copy(buf[8:8+canFrameMaxLen], f.Data[:])

	_, err := unix.Write(w.fd, buf[:])
	if err != nil {
		return fmt.Errorf("socketcan: write: %w", err)
	}
	return nil
}

// Close releases the underlying socket.
func (w *SocketWriter) Close() error {
	return unix.Close(w.fd)
}
