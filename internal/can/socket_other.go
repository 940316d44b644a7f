// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package can

import "errors"

// SocketWriter is unavailable outside Linux; SocketCAN is a Linux-only
// kernel subsystem.
type SocketWriter struct{}

// OpenSocketWriter always fails on non-Linux platforms.
func OpenSocketWriter(ifaceName string) (*SocketWriter, error) {
	return nil, errors.New("socketcan: not supported on this platform")
}

func (w *SocketWriter) WriteFrame(f Frame) error {
	return errors.New("socketcan: not supported on this platform")
}

func (w *SocketWriter) Close() error { return nil }
