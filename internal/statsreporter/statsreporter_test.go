// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsreporter

import (
	"testing"
	"time"
)

func TestReporterStartLogsAndStops(t *testing.T) {
	r, err := New(nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Start(20 * time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestLogSummaryHandlesAllNilComponents(t *testing.T) {
	r, err := New(nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Must not panic with every optional component absent.
	r.logSummary()
}
