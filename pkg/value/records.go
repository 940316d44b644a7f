// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package value

// MessageHeader is the fixed envelope carried by every ingestable record.
type MessageHeader struct {
	SourceID      string
	TimestampNS   int64
	SeqNum        uint32
	CorrelationID string // empty means "absent"
}

// EventSeverity enumerates the four Event severities.
type EventSeverity uint8

const (
	SeverityInfo EventSeverity = iota
	SeverityWarn
	SeverityError
	SeverityCritical
)

func (s EventSeverity) String() string {
	switch s {
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// LogLevel enumerates the four LogEntry levels.
type LogLevel uint8

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// SignalSample is a single vehicle-signal observation: header + dotted VSS
// path + quality + value.
type SignalSample struct {
	Header  MessageHeader
	Path    string
	Quality Quality
	Val     Value
}

// Event is a discrete occurrence: header + identity + classification +
// optional attribute/context maps.
type Event struct {
	Header     MessageHeader
	EventID    string
	Category   string
	EventType  string
	Severity   EventSeverity
	Attributes map[string]string // optional
	Context    map[string]string // optional
}

// MetricKind selects which of gauge/counter/histogram a MetricSample carries.
type MetricKind uint8

const (
	MetricGauge MetricKind = iota
	MetricCounter
	MetricHistogram
)

// HistogramBucket is one (upper_bound, cumulative_count) pair.
type HistogramBucket struct {
	UpperBound      float64
	CumulativeCount uint64
}

// MetricSample is a single metric observation: header + name + exactly one
// of {gauge, counter, histogram} + label map.
type MetricSample struct {
	Header MessageHeader
	Name   string
	Kind   MetricKind

	GaugeValue   float64 // meaningful iff Kind == MetricGauge
	CounterValue float64 // meaningful iff Kind == MetricCounter

	// Histogram fields, meaningful iff Kind == MetricHistogram.
	SampleCount uint64
	SampleSum   float64
	Buckets     []HistogramBucket

	Labels map[string]string
}

// LogEntry is a single structured log line: header + level + component +
// message + optional attributes + optional trace/span identifiers.
type LogEntry struct {
	Header     MessageHeader
	Level      LogLevel
	Component  string
	Message    string
	Attributes map[string]string // optional
	TraceID    string            // optional
	SpanID     string            // optional
}

// InjectServiceLabel returns a copy of labels/attributes with the reserved
// "service" key set to sourceID, which the wire encoder writes ahead of the
// user-supplied keys.
// A nil/empty sourceID is a no-op. The return value preserves
// iteration-independence by always allocating a fresh map so callers never
// mutate the caller's original.
func InjectServiceLabel(sourceID string, existing map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+1)
	if sourceID != "" {
		out["service"] = sourceID
	}
	for k, v := range existing {
		if sourceID != "" && k == "service" {
			continue // reserved key stays bound to sourceID
		}
		out[k] = v
	}
	return out
}
