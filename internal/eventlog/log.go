package eventlog

import (
	"encoding/json"
	"fmt"
)

// MaxSupportedVersion is the highest log version this implementation
// accepts; logs with a higher version are rejected (§3 forward
// compatibility).
const MaxSupportedVersion = 1

// EventLog is an append-only, versioned, ordered sequence of execution
// events. It is immutable once written: callers only ever Append.
type EventLog struct {
	Version uint32  `json:"version"`
	Events  []Event `json:"events"`
}

// New returns an empty log at the current version.
func New() *EventLog {
	return &EventLog{Version: MaxSupportedVersion}
}

// Append adds e to the log. The log is a total order: callers must call
// Append in the exact order events are observed.
func (l *EventLog) Append(e Event) {
	l.Events = append(l.Events, e)
}

// CapCalls returns the subsequence of CapCall events, in order.
func (l *EventLog) CapCalls() []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Kind == KindCapCall {
			out = append(out, e)
		}
	}
	return out
}

// CapResults returns the subsequence of CapResult events, in order — the
// tape a ReplayHandler is built from.
func (l *EventLog) CapResults() []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Kind == KindCapResult {
			out = append(out, e)
		}
	}
	return out
}

// ToJSON renders the log as {"version":N,"events":[...]}.
func ToJSON(l *EventLog) ([]byte, error) {
	return json.Marshal(l)
}

// FromJSON parses a log, defaulting a missing version to 1 and rejecting
// versions beyond MaxSupportedVersion.
func FromJSON(data []byte) (*EventLog, error) {
	var raw struct {
		Version *uint32 `json:"version"`
		Events  []Event `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("eventlog: unmarshal: %w", err)
	}
	version := uint32(1)
	if raw.Version != nil {
		version = *raw.Version
	}
	if version > MaxSupportedVersion {
		return nil, fmt.Errorf("eventlog: unsupported version %d (max %d)", version, MaxSupportedVersion)
	}
	return &EventLog{Version: version, Events: raw.Events}, nil
}
