package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventLogSchemaVersion is the current on-disk event log schema.
const EventLogSchemaVersion = 1

// EventKind identifies the variant of a captured input event.
type EventKind string

const (
	KindPointerMove   EventKind = "pointer_move"
	KindPointerButton EventKind = "pointer_button"
	KindKey           EventKind = "key"
	KindScroll        EventKind = "scroll"
	KindMarker        EventKind = "marker"
)

// Button/key actions.
const (
	ActionDown = "down"
	ActionUp   = "up"
)

// Event is one captured or replayed input action. Pointer coordinates are
// stored relative to the window rectangle captured at record time so a log
// can be replayed against a resized or repositioned window.
type Event struct {
	Sequence int       `json:"sequence"`
	OffsetMS int64     `json:"offset_ms"`
	Kind     EventKind `json:"kind"`
	XRel     float64   `json:"x_rel,omitempty"`
	YRel     float64   `json:"y_rel,omitempty"`
	Button   string    `json:"button,omitempty"`
	Action   string    `json:"action,omitempty"`
	Code     string    `json:"code,omitempty"`
	Delta    int       `json:"delta,omitempty"`
	Label    string    `json:"label,omitempty"`
}

// EventLog is an ordered recording of input events plus the window rectangle
// they were captured against. Immutable once persisted.
type EventLog struct {
	SchemaVersion int       `json:"schema_version"`
	Rect          Rect      `json:"rect"`
	CreatedAt     time.Time `json:"created_at"`
	Events        []Event   `json:"events"`
}

func knownKind(k EventKind) bool {
	switch k {
	case KindPointerMove, KindPointerButton, KindKey, KindScroll, KindMarker:
		return true
	}
	return false
}

// Validate checks the full log before it is replayed or persisted: contiguous
// sequence numbers from 0, non-decreasing offsets, in-range coordinates and
// known kinds. Any violation means the log is rejected whole.
func (l *EventLog) Validate() error {
	if l.SchemaVersion != EventLogSchemaVersion {
		return &ValidationError{Reason: fmt.Sprintf("unsupported schema version %d (want %d)", l.SchemaVersion, EventLogSchemaVersion)}
	}
	if err := l.Rect.Validate(); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	prevOffset := int64(0)
	for i, ev := range l.Events {
		if ev.Sequence != i {
			return &ValidationError{Sequence: ev.Sequence, Reason: fmt.Sprintf("sequence %d at index %d breaks contiguity", ev.Sequence, i)}
		}
		if ev.OffsetMS < 0 {
			return &ValidationError{Sequence: ev.Sequence, Reason: fmt.Sprintf("negative offset %d", ev.OffsetMS)}
		}
		if ev.OffsetMS < prevOffset {
			return &ValidationError{Sequence: ev.Sequence, Reason: fmt.Sprintf("offset %d decreases below %d", ev.OffsetMS, prevOffset)}
		}
		prevOffset = ev.OffsetMS
		if !knownKind(ev.Kind) {
			return &ValidationError{Sequence: ev.Sequence, Reason: fmt.Sprintf("unknown event kind %q", ev.Kind)}
		}
		if ev.Kind == KindPointerMove || ev.Kind == KindPointerButton {
			if ev.XRel < 0 || ev.XRel > 1 || ev.YRel < 0 || ev.YRel > 1 {
				return &ValidationError{Sequence: ev.Sequence, Reason: fmt.Sprintf("relative coordinates (%g, %g) out of [0,1]", ev.XRel, ev.YRel)}
			}
		}
	}
	return nil
}

// Duration returns the nominal length of the log (offset of the last event).
func (l *EventLog) Duration() time.Duration {
	if len(l.Events) == 0 {
		return 0
	}
	return time.Duration(l.Events[len(l.Events)-1].OffsetMS) * time.Millisecond
}

// Save persists the log as a JSON document using an atomic write.
func (l *EventLog) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode event log: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// LoadEventLog reads and validates an event log. An unknown schema version
// fails fast rather than attempting a best-effort parse.
func LoadEventLog(path string) (*EventLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed event log %s: %v", path, err)}
	}
	if header.SchemaVersion != EventLogSchemaVersion {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported schema version %d in %s (want %d)", header.SchemaVersion, path, EventLogSchemaVersion)}
	}
	var log EventLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed event log %s: %v", path, err)}
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	return &log, nil
}

// writeFileAtomic writes via a temp file and rename so readers never observe
// a partially written document.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}
