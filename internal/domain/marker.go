package domain

import (
	"slices"
	"time"
)

// TimestampLayout is the ISO-8601 UTC millisecond format used for markers
// and telemetry rows.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatUTC renders a timestamp in the shared marker/telemetry format.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Phase orders marker sources for deterministic tie-breaking when two phases
// emit markers in the same millisecond.
type Phase int

const (
	PhaseCache Phase = iota
	PhaseAttach
	PhaseInteraction
	PhaseTeardown
)

func (p Phase) String() string {
	switch p {
	case PhaseCache:
		return "cache"
	case PhaseAttach:
		return "attach"
	case PhaseInteraction:
		return "interaction"
	case PhaseTeardown:
		return "teardown"
	}
	return "unknown"
}

// Marker is a timestamped named checkpoint bracketing a measurable interval,
// e.g. open_start / first_pixel.
type Marker struct {
	Timestamp time.Time `json:"ts_utc"`
	Event     string    `json:"event"`
	Comment   string    `json:"comment,omitempty"`
	Phase     Phase     `json:"-"`
}

// MergeMarkers orders markers from all phases by timestamp; equal timestamps
// fall back to phase precedence (cache < attach < interaction < teardown) so
// downstream KPI derivation is deterministic. The input is not modified.
func MergeMarkers(markers []Marker) []Marker {
	merged := slices.Clone(markers)
	slices.SortStableFunc(merged, func(a, b Marker) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return int(a.Phase) - int(b.Phase)
	})
	return merged
}
