package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLog() *EventLog {
	return &EventLog{
		SchemaVersion: EventLogSchemaVersion,
		Rect:          Rect{Left: 100, Top: 100, Right: 900, Bottom: 700},
		CreatedAt:     time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Events: []Event{
			{Sequence: 0, OffsetMS: 0, Kind: KindPointerMove, XRel: 0.5, YRel: 0.5},
			{Sequence: 1, OffsetMS: 40, Kind: KindPointerButton, XRel: 0.5, YRel: 0.5, Button: "left", Action: ActionDown},
			{Sequence: 2, OffsetMS: 55, Kind: KindPointerButton, XRel: 0.5, YRel: 0.5, Button: "left", Action: ActionUp},
			{Sequence: 3, OffsetMS: 120, Kind: KindKey, Code: "pgdn", Action: ActionDown},
			{Sequence: 4, OffsetMS: 140, Kind: KindKey, Code: "pgdn", Action: ActionUp},
			{Sequence: 5, OffsetMS: 200, Kind: KindMarker, Label: "scrub_start"},
		},
	}
}

func TestEventLogValidate(t *testing.T) {
	t.Run("accepts a well-formed log", func(t *testing.T) {
		require.NoError(t, validLog().Validate())
	})

	t.Run("accepts an empty log", func(t *testing.T) {
		log := validLog()
		log.Events = nil
		require.NoError(t, log.Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*EventLog)
		wantMsg string
	}{
		{
			name:    "rejects wrong schema version",
			mutate:  func(l *EventLog) { l.SchemaVersion = 99 },
			wantMsg: "unsupported schema version",
		},
		{
			name:    "rejects degenerate rect",
			mutate:  func(l *EventLog) { l.Rect = Rect{Left: 100, Top: 100, Right: 100, Bottom: 700} },
			wantMsg: "invalid rect",
		},
		{
			name:    "rejects sequence gap",
			mutate:  func(l *EventLog) { l.Events[3].Sequence = 7 },
			wantMsg: "breaks contiguity",
		},
		{
			name: "rejects sequence not starting at zero",
			mutate: func(l *EventLog) {
				for i := range l.Events {
					l.Events[i].Sequence++
				}
			},
			wantMsg: "breaks contiguity",
		},
		{
			name:    "rejects negative offset",
			mutate:  func(l *EventLog) { l.Events[0].OffsetMS = -1 },
			wantMsg: "negative offset",
		},
		{
			name:    "rejects decreasing offsets",
			mutate:  func(l *EventLog) { l.Events[3].OffsetMS = 10 },
			wantMsg: "decreases",
		},
		{
			name:    "rejects unknown kind",
			mutate:  func(l *EventLog) { l.Events[0].Kind = "wheelie" },
			wantMsg: "unknown event kind",
		},
		{
			name:    "rejects pointer coordinates above one",
			mutate:  func(l *EventLog) { l.Events[0].XRel = 1.25 },
			wantMsg: "out of [0,1]",
		},
		{
			name:    "rejects negative pointer coordinates",
			mutate:  func(l *EventLog) { l.Events[1].YRel = -0.1 },
			wantMsg: "out of [0,1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := validLog()
			tt.mutate(log)

			err := log.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.wantMsg)
		})
	}

	t.Run("equal offsets are allowed", func(t *testing.T) {
		log := validLog()
		log.Events[2].OffsetMS = log.Events[1].OffsetMS
		require.NoError(t, log.Validate())
	})
}

func TestEventLogDuration(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, validLog().Duration())
	assert.Equal(t, time.Duration(0), (&EventLog{}).Duration())
}

func TestEventLogSaveLoad(t *testing.T) {
	t.Run("round trips through disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scrub.json")
		log := validLog()
		require.NoError(t, log.Save(path))

		loaded, err := LoadEventLog(path)
		require.NoError(t, err)
		assert.Equal(t, log.Rect, loaded.Rect)
		assert.Equal(t, log.Events, loaded.Events)
		assert.True(t, log.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("save leaves no temp file behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "scrub.json")
		require.NoError(t, validLog().Save(path))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "scrub.json", entries[0].Name())
	})

	t.Run("load rejects unknown schema version before full parse", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "future.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 2, "events": []}`), 0o644))

		_, err := LoadEventLog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported schema version 2")
	})

	t.Run("load rejects malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := LoadEventLog(path)
		require.Error(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("load rejects invalid log content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		log := validLog()
		log.Events[0].XRel = 3
		require.NoError(t, log.Save(path))

		_, err := LoadEventLog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of [0,1]")
	})

	t.Run("load reports missing file", func(t *testing.T) {
		_, err := LoadEventLog(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read event log")
	})
}
