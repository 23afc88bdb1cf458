// Package output owns the machine-readable surfaces of the tool: the ndjson
// progress stream on stdout and the append-only CSV artifacts (markers,
// telemetry) consumed by downstream analysis.
package output

import (
	"encoding/json"
	"io"

	"github.com/fastbench/fbench/internal/domain"
)

// SchemaVersion is embedded in every ndjson object so agents can detect
// contract changes.
const SchemaVersion = 1

// NDJSONWriter emits one JSON object per line.
type NDJSONWriter struct {
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer targeting w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

func (w *NDJSONWriter) write(v any) error { return w.enc.Encode(v) }

// WriteRunState announces a run state machine transition.
func (w *NDJSONWriter) WriteRunState(state string) error {
	return w.write(map[string]any{
		"type":          "run_state",
		"schemaVersion": SchemaVersion,
		"state":         state,
	})
}

// WriteMarker mirrors a marker to the progress stream as it is emitted.
func (w *NDJSONWriter) WriteMarker(m domain.Marker) error {
	return w.write(map[string]any{
		"type":          "marker",
		"schemaVersion": SchemaVersion,
		"ts_utc":        domain.FormatUTC(m.Timestamp),
		"event":         m.Event,
		"comment":       m.Comment,
		"phase":         m.Phase.String(),
	})
}

// WriteWarning emits a non-fatal warning.
func (w *NDJSONWriter) WriteWarning(message string) error {
	return w.write(map[string]any{
		"type":          "warning",
		"schemaVersion": SchemaVersion,
		"message":       message,
	})
}

// WriteInfo emits an informational message.
func (w *NDJSONWriter) WriteInfo(message string) error {
	return w.write(map[string]any{
		"type":          "info",
		"schemaVersion": SchemaVersion,
		"message":       message,
	})
}

// WriteError emits a machine-readable failure with an optional hint.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	obj := map[string]any{
		"type":          "error",
		"schemaVersion": SchemaVersion,
		"code":          code,
		"message":       message,
	}
	if len(hint) > 0 && hint[0] != "" {
		obj["hint"] = hint[0]
	}
	return w.write(obj)
}

// WriteReplayResult reports replay completion statistics.
func (w *NDJSONWriter) WriteReplayResult(steps int, maxDeviationMS, meanDeviationMS float64, durationMS int64) error {
	return w.write(map[string]any{
		"type":              "replay_result",
		"schemaVersion":     SchemaVersion,
		"steps":             steps,
		"max_deviation_ms":  maxDeviationMS,
		"mean_deviation_ms": meanDeviationMS,
		"duration_ms":       durationMS,
	})
}

// WriteRecorded reports a finished recording session.
func (w *NDJSONWriter) WriteRecorded(path string, events int, durationMS int64) error {
	return w.write(map[string]any{
		"type":          "recorded",
		"schemaVersion": SchemaVersion,
		"path":          path,
		"events":        events,
		"duration_ms":   durationMS,
	})
}
