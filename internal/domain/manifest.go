package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Run terminal states.
const (
	RunStateRunning           = "running"
	RunStateFinalized         = "finalized"
	RunStateAborted           = "aborted"
	RunStateAbortedByOperator = "aborted_by_operator"
)

// Host identifies the machine a run executed on.
type Host struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Platform     string `json:"platform,omitempty"`
	CPUModel     string `json:"cpu_model,omitempty"`
	LogicalCores int    `json:"logical_cores,omitempty"`
	TotalRAMMB   uint64 `json:"total_ram_mb,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
}

// RunManifest is the authoritative record of one benchmark run. It is created
// at run start, filled in as phases complete, and finalized exactly once.
type RunManifest struct {
	RunID       string    `json:"run_id"`
	Mode        string    `json:"mode"`
	Source      string    `json:"source"`
	CachePolicy string    `json:"cache_policy"`
	Host        Host      `json:"host"`
	Operator    string    `json:"operator,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitzero"`
	MetricsPath string    `json:"metrics_path,omitempty"`
	MarkersPath string    `json:"markers_path,omitempty"`
	EventLog    string    `json:"event_log,omitempty"`
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
}

// Finalize sets the terminal state once. A second call is a programming
// error and returns ErrAlreadyFinalized without touching the manifest.
func (m *RunManifest) Finalize(state string, endedAt time.Time, runErr error) error {
	if m.State != "" && m.State != RunStateRunning {
		return ErrAlreadyFinalized
	}
	m.State = state
	m.EndedAt = endedAt
	if runErr != nil {
		m.Error = runErr.Error()
	}
	return nil
}

// Finalized reports whether the manifest reached a terminal state.
func (m *RunManifest) Finalized() bool {
	return m.State != "" && m.State != RunStateRunning
}

// Save persists the manifest as JSON using an atomic write.
func (m *RunManifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// LoadManifest reads a persisted run manifest.
func LoadManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed manifest %s: %w", path, err)
	}
	return &m, nil
}
