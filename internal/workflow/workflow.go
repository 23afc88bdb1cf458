// Package workflow provides named, parameterized event producers equivalent
// to recorded sessions. A workflow builds an in-memory event log that the
// player then replays like any recording.
package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"

	"github.com/fastbench/fbench/internal/domain"
)

// Params configures a workflow instance. Zero values fall back to the
// workflow's defaults.
type Params struct {
	Count   int    `yaml:"count"`    // scrub: number of iterations
	DelayMS int    `yaml:"delay_ms"` // scrub: spacing between iterations
	Key     string `yaml:"key"`      // key or chord, e.g. "pgdn", "alt+1"
}

// Builder produces an event log for the attached window rectangle.
type Builder func(rect domain.Rect, p Params) (*domain.EventLog, error)

var registry = map[string]Builder{
	"scrub":  buildScrub,
	"hotkey": buildHotkey,
}

// Names lists the registered workflow names, sorted.
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// Build constructs the named workflow's event log. An unknown name is a
// configuration error, raised before any side effect.
func Build(name string, rect domain.Rect, p Params) (*domain.EventLog, error) {
	builder, ok := registry[name]
	if !ok {
		return nil, &domain.ConfigError{
			Field:  "workflow",
			Reason: fmt.Sprintf("unknown workflow %q (available: %s)", name, strings.Join(Names(), ", ")),
		}
	}
	log, err := builder(rect, p)
	if err != nil {
		return nil, err
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	return log, nil
}

// LoadParams reads workflow parameters from a YAML file.
func LoadParams(path string) (Params, error) {
	var p Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read workflow params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, &domain.ConfigError{Field: "workflow params", Reason: err.Error()}
	}
	return p, nil
}

type logBuilder struct {
	events []domain.Event
}

func (b *logBuilder) add(offset time.Duration, ev domain.Event) {
	ev.Sequence = len(b.events)
	ev.OffsetMS = offset.Milliseconds()
	b.events = append(b.events, ev)
}

func (b *logBuilder) marker(offset time.Duration, label string) {
	b.add(offset, domain.Event{Kind: domain.KindMarker, Label: label})
}

// keyPress emits down+up for a key or a "+"-separated chord; modifiers are
// pressed in order and released in reverse.
func (b *logBuilder) keyPress(offset time.Duration, chord string) {
	keys := strings.Split(chord, "+")
	for _, k := range keys {
		b.add(offset, domain.Event{Kind: domain.KindKey, Code: k, Action: domain.ActionDown})
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b.add(offset, domain.Event{Kind: domain.KindKey, Code: keys[i], Action: domain.ActionUp})
	}
}

func (b *logBuilder) log(rect domain.Rect) *domain.EventLog {
	return &domain.EventLog{
		SchemaVersion: domain.EventLogSchemaVersion,
		Rect:          rect,
		CreatedAt:     time.Now().UTC(),
		Events:        b.events,
	}
}

// buildScrub presses the scrub key n times at a fixed spacing, bracketed by
// scrub_start/scrub_end markers.
func buildScrub(rect domain.Rect, p Params) (*domain.EventLog, error) {
	count := p.Count
	if count <= 0 {
		count = 100
	}
	delay := time.Duration(p.DelayMS) * time.Millisecond
	if p.DelayMS <= 0 {
		delay = 40 * time.Millisecond
	}
	key := p.Key
	if key == "" {
		key = "pgdn"
	}

	var b logBuilder
	b.marker(0, "scrub_start")
	for i := 0; i < count; i++ {
		b.keyPress(time.Duration(i)*delay, key)
	}
	b.marker(time.Duration(count-1)*delay, "scrub_end")
	return b.log(rect), nil
}

// buildHotkey presses a single configured hotkey chord.
func buildHotkey(rect domain.Rect, p Params) (*domain.EventLog, error) {
	if p.Key == "" {
		return nil, &domain.ConfigError{Field: "workflow.key", Reason: "hotkey workflow requires a key"}
	}
	var b logBuilder
	b.marker(0, "hotkey_start")
	b.keyPress(0, p.Key)
	b.marker(0, "hotkey_end")
	return b.log(rect), nil
}
