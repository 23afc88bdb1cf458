// Package uiauto defines the capability boundary to the platform UI
// automation driver. The benchmark engine never touches the windowing system
// directly; it speaks to a helper process (or a test fake) through these
// interfaces.
package uiauto

import (
	"context"
	"time"

	"github.com/fastbench/fbench/internal/domain"
)

// Window is a handle to the attached target application window.
type Window struct {
	PID   int32  `json:"pid"`
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Attacher acquires and inspects the target application window. Attach is
// tolerant of the application still launching: it retries until the timeout
// budget is spent.
type Attacher interface {
	Attach(ctx context.Context, timeout time.Duration) (Window, error)
	Rect(w Window) (domain.Rect, error)
	Focus(w Window) error
}

// Dispatcher sends synthetic input at absolute screen coordinates and reads
// the live pointer position (used by the replay failsafe).
type Dispatcher interface {
	MoveTo(x, y int) error
	Button(button, action string) error
	Key(code, action string) error
	Scroll(delta int) error
	PointerPos() (x, y int, err error)
}

// RawInput is one device-level input observation delivered by a Hook.
// Pointer coordinates are absolute; the recorder converts them to
// window-relative form.
type RawInput struct {
	Kind   domain.EventKind `json:"kind"`
	X      int              `json:"x,omitempty"`
	Y      int              `json:"y,omitempty"`
	Button string           `json:"button,omitempty"`
	Action string           `json:"action,omitempty"`
	Code   string           `json:"code,omitempty"`
	Delta  int              `json:"delta,omitempty"`
}

// Hook is an exclusive acquisition of the global input capture resource.
// Capture is device-level, not window-scoped: everything the operator types
// or clicks while the hook is active ends up in the stream. Stop releases
// the resource deterministically and closes the channel.
type Hook interface {
	Start(ctx context.Context) (<-chan RawInput, error)
	Stop() error
}
