package uiauto

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fastbench/fbench/internal/domain"
)

// attachRetryInterval is how long to wait between attach probes while the
// target application is still launching.
const attachRetryInterval = 2 * time.Second

// HelperAttacher drives window attachment through an external helper command.
// Each call runs `<helper> <verb> ...` and parses a single JSON reply from
// stdout, so the platform-specific automation stack stays out of process.
type HelperAttacher struct {
	Helper    []string // helper command and base args
	TitleHint string   // window title substring to match
	Clock     clock.Clock
}

// NewHelperAttacher builds an attacher for the configured helper command.
func NewHelperAttacher(helper []string, titleHint string) *HelperAttacher {
	return &HelperAttacher{Helper: helper, TitleHint: titleHint, Clock: clock.New()}
}

func (a *HelperAttacher) run(ctx context.Context, verb string, args []string, reply any) error {
	if len(a.Helper) == 0 {
		return &domain.ConfigError{Field: "uiauto.helper", Reason: "no helper command configured"}
	}
	full := append(append([]string{}, a.Helper[1:]...), verb)
	full = append(full, args...)
	cmd := exec.CommandContext(ctx, a.Helper[0], full...)
	out, err := cmd.Output()
	if err != nil {
		return &domain.ExternalCommandError{Command: a.Helper[0] + " " + verb, Err: err}
	}
	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(out, reply); err != nil {
		return &domain.ExternalCommandError{Command: a.Helper[0] + " " + verb, Err: fmt.Errorf("malformed reply: %w", err)}
	}
	return nil
}

// Attach polls the helper until the target window exists or the budget is
// spent. The target application may still be launching, so probe failures
// inside the budget are retried, not surfaced.
func (a *HelperAttacher) Attach(ctx context.Context, timeout time.Duration) (Window, error) {
	clk := a.Clock
	if clk == nil {
		clk = clock.New()
	}
	deadline := clk.Now().Add(timeout)
	for {
		var w Window
		err := a.run(ctx, "attach", []string{"--title", a.TitleHint}, &w)
		if err == nil && w.PID > 0 {
			return w, nil
		}
		if ctx.Err() != nil {
			return Window{}, ctx.Err()
		}
		if !clk.Now().Add(attachRetryInterval).Before(deadline) {
			return Window{}, &domain.AttachTimeoutError{Timeout: timeout}
		}
		select {
		case <-ctx.Done():
			return Window{}, ctx.Err()
		case <-clk.After(attachRetryInterval):
		}
	}
}

// Rect queries the current window rectangle.
func (a *HelperAttacher) Rect(w Window) (domain.Rect, error) {
	var r domain.Rect
	if err := a.run(context.Background(), "rect", []string{"--id", w.ID}, &r); err != nil {
		return domain.Rect{}, err
	}
	if err := r.Validate(); err != nil {
		return domain.Rect{}, err
	}
	return r, nil
}

// Focus brings the window to the foreground.
func (a *HelperAttacher) Focus(w Window) error {
	return a.run(context.Background(), "focus", []string{"--id", w.ID}, nil)
}

// HelperDispatcher sends input through a persistent helper child process,
// one JSON command per line on stdin, one JSON reply per line on stdout.
// Keeping the child alive avoids per-event process spawn latency, which
// would blow the replay timing budget.
type HelperDispatcher struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	in   io.WriteCloser
	out  *bufio.Scanner
	enc  *json.Encoder
	name string
}

type dispatchCmd struct {
	Op     string `json:"op"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Button string `json:"button,omitempty"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code,omitempty"`
	Delta  int    `json:"delta,omitempty"`
}

type dispatchReply struct {
	OK    bool   `json:"ok"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Error string `json:"error,omitempty"`
}

// StartHelperDispatcher launches the helper in input mode.
func StartHelperDispatcher(ctx context.Context, helper []string) (*HelperDispatcher, error) {
	if len(helper) == 0 {
		return nil, &domain.ConfigError{Field: "uiauto.helper", Reason: "no helper command configured"}
	}
	args := append(append([]string{}, helper[1:]...), "input")
	cmd := exec.CommandContext(ctx, helper[0], args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &domain.ExternalCommandError{Command: helper[0] + " input", Err: err}
	}
	return &HelperDispatcher{
		cmd:  cmd,
		in:   stdin,
		out:  bufio.NewScanner(stdout),
		enc:  json.NewEncoder(stdin),
		name: helper[0],
	}, nil
}

func (d *HelperDispatcher) roundTrip(c dispatchCmd) (dispatchReply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enc.Encode(c); err != nil {
		return dispatchReply{}, &domain.ExternalCommandError{Command: d.name, Err: err}
	}
	if !d.out.Scan() {
		err := d.out.Err()
		if err == nil {
			err = errors.New("helper closed its output stream")
		}
		return dispatchReply{}, &domain.ExternalCommandError{Command: d.name, Err: err}
	}
	var reply dispatchReply
	if err := json.Unmarshal(d.out.Bytes(), &reply); err != nil {
		return dispatchReply{}, &domain.ExternalCommandError{Command: d.name, Err: fmt.Errorf("malformed reply: %w", err)}
	}
	if !reply.OK {
		return reply, &domain.ExternalCommandError{Command: d.name, Err: errors.New(reply.Error)}
	}
	return reply, nil
}

func (d *HelperDispatcher) MoveTo(x, y int) error {
	_, err := d.roundTrip(dispatchCmd{Op: "move", X: x, Y: y})
	return err
}

func (d *HelperDispatcher) Button(button, action string) error {
	_, err := d.roundTrip(dispatchCmd{Op: "button", Button: button, Action: action})
	return err
}

func (d *HelperDispatcher) Key(code, action string) error {
	_, err := d.roundTrip(dispatchCmd{Op: "key", Code: code, Action: action})
	return err
}

func (d *HelperDispatcher) Scroll(delta int) error {
	_, err := d.roundTrip(dispatchCmd{Op: "scroll", Delta: delta})
	return err
}

func (d *HelperDispatcher) PointerPos() (int, int, error) {
	reply, err := d.roundTrip(dispatchCmd{Op: "pointer_pos"})
	if err != nil {
		return 0, 0, err
	}
	return reply.X, reply.Y, nil
}

// Close shuts the helper down.
func (d *HelperDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.in.Close()
	return d.cmd.Wait()
}

// HelperHook captures global input through a helper child that emits one
// JSON RawInput per line on stdout for every observed device event.
type HelperHook struct {
	Helper []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// Start spawns the capture child and streams its events. The hook is an
// exclusive resource: a second Start before Stop returns an error.
func (h *HelperHook) Start(ctx context.Context) (<-chan RawInput, error) {
	if len(h.Helper) == 0 {
		return nil, &domain.ConfigError{Field: "uiauto.helper", Reason: "no helper command configured"}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd != nil {
		return nil, errors.New("input hook already active")
	}
	ctx, cancel := context.WithCancel(ctx)
	args := append(append([]string{}, h.Helper[1:]...), "hook")
	cmd := exec.CommandContext(ctx, h.Helper[0], args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &domain.ExternalCommandError{Command: h.Helper[0] + " hook", Err: err}
	}
	h.cmd = cmd
	h.cancel = cancel

	events := make(chan RawInput, 256)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			var raw RawInput
			if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
				continue // tolerate noise on the helper's stdout
			}
			select {
			case events <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// Stop releases the hook. Safe to call once after Start, even if the child
// already exited.
func (h *HelperHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil {
		return nil
	}
	h.cancel()
	err := h.cmd.Wait()
	h.cmd = nil
	h.cancel = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		// the child is killed on cancel; its exit status is not a failure
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}
