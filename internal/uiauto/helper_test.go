package uiauto

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastbench/fbench/internal/domain"
)

// writeHelperScript creates an executable shell script standing in for the
// platform automation helper.
func writeHelperScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestHelperAttacherAttach(t *testing.T) {
	t.Run("parses the helper reply", func(t *testing.T) {
		script := writeHelperScript(t, `echo '{"pid":1234,"id":"w1","title":"Target"}'`)
		a := NewHelperAttacher([]string{script}, "Target")

		w, err := a.Attach(context.Background(), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int32(1234), w.PID)
		assert.Equal(t, "w1", w.ID)
	})

	t.Run("no helper configured", func(t *testing.T) {
		a := NewHelperAttacher(nil, "Target")
		a.Clock = clock.NewMock()

		_, err := a.Attach(context.Background(), time.Second)
		require.Error(t, err)
		var timeout *domain.AttachTimeoutError
		assert.ErrorAs(t, err, &timeout)
	})

	t.Run("budget exhausted surfaces a timeout", func(t *testing.T) {
		// helper reports no window; budget below the retry interval means a
		// single failed probe ends the attempt
		script := writeHelperScript(t, `echo '{"pid":0}'`)
		a := NewHelperAttacher([]string{script}, "Target")
		a.Clock = clock.NewMock()

		_, err := a.Attach(context.Background(), time.Second)
		require.Error(t, err)
		var timeout *domain.AttachTimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, time.Second, timeout.Timeout)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		script := writeHelperScript(t, `echo '{"pid":0}'`)
		a := NewHelperAttacher([]string{script}, "Target")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := a.Attach(ctx, time.Minute)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestHelperAttacherRect(t *testing.T) {
	t.Run("valid rect", func(t *testing.T) {
		script := writeHelperScript(t, `echo '{"left":100,"top":100,"right":900,"bottom":700}'`)
		a := NewHelperAttacher([]string{script}, "Target")

		r, err := a.Rect(Window{ID: "w1"})
		require.NoError(t, err)
		assert.Equal(t, domain.Rect{Left: 100, Top: 100, Right: 900, Bottom: 700}, r)
	})

	t.Run("degenerate rect is rejected", func(t *testing.T) {
		script := writeHelperScript(t, `echo '{"left":100,"top":100,"right":100,"bottom":700}'`)
		a := NewHelperAttacher([]string{script}, "Target")

		_, err := a.Rect(Window{ID: "w1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid rect")
	})

	t.Run("malformed reply", func(t *testing.T) {
		script := writeHelperScript(t, `echo 'not json'`)
		a := NewHelperAttacher([]string{script}, "Target")

		_, err := a.Rect(Window{ID: "w1"})
		var cmdErr *domain.ExternalCommandError
		require.ErrorAs(t, err, &cmdErr)
	})
}

func TestHelperDispatcher(t *testing.T) {
	t.Run("round trips commands over stdio", func(t *testing.T) {
		script := writeHelperScript(t, `while read line; do echo '{"ok":true,"x":10,"y":20}'; done`)
		d, err := StartHelperDispatcher(context.Background(), []string{script})
		require.NoError(t, err)

		require.NoError(t, d.MoveTo(500, 400))
		require.NoError(t, d.Button("left", "down"))
		require.NoError(t, d.Key("pgdn", "up"))
		require.NoError(t, d.Scroll(-3))

		x, y, err := d.PointerPos()
		require.NoError(t, err)
		assert.Equal(t, 10, x)
		assert.Equal(t, 20, y)

		assert.NoError(t, d.Close())
	})

	t.Run("helper error reply surfaces", func(t *testing.T) {
		script := writeHelperScript(t, `while read line; do echo '{"ok":false,"error":"injection blocked"}'; done`)
		d, err := StartHelperDispatcher(context.Background(), []string{script})
		require.NoError(t, err)
		defer d.Close()

		err = d.MoveTo(1, 1)
		var cmdErr *domain.ExternalCommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Contains(t, err.Error(), "injection blocked")
	})

	t.Run("no helper configured", func(t *testing.T) {
		_, err := StartHelperDispatcher(context.Background(), nil)
		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestHelperHook(t *testing.T) {
	t.Run("streams raw input lines", func(t *testing.T) {
		script := writeHelperScript(t, `
echo '{"kind":"pointer_move","x":500,"y":400}'
echo 'garbage line'
echo '{"kind":"key","code":"pgdn","action":"down"}'
sleep 5`)
		h := &HelperHook{Helper: []string{script}}

		events, err := h.Start(context.Background())
		require.NoError(t, err)

		first := <-events
		assert.Equal(t, domain.KindPointerMove, first.Kind)
		assert.Equal(t, 500, first.X)

		second := <-events
		assert.Equal(t, domain.KindKey, second.Kind)
		assert.Equal(t, "pgdn", second.Code)

		require.NoError(t, h.Stop())
	})

	t.Run("second start is rejected while active", func(t *testing.T) {
		script := writeHelperScript(t, `sleep 5`)
		h := &HelperHook{Helper: []string{script}}

		_, err := h.Start(context.Background())
		require.NoError(t, err)
		_, err = h.Start(context.Background())
		require.Error(t, err)

		require.NoError(t, h.Stop())
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		h := &HelperHook{Helper: []string{"whatever"}}
		assert.NoError(t, h.Stop())
	})
}
