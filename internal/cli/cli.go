// Package cli wires the fbench commands together.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fastbench/fbench/internal/config"
)

// CLI is the root command tree parsed by kong.
type CLI struct {
	Format  string `help:"Output format: ndjson or text" enum:"ndjson,text" default:"${config_format}"`
	Quiet   bool   `short:"q" help:"Suppress informational output"`
	Verbose bool   `short:"v" help:"Enable verbose debug logging"`

	Run    RunCmd    `cmd:"" help:"Execute one benchmark run"`
	Record RecordCmd `cmd:"" help:"Record an interaction session to an event log"`
	Replay ReplayCmd `cmd:"" help:"Replay a recorded event log (dry verification)"`
	Sample SampleCmd `cmd:"" help:"Run the telemetry sampler (spawned by 'run')"`
	Runs   RunsCmd   `cmd:"" help:"List past benchmark runs"`
	Config ConfigCmd `cmd:"" help:"Inspect configuration"`
}

// Globals carries shared command state.
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
}

// NewGlobalsWithConfig builds Globals from parsed flags with config fallbacks.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	return g
}

// Debug prints a debug line when verbose mode is on.
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "[debug] "+format+"\n", args...)
	}
}
