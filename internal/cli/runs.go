package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/fastbench/fbench/internal/runindex"
)

// RunsCmd lists past benchmark runs from the local run index.
type RunsCmd struct {
	OutDir string `short:"o" help:"Output directory holding the run index (default from config)"`
	Limit  int    `default:"20" help:"Maximum number of runs to show"`
	Mode   string `help:"Only show runs for this backend mode"`
}

// Run executes the runs command.
func (c *RunsCmd) Run(globals *Globals) error {
	outDir := c.OutDir
	if outDir == "" {
		outDir = globals.Config.OutDir
	}
	index, err := runindex.Open(outDir)
	if err != nil {
		return outputErrorCommon(globals, "RUN_INDEX", err.Error())
	}
	defer index.Close()

	entries, err := index.List(c.Limit)
	if err != nil {
		return outputErrorCommon(globals, "RUN_INDEX", err.Error())
	}
	if c.Mode != "" {
		entries = lo.Filter(entries, func(e runindex.Entry, _ int) bool {
			return e.Mode == c.Mode
		})
	}

	if globals.Format == "ndjson" {
		enc := json.NewEncoder(globals.Stdout)
		for _, e := range entries {
			if err := enc.Encode(map[string]any{
				"type":          "run",
				"schemaVersion": 1,
				"run_id":        e.RunID,
				"mode":          e.Mode,
				"source":        e.Source,
				"cache_policy":  e.CachePolicy,
				"state":         e.State,
				"started_at":    e.StartedAt.Format(time.RFC3339),
				"error":         e.Error,
				"manifest":      e.ManifestPath,
			}); err != nil {
				return err
			}
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(globals.Stdout, "No runs recorded yet.")
		return nil
	}
	table := tablewriter.NewTable(globals.Stdout)
	table.Header("Run ID", "Mode", "Source", "Cache", "State", "Started", "Error")
	for _, e := range entries {
		table.Append(shortID(e.RunID), e.Mode, e.Source, e.CachePolicy, e.State,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Error)
	}
	return table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
