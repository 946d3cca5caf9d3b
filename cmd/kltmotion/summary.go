package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
)

// writeSummary renders one row per frame.
func writeSummary(w io.Writer, results []frameResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Frame", "Tracked", "Spawned", "Dropped", "Active", "Inliers", "Motion"})
	for _, result := range results {
		inliers, motion := "-", "-"
		if result.Motion != nil {
			inliers = fmt.Sprintf("%d", len(result.Motion.Inliers))
			motion = result.Motion.Transform.String()
		}
		t.AppendRow(table.Row{
			result.Index,
			filepath.Base(result.Path),
			result.Tracked,
			result.Spawned,
			result.Dropped,
			result.Active,
			inliers,
			motion,
		})
	}
	t.Render()
}
