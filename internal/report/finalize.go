// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report aggregates per-item results into the run summary and
// renders the human-readable analysis report.
// Implements: prd004-reporting (R1-R4);
//
//	docs/ARCHITECTURE § Reporting.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/medscan/pkg/types"
)

// SummaryFile is the run summary filename in the output directory.
const SummaryFile = "results.json"

// ReportFile is the analysis report filename in the output directory.
const ReportFile = "analysis_report.txt"

// Finalize aggregates the run state into a RunSummary and writes it to
// outputDir/results.json, overwriting prior content wholesale. Finalize is
// idempotent: the same state always produces byte-identical output.
func Finalize(state *types.RunState, outputDir string, w io.Writer) (*types.RunSummary, error) {
	summary := &types.RunSummary{
		TotalFiles:     len(state.Items),
		ProcessedFiles: len(state.Results),
		Results:        state.Results,
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling run summary: %w", err)
	}

	path := filepath.Join(outputDir, SummaryFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing run summary: %w", err)
	}

	fmt.Fprintf(w, "results saved to %s\n", path)

	state.Logf("Processing complete. %d/%d files processed successfully.",
		summary.ProcessedFiles, summary.TotalFiles)

	return summary, nil
}

// SuccessPercent computes processed/total as a percentage with the divisor
// guarded to a minimum of 1, so an empty run reports 0.0 rather than
// dividing by zero.
func SuccessPercent(processed, total int) float64 {
	if total < 1 {
		total = 1
	}
	return float64(processed) / float64(total) * 100.0
}
