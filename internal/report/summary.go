// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/pkg/types"
)

// summaryPrompt is the fixed instruction for the holistic narrative.
const summaryPrompt = "Summarize the overall findings from all processed files in maximum 500 words. " +
	"Highlight any critical insights, common patterns, or notable observations across the dataset. " +
	"Provide a concise summary that captures the key takeaways from the analysis."

const banner = "================================================================================"
const rule = "--------------------------------------------------------------------------------"

// rawSummary mirrors the results.json document with loosely typed result
// values, so summaries written by other tooling still render.
type rawSummary struct {
	TotalFiles     int            `json:"total_files"`
	ProcessedFiles int            `json:"processed_files"`
	Results        map[string]any `json:"results"`
}

// Summarize reads the persisted run summary, asks the backend for a
// holistic narrative, and writes the analysis report to
// outputDir/analysis_report.txt. A missing summary file is a no-op, not an
// error. A failed model call is a run-level failure: without the narrative
// there is no report to write.
func Summarize(ctx context.Context, backend inference.Backend, state *types.RunState, outputDir string, maxTokens int, w io.Writer) error {
	summaryPath := filepath.Join(outputDir, SummaryFile)
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(w, "no %s found, skipping summary generation\n", SummaryFile)
			return nil
		}
		return fmt.Errorf("reading run summary: %w", err)
	}

	var summary rawSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return fmt.Errorf("parsing run summary: %w", err)
	}

	fmt.Fprintf(w, "generating summary report from %s\n", SummaryFile)

	narrative, err := backend.Generate(ctx, []inference.Block{
		inference.Text(renderResults(summary.Results)),
		inference.Text(summaryPrompt),
	}, maxTokens)
	if err != nil {
		return fmt.Errorf("generating summary narrative: %w", err)
	}

	reportText := renderReport(summary, narrative)

	path := filepath.Join(outputDir, ReportFile)
	if err := os.WriteFile(path, []byte(reportText), 0o644); err != nil {
		return fmt.Errorf("writing analysis report: %w", err)
	}

	fmt.Fprintf(w, "report saved to %s\n", path)

	state.Logf("Generated comprehensive analysis report.")
	return nil
}

// renderResults concatenates result values into the context blob sent to
// the model. String values pass through as-is; structured values render as
// indented JSON. Keys are sorted so the blob is deterministic.
func renderResults(results map[string]any) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		switch v := results[name].(type) {
		case string:
			b.WriteString("  " + v)
		default:
			text, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				text = []byte(fmt.Sprintf("%v", v))
			}
			b.WriteString("  " + string(text))
		}
	}
	return b.String()
}

// renderReport formats the final plaintext report.
func renderReport(summary rawSummary, narrative string) string {
	lines := []string{
		"",
		banner,
		"COMPREHENSIVE ANALYSIS REPORT",
		banner,
		"",
		"Processing Summary:",
		fmt.Sprintf("  - Total files processed: %d", summary.TotalFiles),
		fmt.Sprintf("  - Successfully processed: %d", summary.ProcessedFiles),
		fmt.Sprintf("  - Success rate: %.1f%%", SuccessPercent(summary.ProcessedFiles, summary.TotalFiles)),
		"",
		"Detailed Analysis Results:",
		rule,
		"",
		narrative,
		"",
		"",
		banner,
		"END OF REPORT",
		banner,
		"",
	}
	return strings.Join(lines, "\n")
}
