// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/internal/manifest"
	"github.com/pdiddy/medscan/pkg/types"
)

// insightPrompt is the fixed instruction for archive re-analysis. It covers
// both the all-succeeded and partial-failure framings; which applies is
// decided by the context block the model receives.
const insightPrompt = "Analyze this archive report and generate concise key insights, patterns, and recommendations. " +
	"Focus on critical findings and actionable insights. " +
	"If success rate is 100%, highlight what worked well. " +
	"If there were failures, analyze the root causes and suggest improvements."

// Policy defaults. The thresholds bound prompt size, not correctness, and
// are overridable through ArchiveConfig.
const (
	defaultRateThreshold = 100.0
	defaultFileThreshold = 3
	defaultPreviewLimit  = 150
)

// summarizeArchive re-analyzes a prior run. The manifest is always read; the
// plaintext report and the detailed results are loaded only when the policy
// says the extra context is worth sending downstream:
//
//  1. report: success rate below the rate threshold (failures need narrative)
//  2. results: file count above the file threshold, or any failures
//
// A missing or unparsable manifest is a designed negative result, not an
// error. A failed insight call degrades to returning the assembled context
// so the manifest-derived facts are never lost.
func (r *Router) summarizeArchive(ctx context.Context, archiveName string) (string, error) {
	archiveDir := filepath.Join(r.Discovery.OutputDir, archiveName)

	fmt.Fprintf(r.Progress, "processing archive folder %s\n", archiveDir)

	meta, err := manifest.Parse(filepath.Join(archiveDir, manifest.ManifestFile))
	if err != nil {
		fmt.Fprintf(r.Progress, "warning: %v\n", err)
		return fmt.Sprintf("Invalid archive folder: %s (SKILL.md not found or invalid)", archiveName), nil
	}

	rateThreshold := r.Archive.DetailRateThreshold
	if rateThreshold <= 0 {
		rateThreshold = defaultRateThreshold
	}
	fileThreshold := r.Archive.DetailFileThreshold
	if fileThreshold <= 0 {
		fileThreshold = defaultFileThreshold
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Archive Analysis: %s\n", archiveName)
	b.WriteString(strings.Repeat("=", 80) + "\n\n")
	b.WriteString("SKILL METADATA:\n")
	fmt.Fprintf(&b, "  Name: %s\n", meta.Name)
	fmt.Fprintf(&b, "  Description: %s\n", meta.Description)
	fmt.Fprintf(&b, "  Generated: %s\n", meta.GeneratedTimestamp)
	fmt.Fprintf(&b, "  Total Files: %d\n", meta.TotalFiles)
	fmt.Fprintf(&b, "  Successfully Processed: %d\n", meta.SuccessfullyProcessed)
	fmt.Fprintf(&b, "  Success Rate: %.1f%%\n", meta.SuccessRate)
	fmt.Fprintf(&b, "  Device: %s\n", meta.DeviceUsed)
	fmt.Fprintf(&b, "  Model: %s\n\n", meta.Model)

	// Load the failure narrative only when there were failures.
	if meta.SuccessRate < rateThreshold {
		r.appendReport(&b, archiveDir, archiveName)
	} else {
		b.WriteString("Note: All files processed successfully. Detailed report skipped.\n\n")
	}

	// Load per-file details only when the run was large or had failures.
	if meta.TotalFiles > fileThreshold || meta.SuccessRate < rateThreshold {
		r.appendResults(&b, archiveDir, archiveName)
	}

	b.WriteString("\n")
	contextBlock := b.String()

	fmt.Fprintf(r.Progress, "generating insights for archive %s\n", archiveName)

	insights, err := r.Backend.Generate(ctx, []inference.Block{
		inference.Text(contextBlock),
		inference.Text(insightPrompt),
	}, r.MaxTokens)
	if err != nil {
		fmt.Fprintf(r.Progress, "warning: could not generate insights for archive %s: %v\n", archiveName, err)
		return "Archive processed successfully.\n" + contextBlock, nil
	}

	return "Archive Analysis Insights:\n\n" + insights, nil
}

// appendReport appends the prior run's plaintext report. A missing report is
// a warning, not a failure; the metadata block already carries the facts.
func (r *Router) appendReport(b *strings.Builder, archiveDir, archiveName string) {
	data, err := os.ReadFile(filepath.Join(archiveDir, manifest.ReportFile))
	if err != nil {
		fmt.Fprintf(r.Progress, "warning: analysis report not found for archive %s\n", archiveName)
		return
	}
	b.WriteString("ANALYSIS REPORT (Read due to incomplete success):\n")
	b.Write(data)
	b.WriteString("\n")
}

// appendResults appends a bounded preview of each per-file result from the
// prior run's results.json. Full values are never included.
func (r *Router) appendResults(b *strings.Builder, archiveDir, archiveName string) {
	data, err := os.ReadFile(filepath.Join(archiveDir, manifest.ResultsFile))
	if err != nil {
		fmt.Fprintf(r.Progress, "warning: results file not found for archive %s\n", archiveName)
		return
	}

	var summary types.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		fmt.Fprintf(r.Progress, "warning: could not read results for archive %s: %v\n", archiveName, err)
		return
	}

	b.WriteString("DETAILED PROCESSING RESULTS:\n")
	if len(summary.Results) == 0 {
		b.WriteString("  No detailed results available\n")
		return
	}

	fmt.Fprintf(b, "  Total result records: %d\n", len(summary.Results))

	limit := r.Archive.PreviewLimit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}

	// Sorted for deterministic output; the JSON mapping has no order.
	names := make([]string, 0, len(summary.Results))
	for name := range summary.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		preview := summary.Results[name]
		if len(preview) > limit {
			preview = preview[:limit]
		}
		fmt.Fprintf(b, "  - %s: %s...\n", name, preview)
	}
}
