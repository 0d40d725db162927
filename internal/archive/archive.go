// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive snapshots a completed run into a timestamped folder in
// the output directory, making it discoverable as an archive item by later
// runs. It also lists existing archives for the CLI and REST surfaces.
// Implements: prd003-archive-insight (R1, R2);
//
//	docs/ARCHITECTURE § Archiving.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/medscan/internal/discover"
	"github.com/pdiddy/medscan/internal/manifest"
	"github.com/pdiddy/medscan/internal/report"
	"github.com/pdiddy/medscan/pkg/types"
)

// now is replaced in tests to pin folder names.
var now = time.Now

// folderTimeFormat orders snapshot folders lexicographically by creation
// time, which discovery relies on for its descending sort.
const folderTimeFormat = "20060102-150405"

// Snapshot copies the run outputs (results.json, analysis_report.txt) from
// outputDir into a new timestamped folder and writes its SKILL.md manifest.
// Returns the folder name. Fails when outputDir holds no run summary.
func Snapshot(outputDir string, inference types.InferenceConfig, w io.Writer) (string, error) {
	summaryPath := filepath.Join(outputDir, report.SummaryFile)
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		return "", fmt.Errorf("reading run summary: %w", err)
	}
	var summary types.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return "", fmt.Errorf("parsing run summary: %w", err)
	}

	ts := now()
	name := ts.Format(folderTimeFormat) + "-run"
	dir := filepath.Join(outputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive folder: %w", err)
	}

	var outputFiles []string
	for _, f := range []string{report.SummaryFile, report.ReportFile} {
		if err := copyFile(filepath.Join(outputDir, f), filepath.Join(dir, f)); err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(w, "warning: %s not found, archiving without it\n", f)
				continue
			}
			return "", err
		}
		outputFiles = append(outputFiles, f)
	}

	meta := &types.ArchiveMetadata{
		Name:                  name,
		Description:           fmt.Sprintf("Medical file analysis run, %d file(s) processed", summary.TotalFiles),
		ArchiveFolder:         name,
		GeneratedTimestamp:    ts.Format("2006-01-02 15:04:05"),
		TotalFiles:            summary.TotalFiles,
		SuccessfullyProcessed: summary.ProcessedFiles,
		SuccessRate:           report.SuccessPercent(summary.ProcessedFiles, summary.TotalFiles),
		DeviceUsed:            string(inference.Provider),
		DataType:              "multimodal",
		Model:                 inference.Model,
		OutputFiles:           outputFiles,
	}
	if err := manifest.Write(filepath.Join(dir, manifest.ManifestFile), meta); err != nil {
		return "", err
	}

	fmt.Fprintf(w, "archived run to %s\n", dir)
	return name, nil
}

// List returns metadata for every valid archive folder in outputDir, keyed
// by folder name. A missing directory yields an empty map.
func List(outputDir string) (map[string]*types.ArchiveMetadata, error) {
	return manifest.ParseAll(outputDir)
}

// Load returns metadata for a single archive folder, or an error when the
// folder is missing or its manifest is invalid.
func Load(outputDir, name string) (*types.ArchiveMetadata, error) {
	dir := filepath.Join(outputDir, name)
	if !discover.IsArchiveFolder(dir) {
		return nil, fmt.Errorf("not a valid archive folder: %s", name)
	}
	return manifest.Parse(filepath.Join(dir, manifest.ManifestFile))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
