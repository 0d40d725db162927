// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medscan/internal/discover"
	"github.com/pdiddy/medscan/internal/manifest"
	"github.com/pdiddy/medscan/internal/report"
	"github.com/pdiddy/medscan/pkg/types"
)

func pinClock(t *testing.T, ts time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
}

func writeRunOutputs(t *testing.T, outputDir string, summary types.RunSummary) {
	t.Helper()
	data, err := json.Marshal(summary)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, report.SummaryFile), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, report.ReportFile), []byte("narrative"), 0o644))
}

func testInference() types.InferenceConfig {
	return types.InferenceConfig{Provider: types.ProviderClaude, Model: "test-model"}
}

func TestSnapshot(t *testing.T) {
	outputDir := t.TempDir()
	writeRunOutputs(t, outputDir, types.RunSummary{
		TotalFiles:     4,
		ProcessedFiles: 3,
		Results:        map[string]string{"a.txt": "ok"},
	})
	pinClock(t, time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC))

	name, err := Snapshot(outputDir, testInference(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "20260830-140500-run", name)

	dir := filepath.Join(outputDir, name)
	assert.True(t, discover.IsArchiveFolder(dir), "snapshot must be discoverable as an archive")

	meta, err := manifest.Parse(filepath.Join(dir, manifest.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, name, meta.Name)
	assert.Equal(t, 4, meta.TotalFiles)
	assert.Equal(t, 3, meta.SuccessfullyProcessed)
	assert.Equal(t, 75.0, meta.SuccessRate)
	assert.Equal(t, "claude", meta.DeviceUsed)
	assert.Equal(t, "test-model", meta.Model)
	assert.Equal(t, []string{report.SummaryFile, report.ReportFile}, meta.OutputFiles)

	copied, err := os.ReadFile(filepath.Join(dir, report.ReportFile))
	require.NoError(t, err)
	assert.Equal(t, "narrative", string(copied))
}

func TestSnapshotWithoutSummaryFails(t *testing.T) {
	_, err := Snapshot(t.TempDir(), testInference(), io.Discard)
	require.Error(t, err)
}

func TestSnapshotMissingReportDegrades(t *testing.T) {
	outputDir := t.TempDir()
	writeRunOutputs(t, outputDir, types.RunSummary{TotalFiles: 1, ProcessedFiles: 1})
	require.NoError(t, os.Remove(filepath.Join(outputDir, report.ReportFile)))

	name, err := Snapshot(outputDir, testInference(), io.Discard)
	require.NoError(t, err)

	meta, err := manifest.Parse(filepath.Join(outputDir, name, manifest.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, []string{report.SummaryFile}, meta.OutputFiles)
}

func TestSnapshotNamesSortDescending(t *testing.T) {
	outputDir := t.TempDir()
	writeRunOutputs(t, outputDir, types.RunSummary{TotalFiles: 1, ProcessedFiles: 1})

	pinClock(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	older, err := Snapshot(outputDir, testInference(), io.Discard)
	require.NoError(t, err)

	pinClock(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	newer, err := Snapshot(outputDir, testInference(), io.Discard)
	require.NoError(t, err)

	assert.Greater(t, newer, older, "later snapshots must sort after earlier ones")
}

func TestListAndLoad(t *testing.T) {
	outputDir := t.TempDir()
	writeRunOutputs(t, outputDir, types.RunSummary{TotalFiles: 2, ProcessedFiles: 2})
	pinClock(t, time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC))

	name, err := Snapshot(outputDir, testInference(), io.Discard)
	require.NoError(t, err)

	metas, err := List(outputDir)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Contains(t, metas, name)

	meta, err := Load(outputDir, name)
	require.NoError(t, err)
	assert.Equal(t, name, meta.ArchiveFolder)

	_, err = Load(outputDir, "nope")
	require.Error(t, err)
}

func TestListEmptyOutputDir(t *testing.T) {
	metas, err := List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, metas)
}
