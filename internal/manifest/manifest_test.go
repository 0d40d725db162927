// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/medscan/pkg/types"
)

const sampleManifest = `---
name: medscan-run
description: Batch analysis of 5 medical files
---

# medscan-run

Generated: 2026-08-30 14:02:11

## Processing Statistics

- Total Files: 5
- Successfully Processed: 4
- Success Rate: 80.0%

## System Information

- Device Used: cuda
- Data Type: bfloat16
- Model: claude-sonnet-4-5-20250929

## Output Files
- ` + "`results.json`" + `
- ` + "`analysis_report.txt`" + `
`

func writeManifest(t *testing.T, dir, folder, content string) string {
	t.Helper()
	archiveDir := filepath.Join(dir, folder)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(archiveDir, ManifestFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "20260830-140211-run", sampleManifest)

	meta, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if meta.Name != "medscan-run" {
		t.Errorf("Name = %q", meta.Name)
	}
	if meta.Description != "Batch analysis of 5 medical files" {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.ArchiveFolder != "20260830-140211-run" {
		t.Errorf("ArchiveFolder = %q", meta.ArchiveFolder)
	}
	if meta.GeneratedTimestamp != "2026-08-30 14:02:11" {
		t.Errorf("GeneratedTimestamp = %q", meta.GeneratedTimestamp)
	}
	if meta.TotalFiles != 5 || meta.SuccessfullyProcessed != 4 {
		t.Errorf("counts = %d/%d, want 5/4", meta.TotalFiles, meta.SuccessfullyProcessed)
	}
	if meta.SuccessRate != 80.0 {
		t.Errorf("SuccessRate = %v, want 80.0", meta.SuccessRate)
	}
	if meta.DeviceUsed != "cuda" || meta.DataType != "bfloat16" {
		t.Errorf("system info = %q/%q", meta.DeviceUsed, meta.DataType)
	}
	if meta.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("Model = %q", meta.Model)
	}
	want := []string{"results.json", "analysis_report.txt"}
	if len(meta.OutputFiles) != len(want) {
		t.Fatalf("OutputFiles = %v, want %v", meta.OutputFiles, want)
	}
	for i := range want {
		if meta.OutputFiles[i] != want[i] {
			t.Errorf("OutputFiles[%d] = %q, want %q", i, meta.OutputFiles[i], want[i])
		}
	}
}

func TestParseDefaults(t *testing.T) {
	// Only the required fields present; everything else should default.
	minimal := "---\nname: minimal\ndescription: tiny archive\n---\n"
	path := writeManifest(t, t.TempDir(), "20260101-000000-run", minimal)

	meta, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.GeneratedTimestamp != "Unknown" {
		t.Errorf("GeneratedTimestamp = %q, want Unknown", meta.GeneratedTimestamp)
	}
	if meta.TotalFiles != 0 || meta.SuccessfullyProcessed != 0 {
		t.Errorf("counts should default to 0")
	}
	if meta.SuccessRate != 0.0 {
		t.Errorf("SuccessRate = %v, want 0.0", meta.SuccessRate)
	}
	if meta.DeviceUsed != "Unknown" || meta.DataType != "Unknown" || meta.Model != "Unknown" {
		t.Errorf("system info should default to Unknown")
	}
	if meta.OutputFiles != nil {
		t.Errorf("OutputFiles = %v, want nil", meta.OutputFiles)
	}
}

func TestParseRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "description: something\nTotal Files: 3\n"},
		{"missing description", "name: something\nTotal Files: 3\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), "archive", tt.content)
			if _, err := Parse(path); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope", ManifestFile))
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	in := &types.ArchiveMetadata{
		Name:                  "medscan-run",
		Description:           "Round trip test",
		GeneratedTimestamp:    "2026-08-31 09:00:00",
		TotalFiles:            7,
		SuccessfullyProcessed: 7,
		SuccessRate:           100.0,
		DeviceUsed:            "cpu",
		DataType:              "float32",
		Model:                 "gemini-2.5-flash",
		OutputFiles:           []string{"results.json", "analysis_report.txt"},
	}

	path := filepath.Join(t.TempDir(), "archive")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	mfPath := filepath.Join(path, ManifestFile)
	if err := Write(mfPath, in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := Parse(mfPath)
	if err != nil {
		t.Fatalf("Parse after Write: %v", err)
	}

	if out.Name != in.Name || out.Description != in.Description {
		t.Errorf("identity fields did not round-trip: %+v", out)
	}
	if out.TotalFiles != in.TotalFiles || out.SuccessfullyProcessed != in.SuccessfullyProcessed {
		t.Errorf("counts did not round-trip: %+v", out)
	}
	if out.SuccessRate != in.SuccessRate {
		t.Errorf("SuccessRate = %v, want %v", out.SuccessRate, in.SuccessRate)
	}
	if out.DeviceUsed != in.DeviceUsed || out.DataType != in.DataType || out.Model != in.Model {
		t.Errorf("system info did not round-trip: %+v", out)
	}
	if len(out.OutputFiles) != 2 {
		t.Fatalf("OutputFiles = %v", out.OutputFiles)
	}
}

func TestParseAll(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "20260830-valid", sampleManifest)
	writeManifest(t, dir, "20260831-broken", "no required fields here\n")

	// A stray plain file should be ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := ParseAll(dir)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("got %d manifests, want 1", len(metas))
	}
	if _, ok := metas["20260830-valid"]; !ok {
		t.Errorf("missing valid archive, got %v", metas)
	}
}

func TestParseAllMissingDir(t *testing.T) {
	metas, err := ParseAll(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("expected empty map")
	}
}

func TestRenderMatchableLabels(t *testing.T) {
	// The rendered document must contain the exact labels the parser
	// patterns match on.
	doc, err := Render(&types.ArchiveMetadata{Name: "n", Description: "d", SuccessRate: 50.0})
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{"name:", "description:", "Generated:", "Total Files:", "Successfully Processed:", "Success Rate:", "Device Used:", "Data Type:", "Model:", "Output Files"} {
		if !strings.Contains(doc, label) {
			t.Errorf("rendered manifest missing label %q", label)
		}
	}
}
