// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest reads and writes SKILL.md archive manifests. A manifest
// summarizes one completed pipeline run; later runs parse it to decide how
// much prior-run context to re-analyze.
// Implements: prd003-archive-insight (R1, R2);
//
//	docs/ARCHITECTURE § Archives.
package manifest

// ManifestFile is the manifest filename inside an archive folder.
const ManifestFile = "SKILL.md"

// ReportFile is the plaintext report filename inside an archive folder.
const ReportFile = "analysis_report.txt"

// ResultsFile is the serialized per-item results filename inside an
// archive folder.
const ResultsFile = "results.json"
