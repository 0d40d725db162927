// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ArchiveMetadata holds the fields parsed from an archive folder's SKILL.md
// manifest. One instance per archive folder, derived on demand and read-only
// afterward. Per prd003-archive-insight R1.
type ArchiveMetadata struct {
	// Name and Description come from the manifest frontmatter. Both are
	// required; a manifest missing either fails to parse.
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// ArchiveFolder is the folder the manifest was read from.
	ArchiveFolder string `json:"archive_folder" yaml:"archive_folder"`

	// GeneratedTimestamp is the manifest's Generated field, kept as an
	// opaque string.
	GeneratedTimestamp string `json:"generated_timestamp" yaml:"generated_timestamp"`

	// TotalFiles and SuccessfullyProcessed are the prior run's counts.
	TotalFiles            int `json:"total_files" yaml:"total_files"`
	SuccessfullyProcessed int `json:"successfully_processed" yaml:"successfully_processed"`

	// SuccessRate is the prior run's success percentage, 0.0-100.0.
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`

	// DeviceUsed, DataType, and Model describe the runtime that produced
	// the archive. Default "Unknown" when absent.
	DeviceUsed string `json:"device_used" yaml:"device_used"`
	DataType   string `json:"data_type" yaml:"data_type"`
	Model      string `json:"model" yaml:"model"`

	// OutputFiles lists the artifact filenames recorded in the manifest's
	// Output Files section, in manifest order.
	OutputFiles []string `json:"output_files" yaml:"output_files"`
}
