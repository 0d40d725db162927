// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "medscan/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// InferenceProvider identifies the multimodal model backend.
// Per prd002-processing R4.1.
type InferenceProvider string

const (
	ProviderClaude InferenceProvider = "claude"
	ProviderGemini InferenceProvider = "gemini"
)

// InferenceConfig holds settings for the multimodal inference backend.
type InferenceConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the backend: claude or gemini.
	Provider InferenceProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens is the per-call generation budget (default 2000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DiscoveryConfig holds settings for the discovery stage.
// Per prd001-discovery R1, R3.
type DiscoveryConfig struct {
	// InputDir is the directory scanned for input files (.txt records and
	// .jpg/.jpeg/.png images). A missing directory yields zero files.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir is the directory scanned for prior-run archive folders and
	// written to by finalization and reporting.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// ScanArchives controls whether prior-run archive folders in OutputDir
	// are added to the work list. Archive folder names must be
	// timestamp-prefixed; discovery sorts them descending so the most
	// recent run comes first, which has no defined meaning otherwise.
	ScanArchives bool `json:"scan_archives" yaml:"scan_archives"`
}

// ArchiveConfig holds the context-loading policy for archive re-analysis.
// The thresholds bound how much prior-run context is sent to the model;
// they are cost controls, not correctness rules, and are deliberately
// tunable. Per prd003-archive-insight R3, R4.
type ArchiveConfig struct {
	// DetailRateThreshold is the success rate (percent) below which the
	// prior run's report and detailed results are loaded (default 100.0).
	DetailRateThreshold float64 `json:"detail_rate_threshold" yaml:"detail_rate_threshold"`

	// DetailFileThreshold is the file count above which detailed results
	// are loaded even for fully successful runs (default 3).
	DetailFileThreshold int `json:"detail_file_threshold" yaml:"detail_file_threshold"`

	// PreviewLimit caps the per-entry result preview length in characters
	// (default 150).
	PreviewLimit int `json:"preview_limit" yaml:"preview_limit"`

	// AutoArchive snapshots each successful run into a timestamped archive
	// folder, making it an input for the next run.
	AutoArchive bool `json:"auto_archive" yaml:"auto_archive"`
}

// StoreConfig holds settings for the run history store.
// Per prd005-run-store R1.
type StoreConfig struct {
	// StateDir is the directory holding the SQLite run database.
	StateDir string `json:"state_dir" yaml:"state_dir"`
}

// ServerConfig holds settings for the REST service.
// Per prd006-service R1.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
	Inference InferenceConfig `json:"inference" yaml:"inference"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Server    ServerConfig    `json:"server" yaml:"server"`
}
