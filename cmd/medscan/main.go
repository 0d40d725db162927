// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the medscan CLI.
// Implements: prd001-discovery, prd002-processing, prd003-archive-insight,
//             prd004-reporting, prd005-run-store, prd006-service (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/medscan/internal/secrets"
	"github.com/pdiddy/medscan/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultInputDir  = "data/input"
	defaultOutputDir = "data/output"
	defaultStateDir  = "data/state"

	defaultTimeout   = 120 * time.Second
	defaultUserAgent = "medscan/0.1"

	defaultClaudeModel = "claude-sonnet-4-5-20250929"
	defaultGeminiModel = "gemini-2.0-flash"
)

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the medscan CLI.
var rootCmd = &cobra.Command{
	Use:   "medscan",
	Short: "Medical file analysis pipeline",
	Long: `medscan processes a folder of medical files (EHR text records and
images) through a multimodal model and aggregates the results into a JSON
summary and a narrative analysis report.

Prior runs can be archived as timestamped folders; later runs pick them up
and re-analyze them with context loaded conditionally on the prior run's
size and success rate.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./medscan.yaml or ~/.config/medscan/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("medscan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "medscan"))
		}
	}

	viper.SetEnvPrefix("MEDSCAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// addPipelineFlags registers the flags shared by run and serve.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("input-dir", "", "directory of input files (default data/input)")
	cmd.Flags().String("output-dir", "", "directory for run outputs and archives (default data/output)")
	cmd.Flags().String("state-dir", "", "directory for the run history database (default data/state)")
	cmd.Flags().Bool("no-archives", false, "skip prior-run archive folders during discovery")
	cmd.Flags().String("provider", "", "inference provider: claude or gemini (default claude)")
	cmd.Flags().String("model", "", "model identifier")
	cmd.Flags().String("api-key", "", "model API key (default from .secrets/)")
	cmd.Flags().Int("max-tokens", 0, "per-call generation budget (default 2000)")
	cmd.Flags().Int("max-retries", 0, "retry attempts for rate-limited API calls (default 3)")
	cmd.Flags().Float64("detail-rate-threshold", 0, "success rate below which archive detail is loaded (default 100)")
	cmd.Flags().Int("detail-file-threshold", 0, "file count above which archive detail is loaded (default 3)")
}

// stringSetting resolves flag > config file/env > fallback.
func stringSetting(cmd *cobra.Command, flag, key, fallback string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

func intSetting(cmd *cobra.Command, flag, key string, fallback int) int {
	if v, _ := cmd.Flags().GetInt(flag); v != 0 {
		return v
	}
	if v := viper.GetInt(key); v != 0 {
		return v
	}
	return fallback
}

func floatSetting(cmd *cobra.Command, flag, key string, fallback float64) float64 {
	if v, _ := cmd.Flags().GetFloat64(flag); v != 0 {
		return v
	}
	if v := viper.GetFloat64(key); v != 0 {
		return v
	}
	return fallback
}

// pipelineConfig assembles the full configuration for run and serve.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	noArchives, _ := cmd.Flags().GetBool("no-archives")

	provider := types.InferenceProvider(stringSetting(cmd, "provider", "inference.provider", string(types.ProviderClaude)))

	model := stringSetting(cmd, "model", "inference.model", "")
	apiKey := stringSetting(cmd, "api-key", "inference.api_key", "")
	switch provider {
	case types.ProviderGemini:
		if model == "" {
			model = defaultGeminiModel
		}
		apiKey = secretDefault("gemini-api-key", apiKey)
	default:
		if model == "" {
			model = defaultClaudeModel
		}
		apiKey = secretDefault("anthropic-api-key", apiKey)
	}

	return types.PipelineConfig{
		Discovery: types.DiscoveryConfig{
			InputDir:     stringSetting(cmd, "input-dir", "discovery.input_dir", defaultInputDir),
			OutputDir:    stringSetting(cmd, "output-dir", "discovery.output_dir", defaultOutputDir),
			ScanArchives: !noArchives,
		},
		Archive: types.ArchiveConfig{
			DetailRateThreshold: floatSetting(cmd, "detail-rate-threshold", "archive.detail_rate_threshold", 100.0),
			DetailFileThreshold: intSetting(cmd, "detail-file-threshold", "archive.detail_file_threshold", 3),
		},
		Inference: types.InferenceConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   defaultTimeout,
				UserAgent: defaultUserAgent,
			},
			Provider:   provider,
			Model:      model,
			APIKey:     apiKey,
			MaxTokens:  intSetting(cmd, "max-tokens", "inference.max_tokens", 2000),
			MaxRetries: intSetting(cmd, "max-retries", "inference.max_retries", 3),
		},
		Store: types.StoreConfig{
			StateDir: stringSetting(cmd, "state-dir", "store.state_dir", defaultStateDir),
		},
		Server: types.ServerConfig{
			Addr: viper.GetString("server.addr"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
