// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/internal/pipeline"
	"github.com/pdiddy/medscan/internal/runstore"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the input folder through the analysis pipeline",
	Long: `Run discovers input files and prior-run archives, processes each item
through the multimodal model in order, writes results.json, and generates
the narrative analysis report. Per-item failures are recorded inline and
never abort the batch.`,
	RunE: runRun,
}

func init() {
	addPipelineFlags(runCmd)
	runCmd.Flags().Bool("archive", false, "snapshot the run into a timestamped archive folder afterward")
	runCmd.Flags().Bool("no-store", false, "disable run history checkpointing")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	if doArchive, _ := cmd.Flags().GetBool("archive"); doArchive {
		cfg.Archive.AutoArchive = true
	}

	ctx := cmd.Context()

	backend, err := inference.New(ctx, cfg.Inference, os.Stderr)
	if err != nil {
		return err
	}

	var store *runstore.Store
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		store, err = runstore.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	ctrl := pipeline.New(cfg, backend, store, os.Stdout)
	res, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d/%d file(s); results in %s\n",
		res.Summary.ProcessedFiles, res.Summary.TotalFiles, cfg.Discovery.OutputDir)
	return nil
}
