// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medscan/internal/archive"
	"github.com/pdiddy/medscan/internal/runstore"
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Inspect and create archived runs",
}

var archivesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs in the output directory",
	RunE:  runArchivesList,
}

var archivesSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Archive the latest run outputs into a timestamped folder",
	Long: `Snapshot copies results.json and analysis_report.txt into a new
timestamped folder under the output directory and writes its SKILL.md
manifest, making the run discoverable as an archive item by later runs.`,
	RunE: runArchivesSnapshot,
}

var archivesRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show run history from the checkpoint store",
	RunE:  runArchivesRuns,
}

func init() {
	addPipelineFlags(archivesListCmd)
	addPipelineFlags(archivesSnapshotCmd)
	addPipelineFlags(archivesRunsCmd)
	archivesRunsCmd.Flags().Int("limit", 20, "number of runs to show")

	archivesCmd.AddCommand(archivesListCmd)
	archivesCmd.AddCommand(archivesSnapshotCmd)
	archivesCmd.AddCommand(archivesRunsCmd)
	rootCmd.AddCommand(archivesCmd)
}

func runArchivesList(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	metas, err := archive.List(cfg.Discovery.OutputDir)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No archived runs found.")
		return nil
	}

	names := make([]string, 0, len(metas))
	for name := range metas {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		m := metas[name]
		fmt.Printf("%s  %d/%d file(s)  %.1f%%  model=%s\n",
			name, m.SuccessfullyProcessed, m.TotalFiles, m.SuccessRate, m.Model)
	}
	return nil
}

func runArchivesSnapshot(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	name, err := archive.Snapshot(cfg.Discovery.OutputDir, cfg.Inference, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("Archived run as %s\n", name)
	return nil
}

func runArchivesRuns(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := runstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("#%d  %s  %s  %d/%d item(s)\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status,
			r.ProcessedItems, r.TotalItems)
	}
	return nil
}
