// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/internal/pipeline"
	"github.com/pdiddy/medscan/internal/runstore"
	"github.com/pdiddy/medscan/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis pipeline over REST",
	Long: `Serve exposes the pipeline as an HTTP API: upload files, trigger a run,
read status, download reports, and browse archived runs. One run at a time;
a process request while a run is in flight is rejected with 409.`,
	RunE: runServe,
}

func init() {
	addPipelineFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	backend, err := inference.New(cmd.Context(), cfg.Inference, os.Stderr)
	if err != nil {
		return err
	}

	store, err := runstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := pipeline.New(cfg, backend, store, os.Stderr)
	return server.New(cfg, ctrl, store, os.Stderr).ListenAndServe()
}
