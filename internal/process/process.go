// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process routes work items to their handlers: text records and
// images go to the inference backend with fixed prompts, archive folders go
// through conditional re-analysis of a prior run.
// Implements: prd002-processing (R1-R4), prd003-archive-insight (R3-R5);
//
//	docs/ARCHITECTURE § Processing.
package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/pkg/types"
)

// recordPrompt is the fixed instruction sent with every EHR record.
const recordPrompt = "Summarize the patient's medical history and current condition based on this EHR record."

// imagePrompt is the fixed instruction sent with every medical image.
const imagePrompt = "Describe the image type and any abnormalities you see."

// Router dispatches one item to the correct handler and returns its result
// text. Handler failures are returned as errors; the pipeline controller
// converts them into formatted result strings so one bad item never aborts
// the batch.
type Router struct {
	// Backend is the injected inference boundary.
	Backend inference.Backend

	// Discovery provides the input and output directory paths.
	Discovery types.DiscoveryConfig

	// Archive is the conditional context-loading policy for archive items.
	Archive types.ArchiveConfig

	// MaxTokens is the per-call generation budget.
	MaxTokens int

	// Progress receives narrative progress and warning lines.
	Progress io.Writer
}

// NewRouter wires a router. Progress defaults to io.Discard.
func NewRouter(backend inference.Backend, discovery types.DiscoveryConfig, archive types.ArchiveConfig, maxTokens int, w io.Writer) *Router {
	if w == nil {
		w = io.Discard
	}
	return &Router{
		Backend:   backend,
		Discovery: discovery,
		Archive:   archive,
		MaxTokens: maxTokens,
		Progress:  w,
	}
}

// Route processes a single item. Unsupported extensions short-circuit to a
// literal message without touching the backend.
func (r *Router) Route(ctx context.Context, item types.Item) (string, error) {
	switch item.Kind {
	case types.KindArchiveFolder:
		return r.summarizeArchive(ctx, item.ArchiveName())
	case types.KindTextRecord:
		return r.processRecord(ctx, filepath.Join(r.Discovery.InputDir, item.Name))
	case types.KindImage:
		return r.processImage(ctx, filepath.Join(r.Discovery.InputDir, item.Name))
	default:
		return fmt.Sprintf("Unsupported file type: %s", strings.ToLower(filepath.Ext(item.Name))), nil
	}
}

// processRecord sends the full record text with the record prompt.
func (r *Router) processRecord(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading record %s: %w", path, err)
	}

	fmt.Fprintf(r.Progress, "analyzing record %s\n", filepath.Base(path))

	out, err := r.Backend.Generate(ctx, []inference.Block{
		inference.Text(string(data)),
		inference.Text(recordPrompt),
	}, r.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("analyzing record %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// processImage sends the image bytes with the image prompt.
func (r *Router) processImage(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image %s: %w", path, err)
	}

	fmt.Fprintf(r.Progress, "analyzing image %s\n", filepath.Base(path))

	out, err := r.Backend.Generate(ctx, []inference.Block{
		inference.Image(data, inference.MIMEForExt(filepath.Ext(path))),
		inference.Text(imagePrompt),
	}, r.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("analyzing image %s: %w", filepath.Base(path), err)
	}
	return out, nil
}
