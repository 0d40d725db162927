// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	response string
	err      error
	calls    int
	blocks   [][]inference.Block
}

func (m *mockBackend) Generate(_ context.Context, blocks []inference.Block, _ int) (string, error) {
	m.calls++
	m.blocks = append(m.blocks, blocks)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockBackend) lastBlocks() []inference.Block {
	if len(m.blocks) == 0 {
		return nil
	}
	return m.blocks[len(m.blocks)-1]
}

func newTestRouter(backend inference.Backend, inputDir, outputDir string) *Router {
	return NewRouter(backend, types.DiscoveryConfig{
		InputDir:  inputDir,
		OutputDir: outputDir,
	}, types.ArchiveConfig{}, 2000, io.Discard)
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- router dispatch ---

func TestRouteTextRecord(t *testing.T) {
	inputDir := t.TempDir()
	write(t, inputDir, "patient.txt", "45 year old, hypertension history")

	backend := &mockBackend{response: "summary text"}
	r := newTestRouter(backend, inputDir, t.TempDir())

	out, err := r.Route(context.Background(), types.Item{Name: "patient.txt", Kind: types.KindTextRecord})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out != "summary text" {
		t.Errorf("got %q", out)
	}

	blocks := backend.lastBlocks()
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Text != "45 year old, hypertension history" {
		t.Errorf("first block should carry the record text, got %q", blocks[0].Text)
	}
	if !strings.Contains(blocks[1].Text, "medical history") {
		t.Errorf("second block should carry the record prompt, got %q", blocks[1].Text)
	}
}

func TestRouteImage(t *testing.T) {
	inputDir := t.TempDir()
	imgBytes := []byte{0xff, 0xd8, 0xff, 0xe0}
	if err := os.WriteFile(filepath.Join(inputDir, "xray.png"), imgBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	backend := &mockBackend{response: "chest x-ray, no abnormalities"}
	r := newTestRouter(backend, inputDir, t.TempDir())

	out, err := r.Route(context.Background(), types.Item{Name: "xray.png", Kind: types.KindImage})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out != "chest x-ray, no abnormalities" {
		t.Errorf("got %q", out)
	}

	blocks := backend.lastBlocks()
	if len(blocks) != 2 || !blocks[0].IsImage() {
		t.Fatalf("expected image block first, got %+v", blocks)
	}
	if blocks[0].MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", blocks[0].MIME)
	}
	if !strings.Contains(blocks[1].Text, "abnormalities") {
		t.Errorf("second block should carry the image prompt, got %q", blocks[1].Text)
	}
}

func TestRouteUnsupportedNoBackendCall(t *testing.T) {
	backend := &mockBackend{response: "should never be returned"}
	r := newTestRouter(backend, t.TempDir(), t.TempDir())

	out, err := r.Route(context.Background(), types.Item{Name: "weird.pdf", Kind: types.KindUnsupported})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out != "Unsupported file type: .pdf" {
		t.Errorf("got %q", out)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for unsupported item", backend.calls)
	}
}

func TestRouteMissingFileErrors(t *testing.T) {
	backend := &mockBackend{}
	r := newTestRouter(backend, t.TempDir(), t.TempDir())

	_, err := r.Route(context.Background(), types.Item{Name: "absent.txt", Kind: types.KindTextRecord})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if backend.calls != 0 {
		t.Errorf("backend should not be called when the read fails")
	}
}

func TestRouteBackendErrorPropagates(t *testing.T) {
	inputDir := t.TempDir()
	write(t, inputDir, "patient.txt", "record")

	backend := &mockBackend{err: fmt.Errorf("model unavailable")}
	r := newTestRouter(backend, inputDir, t.TempDir())

	_, err := r.Route(context.Background(), types.Item{Name: "patient.txt", Kind: types.KindTextRecord})
	if err == nil {
		t.Fatal("expected backend error to propagate")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("error should wrap the backend failure: %v", err)
	}
}
