// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inference abstracts the multimodal model API behind a single-call
// contract: a sequence of content blocks in, one generated string out.
// Implements: prd002-processing (R4);
//
//	docs/ARCHITECTURE § Inference Boundary.
package inference

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/medscan/pkg/types"
)

// Block is one content block in a model request: either text or image
// bytes, never both.
type Block struct {
	Text  string
	Image []byte
	MIME  string
}

// Text builds a text block.
func Text(s string) Block {
	return Block{Text: s}
}

// Image builds an image block from raw bytes and a media type
// (e.g. "image/png").
func Image(data []byte, mime string) Block {
	return Block{Image: data, MIME: mime}
}

// IsImage reports whether the block carries image bytes.
func (b Block) IsImage() bool {
	return len(b.Image) > 0
}

// Backend is the multimodal inference boundary. Implementations bundle the
// blocks as one user turn and return the generated text. Errors must be
// returned, never panicked, so callers can route them into the item-level
// failure path.
type Backend interface {
	Generate(ctx context.Context, blocks []Block, maxTokens int) (string, error)
}

// MIMEForExt maps a lowercase image extension to its media type.
// Unknown extensions fall back to image/jpeg.
func MIMEForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}

// New constructs the backend selected by cfg.Provider. The API key must
// already be resolved into cfg.APIKey. Progress and retry notices are
// written to w.
func New(ctx context.Context, cfg types.InferenceConfig, w io.Writer) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderClaude, "":
		return NewClaudeBackend(cfg, w), nil
	case types.ProviderGemini:
		return NewGeminiBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
}
