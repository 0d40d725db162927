// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"github.com/pdiddy/medscan/pkg/types"
)

// GeminiBackend is a thin wrapper around the official genai client.
type GeminiBackend struct {
	cli   *genai.Client
	model string
}

// NewGeminiBackend builds a GeminiBackend from config. When cfg.APIKey is
// empty the genai client falls back to its environment variables.
func NewGeminiBackend(ctx context.Context, cfg types.InferenceConfig) (*GeminiBackend, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiBackend{cli: cli, model: cfg.Model}, nil
}

// Generate bundles the blocks as one user turn and returns the model's text.
func (g *GeminiBackend) Generate(ctx context.Context, blocks []Block, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	parts := make([]*genai.Part, 0, len(blocks))
	for _, b := range blocks {
		if b.IsImage() {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: b.MIME, Data: b.Image},
			})
			continue
		}
		parts = append(parts, &genai.Part{Text: b.Text})
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)},
	)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty Gemini response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
