// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/medscan/pkg/types"
)

func testClaudeServer(t *testing.T, handler http.HandlerFunc) *ClaudeBackend {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = old })

	return NewClaudeBackend(types.InferenceConfig{
		Provider: types.ProviderClaude,
		Model:    "test-model",
		APIKey:   "test-key",
	}, io.Discard)
}

func claudeTextResponse(text string) string {
	return `{"content":[{"type":"text","text":` + jsonString(text) + `}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestClaudeGenerate_TextBlocks(t *testing.T) {
	var gotReq claudeRequest
	backend := testClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		io.WriteString(w, claudeTextResponse("generated summary"))
	})

	out, err := backend.Generate(context.Background(), []Block{
		Text("patient record"),
		Text("summarize this"),
	}, 500)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "generated summary" {
		t.Errorf("got %q, want %q", out, "generated summary")
	}

	if gotReq.MaxTokens != 500 {
		t.Errorf("max_tokens = %d, want 500", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || len(gotReq.Messages[0].Content) != 2 {
		t.Fatalf("expected one message with two blocks, got %+v", gotReq.Messages)
	}
	if gotReq.Messages[0].Content[0].Type != "text" {
		t.Errorf("first block type = %q, want text", gotReq.Messages[0].Content[0].Type)
	}
}

func TestClaudeGenerate_ImageBlock(t *testing.T) {
	imgBytes := []byte{0x89, 0x50, 0x4e, 0x47}

	var gotReq claudeRequest
	backend := testClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		io.WriteString(w, claudeTextResponse("an x-ray image"))
	})

	out, err := backend.Generate(context.Background(), []Block{
		Image(imgBytes, "image/png"),
		Text("describe the image"),
	}, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "an x-ray image" {
		t.Errorf("got %q", out)
	}

	blocks := gotReq.Messages[0].Content
	if blocks[0].Type != "image" || blocks[0].Source == nil {
		t.Fatalf("expected image block first, got %+v", blocks[0])
	}
	if blocks[0].Source.MediaType != "image/png" {
		t.Errorf("media type = %q, want image/png", blocks[0].Source.MediaType)
	}
	if blocks[0].Source.Data != base64.StdEncoding.EncodeToString(imgBytes) {
		t.Errorf("image data not base64 of input bytes")
	}
	// Default budget applies when the caller passes 0.
	if gotReq.MaxTokens != 2000 {
		t.Errorf("max_tokens = %d, want default 2000", gotReq.MaxTokens)
	}
}

func TestClaudeGenerate_APIError(t *testing.T) {
	backend := testClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad request"}}`)
	})

	_, err := backend.Generate(context.Background(), []Block{Text("hi")}, 100)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestMIMEForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".png", "image/png"},
		{".PNG", "image/png"},
		{".jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".bmp", "image/jpeg"},
	}
	for _, tt := range tests {
		if got := MIMEForExt(tt.ext); got != tt.want {
			t.Errorf("MIMEForExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
