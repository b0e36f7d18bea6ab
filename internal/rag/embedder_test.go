package rag

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

func TestNewEmbeddingClient_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingClient(EmbeddingConfig{})
	if err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
	if ragerr.CodeOf(err) != ragerr.CodeAuthentication {
		t.Errorf("expected CodeAuthentication, got %v", ragerr.CodeOf(err))
	}
}

func TestNewEmbeddingClient_ClampsOversizedBatchSize(t *testing.T) {
	client, err := NewEmbeddingClient(EmbeddingConfig{APIKey: "sk-test", BatchSize: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.config.BatchSize != 100 {
		t.Errorf("expected batch size to clamp to 100, got %d", client.config.BatchSize)
	}
}

func TestEmbeddingClient_Dimension_MatchesModel(t *testing.T) {
	small, _ := NewEmbeddingClient(EmbeddingConfig{APIKey: "sk-test", Model: "text-embedding-3-small"})
	if small.Dimension() != 1536 {
		t.Errorf("expected 1536 for text-embedding-3-small, got %d", small.Dimension())
	}
	large, _ := NewEmbeddingClient(EmbeddingConfig{APIKey: "sk-test", Model: "text-embedding-3-large"})
	if large.Dimension() != 3072 {
		t.Errorf("expected 3072 for text-embedding-3-large, got %d", large.Dimension())
	}
}

func TestEmbeddingClient_CacheKey_TrimsWhitespaceAndIsModelSensitive(t *testing.T) {
	client, _ := NewEmbeddingClient(EmbeddingConfig{APIKey: "sk-test", Model: "text-embedding-3-small"})
	a := client.cacheKey("  Hello World  ")
	b := client.cacheKey("Hello World")
	if a != b {
		t.Error("expected cacheKey to trim whitespace before hashing")
	}

	other, _ := NewEmbeddingClient(EmbeddingConfig{APIKey: "sk-test", Model: "text-embedding-3-large"})
	c := other.cacheKey("Hello World")
	if a == c {
		t.Error("expected cacheKey to vary with the configured model")
	}
}

func TestClassifyEmbeddingError_MapsProviderStatusCodesToCodes(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{401, ragerr.CodeAuthentication},
		{403, ragerr.CodeInsufficientQuota},
		{408, ragerr.CodeTimeout},
		{429, ragerr.CodeRateLimit},
		{400, ragerr.CodeInvalidRequest},
		{500, ragerr.CodeAPIError},
		{418, ragerr.CodeUnknown},
	}
	for _, tc := range cases {
		err := classifyEmbeddingError(&openai.APIError{HTTPStatusCode: tc.status})
		if ragerr.CodeOf(err) != tc.want {
			t.Errorf("status %d: expected code %v, got %v", tc.status, tc.want, ragerr.CodeOf(err))
		}
	}
}

func TestClassifyEmbeddingError_WrapsNonAPIErrors(t *testing.T) {
	err := classifyEmbeddingError(context.DeadlineExceeded)
	if ragerr.CodeOf(err) != ragerr.CodeEmbeddingError {
		t.Errorf("expected CodeEmbeddingError for a non-API error, got %v", ragerr.CodeOf(err))
	}
}
