package rag

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

func TestNewOpenAILLMClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAILLMClient(LLMConfig{})
	if err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
	if ragerr.CodeOf(err) != ragerr.CodeAuthentication {
		t.Errorf("expected CodeAuthentication, got %v", ragerr.CodeOf(err))
	}
}

func TestDefaultLLMConfig_MatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultLLMConfig()
	if cfg.DefaultModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %q", cfg.DefaultModel)
	}
	if cfg.DefaultMaxTokens != 1000 {
		t.Errorf("expected default max tokens 1000, got %d", cfg.DefaultMaxTokens)
	}
}

func TestClassifyLLMError_MapsProviderStatusCodesToCodes(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{401, ragerr.CodeAuthentication},
		{403, ragerr.CodeInsufficientQuota},
		{404, ragerr.CodeInvalidModel},
		{408, ragerr.CodeTimeout},
		{413, ragerr.CodeContextTooLarge},
		{429, ragerr.CodeRateLimit},
		{400, ragerr.CodeInvalidRequest},
		{500, ragerr.CodeAPIError},
		{418, ragerr.CodeUnknown},
	}
	for _, tc := range cases {
		err := classifyLLMError(&openai.APIError{HTTPStatusCode: tc.status})
		if ragerr.CodeOf(err) != tc.want {
			t.Errorf("status %d: expected code %v, got %v", tc.status, tc.want, ragerr.CodeOf(err))
		}
	}
}

func TestClassifyLLMError_WrapsNonAPIErrors(t *testing.T) {
	err := classifyLLMError(errBoom)
	if ragerr.CodeOf(err) != ragerr.CodeAPIError {
		t.Errorf("expected CodeAPIError for a non-API error, got %v", ragerr.CodeOf(err))
	}
}

var errBoom = &customErr{"boom"}

type customErr struct{ msg string }

func (e *customErr) Error() string { return e.msg }
