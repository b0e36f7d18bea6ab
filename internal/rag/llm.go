package rag

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// CompletionRequest is the abstract LLM client contract named by §6: the
// core never speaks a provider's wire format directly.
type CompletionRequest struct {
	System          string
	User            string
	Temperature     float32
	MaxTokens       int
	TopP            float32
	FreqPenalty     float32
	PresencePenalty float32
	Model           string
	Stream          bool
}

// Usage mirrors the provider's token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the abstract LLM client's result (§6).
type CompletionResponse struct {
	Text         string `json:"text"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason"`
}

// LLMClient is the collaborator interface the RAG Pipeline's caller
// invokes to generate an answer from augmented context (§4.F step 7 names
// generation as the caller's responsibility, not the pipeline's).
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// LLMConfig configures the OpenAI-backed LLMClient, sourced from the §6
// environment variables (OPENAI_API_KEY, DEFAULT_AI_MODEL, ...).
type LLMConfig struct {
	APIKey             string        `json:"api_key" yaml:"api_key"`
	OrgID              string        `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	BaseURL            string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultModel       string        `json:"default_model" yaml:"default_model"`
	DefaultTemperature float32       `json:"default_temperature" yaml:"default_temperature"`
	DefaultMaxTokens   int           `json:"default_max_tokens" yaml:"default_max_tokens"`
	RequestTimeout     time.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxRetries         int           `json:"max_retries" yaml:"max_retries"`
}

// DefaultLLMConfig mirrors §6's documented defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		DefaultModel:       "gpt-4o-mini",
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1000,
		RequestTimeout:     30 * time.Second,
		MaxRetries:         3,
	}
}

// OpenAILLMClient implements LLMClient against the OpenAI chat completion
// API. Grounded on the teacher's internal/chat.Client (request shape,
// config-driven construction) generalized to the abstract Complete
// contract §6 specifies instead of the teacher's tool-calling chat loop.
type OpenAILLMClient struct {
	client *openai.Client
	config LLMConfig
}

// NewOpenAILLMClient constructs a client against the OpenAI API.
func NewOpenAILLMClient(config LLMConfig) (*OpenAILLMClient, error) {
	if config.APIKey == "" {
		return nil, ragerr.New(ragerr.KindUpstream, ragerr.CodeAuthentication, "LLM API key is required").
			WithComponent("rag.llm")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAILLMClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Complete sends req to the provider under a per-call timeout and maps the
// response (or failure) onto the abstract contract.
func (c *OpenAILLMClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.config.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.DefaultMaxTokens
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      req.Temperature,
		MaxTokens:        maxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FreqPenalty,
		PresencePenalty:  req.PresencePenalty,
	})
	if err != nil {
		return nil, classifyLLMError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ragerr.New(ragerr.KindUpstream, ragerr.CodeAPIError, "LLM provider returned no choices").
			WithComponent("rag.llm")
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Text: choice.Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: string(choice.FinishReason),
	}, nil
}

// classifyLLMError maps a provider failure onto the §7 upstream taxonomy,
// mirroring classifyEmbeddingError's HTTP-status dispatch.
func classifyLLMError(err error) error {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return ragerr.Wrap(ragerr.KindInternal, ragerr.CodeAPIError, err, "LLM provider error").
			WithComponent("rag.llm")
	}

	switch apiErr.HTTPStatusCode {
	case 401:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeAuthentication, err, "LLM provider rejected credentials").
			WithComponent("rag.llm")
	case 403:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeInsufficientQuota, err, "LLM provider quota exceeded").
			WithComponent("rag.llm")
	case 404:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeInvalidModel, err, "LLM provider rejected the model").
			WithComponent("rag.llm")
	case 408:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeTimeout, err, "LLM provider request timed out").
			WithComponent("rag.llm")
	case 413:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeContextTooLarge, err, "LLM provider rejected an oversized context").
			WithComponent("rag.llm")
	case 429:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeRateLimit, err, "LLM provider rate limited the request").
			WithComponent("rag.llm")
	case 400:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeInvalidRequest, err, "LLM provider rejected the request").
			WithComponent("rag.llm")
	default:
		if apiErr.HTTPStatusCode >= 500 {
			return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeAPIError, err, "LLM provider server error").
				WithComponent("rag.llm")
		}
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeUnknown, err, "LLM provider returned an unexpected error").
			WithComponent("rag.llm")
	}
}
