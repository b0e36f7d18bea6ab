package rag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vzdr/docuquery-rag/internal/cache"
	"github.com/vzdr/docuquery-rag/internal/vector"
	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// Embedder is the collaborator interface the Document Processor and RAG
// Pipeline depend on, mirroring the teacher's retriever.go depending on
// a VectorStore interface rather than a concrete store. Lets tests
// substitute a fake embedder instead of calling OpenAI.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]vector.Vector, error)
	EmbedOne(ctx context.Context, text string) (vector.Vector, error)
	CacheStats() cache.Stats
	Dimension() int
}

// EmbeddingClient implements §4.C: embed(texts) -> vectors in the same
// order as the input, backed by an MD5 content-addressed cache with a 24h
// default TTL, and batches requests to the provider at ≤100 texts.
//
// Grounded on the teacher's OpenAIEmbedder (internal/rag/embedder.go in
// the original tree), generalized onto the shared internal/cache engine
// and ragerr instead of the teacher's bespoke RAGError/LRUCache pair.
type EmbeddingClient struct {
	client *openai.Client
	config EmbeddingConfig
	cache  *cache.Cache[vector.Vector]
}

// NewEmbeddingClient constructs a client against the OpenAI embeddings API.
func NewEmbeddingClient(config EmbeddingConfig) (*EmbeddingClient, error) {
	if config.APIKey == "" {
		return nil, ragerr.New(ragerr.KindUpstream, ragerr.CodeAuthentication, "embedding API key is required").
			WithComponent("rag.embedder")
	}
	if config.BatchSize <= 0 || config.BatchSize > 100 {
		config.BatchSize = 100
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &EmbeddingClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		cache:  cache.New[vector.Vector](config.CacheSize, config.CacheTTL),
	}, nil
}

// Embed returns one embedding vector per input text, preserving order,
// splitting the request into ≤batch-size calls and never poisoning the
// cache with a partial or failed batch.
func (e *EmbeddingClient) Embed(ctx context.Context, texts []string) ([]vector.Vector, error) {
	if len(texts) == 0 {
		return nil, ragerr.New(ragerr.KindInput, ragerr.CodeValidationError, "no texts provided to embed").
			WithComponent("rag.embedder")
	}

	results := make([]vector.Vector, len(texts))
	uncachedIdx := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := e.cacheKey(text)
		if v, ok := e.cache.Get(key); ok {
			results[i] = v
			continue
		}
		uncachedIdx = append(uncachedIdx, i)
		uncachedTexts = append(uncachedTexts, text)
	}

	for start := 0; start < len(uncachedTexts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(uncachedTexts) {
			end = len(uncachedTexts)
		}
		batch := uncachedTexts[start:end]

		vecs, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		for j, v := range vecs {
			originalIdx := uncachedIdx[start+j]
			results[originalIdx] = v
			e.cache.Set(e.cacheKey(batch[j]), v)
		}
	}

	return results, nil
}

// EmbedOne is a convenience wrapper around Embed for a single text.
func (e *EmbeddingClient) EmbedOne(ctx context.Context, text string) (vector.Vector, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([]vector.Vector, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.config.Model),
	})
	if err != nil {
		return nil, classifyEmbeddingError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, ragerr.New(ragerr.KindInternal, ragerr.CodeEmbeddingError, "provider returned mismatched embedding count").
			WithComponent("rag.embedder")
	}

	vecs := make([]vector.Vector, len(resp.Data))
	for i, d := range resp.Data {
		v := make(vector.Vector, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = f
		}
		vecs[i] = v
	}
	return vecs, nil
}

// classifyEmbeddingError maps a provider failure onto the upstream
// taxonomy (§7) so the retry engine can classify it by kind rather than
// by matching on the provider's error text.
func classifyEmbeddingError(err error) error {
	var apiErr *openai.APIError
	if e, ok := err.(*openai.APIError); ok {
		apiErr = e
	}
	if apiErr == nil {
		return ragerr.Wrap(ragerr.KindInternal, ragerr.CodeEmbeddingError, err, "embedding provider error").
			WithComponent("rag.embedder")
	}

	switch apiErr.HTTPStatusCode {
	case 401:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeAuthentication, err, "embedding provider rejected credentials").
			WithComponent("rag.embedder")
	case 403:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeInsufficientQuota, err, "embedding provider quota exceeded").
			WithComponent("rag.embedder")
	case 408:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeTimeout, err, "embedding provider request timed out").
			WithComponent("rag.embedder")
	case 429:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeRateLimit, err, "embedding provider rate limited the request").
			WithComponent("rag.embedder")
	case 400:
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeInvalidRequest, err, "embedding provider rejected the request").
			WithComponent("rag.embedder")
	default:
		if apiErr.HTTPStatusCode >= 500 {
			return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeAPIError, err, "embedding provider server error").
				WithComponent("rag.embedder")
		}
		return ragerr.Wrap(ragerr.KindUpstream, ragerr.CodeUnknown, err, "embedding provider returned an unexpected error").
			WithComponent("rag.embedder")
	}
}

func (e *EmbeddingClient) cacheKey(text string) string {
	sum := md5.Sum([]byte(e.config.Model + ":" + strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// CacheStats exposes the embedding cache's statistics for diagnostics.
func (e *EmbeddingClient) CacheStats() cache.Stats {
	return e.cache.Stats()
}

func (e *EmbeddingClient) Dimension() int {
	switch e.config.Model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}
