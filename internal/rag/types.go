// Package rag implements the RAG Pipeline (§4.F): it binds the parser
// registry, text chunker, embedding client, and vector index into a single
// index/query surface, fronted by a response cache.
package rag

import (
	"time"

	"github.com/vzdr/docuquery-rag/internal/vector"
)

// EmbeddingConfig configures the Embedding Client (§4.C).
type EmbeddingConfig struct {
	Model      string        `json:"model" yaml:"model"`
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	BatchSize  int           `json:"batch_size" yaml:"batch_size"`
	CacheTTL   time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheSize  int           `json:"cache_size" yaml:"cache_size"`
}

// DefaultEmbeddingConfig returns the §4.C defaults: batch size capped at
// 100, cache TTL 24h.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Model:      "text-embedding-3-small",
		MaxRetries: 3,
		Timeout:    30 * time.Second,
		BatchSize:  100,
		CacheTTL:   24 * time.Hour,
		CacheSize:  10000,
	}
}

// ResponseCacheConfig configures the Response Cache (§4.G).
type ResponseCacheConfig struct {
	MaxSize    int           `json:"max_size" yaml:"max_size"`
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`
}

// DefaultResponseCacheConfig returns the §4.G defaults.
func DefaultResponseCacheConfig() ResponseCacheConfig {
	return ResponseCacheConfig{MaxSize: 1000, DefaultTTL: 3600 * time.Second}
}

// ProcessorConfig configures the Document Processor (§4.E).
type ProcessorConfig struct {
	ChunkSize     int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap  int `json:"chunk_overlap" yaml:"chunk_overlap"`
	MinChunkSize  int `json:"min_chunk_size" yaml:"min_chunk_size"`
	MaxDocuments  int `json:"max_documents" yaml:"max_documents"`
}

// DefaultProcessorConfig returns the §4.E defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{ChunkSize: 600, ChunkOverlap: 100, MinChunkSize: 100, MaxDocuments: 10}
}

// PipelineConfig is the top-level configuration surfaced by
// get_config/update_config (§4.F).
type PipelineConfig struct {
	Embedding            EmbeddingConfig     `json:"embedding" yaml:"embedding"`
	ResponseCache        ResponseCacheConfig `json:"response_cache" yaml:"response_cache"`
	Processor            ProcessorConfig     `json:"processor" yaml:"processor"`
	VectorStore          vector.Config       `json:"vector_store" yaml:"vector_store"`
	DefaultTopK          int                 `json:"default_top_k" yaml:"default_top_k"`
	DefaultMinSimilarity float32             `json:"default_min_similarity" yaml:"default_min_similarity"`
	SimilarityMetric     vector.Metric       `json:"similarity_metric" yaml:"similarity_metric"`
	CacheEmbeddings      bool                `json:"cache_embeddings" yaml:"cache_embeddings"`
}

// DefaultPipelineConfig composes every component default.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Embedding:            DefaultEmbeddingConfig(),
		ResponseCache:        DefaultResponseCacheConfig(),
		Processor:            DefaultProcessorConfig(),
		VectorStore:          vector.DefaultConfig(),
		DefaultTopK:          5,
		DefaultMinSimilarity: 0.3,
		SimilarityMetric:     vector.MetricCosine,
		CacheEmbeddings:      true,
	}
}

// IngestFile is one file handed to IndexFiles.
type IngestFile struct {
	FileName string
	Data     []byte
}

// IngestResult reports per-file outcome of an IndexFiles call (§4.E
// per-file failure isolation).
type IngestResult struct {
	Succeeded  []string          `json:"succeeded"`
	Failed     map[string]string `json:"failed"`
	ChunkCount int               `json:"chunk_count"`
}

// QueryRequest is a RAG Pipeline query (§4.F query()).
type QueryRequest struct {
	Text               string
	InlineContext      string
	TopK               int
	MinSimilarity      float32
	Metric             vector.Metric
	DocumentIDFilter   []string
	FileTypeFilter     []string
	MetadataFilter     map[string]interface{}
}

// RetrievalMetrics is computed at query step 6 (§4.F): chunks_used and
// average_retrieval_score are measured directly; context_relevance is
// defined equal to average_retrieval_score since faithfulness and
// answer-relevance require post-generation evaluation, out of scope here.
type RetrievalMetrics struct {
	ChunksUsed            int     `json:"chunks_used"`
	AverageRetrievalScore float32 `json:"average_retrieval_score"`
	ContextRelevance      float32 `json:"context_relevance"`
}

// QueryResponse is the envelope returned by query() (§4.F step 6/7). Answer
// is left empty for the caller to fill after invoking the LLM client.
type QueryResponse struct {
	Query           string                  `json:"query"`
	Answer          string                  `json:"answer"`
	Context         string                  `json:"context"`
	Sources         []vector.RetrievedChunk `json:"sources"`
	TotalChunks     int                     `json:"total_chunks"`
	Metrics         RetrievalMetrics        `json:"metrics"`
	QueryTimeMs     int64                   `json:"query_time_ms"`
	EmbeddingTimeMs int64                   `json:"embedding_time_ms"`
	SearchTimeMs    int64                   `json:"search_time_ms"`
	FromCache       bool                    `json:"from_cache"`
}

// Stats is returned by get_stats (§4.F).
type Stats struct {
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
	CacheStats    any `json:"cache_stats"`
}
