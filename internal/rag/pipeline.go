package rag

import (
	"context"
	"sync"
	"time"

	"github.com/vzdr/docuquery-rag/internal/vector"
	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// Pipeline is the RAG Pipeline (§4.F): the conductor binding the vector
// index, embedding client, and document processor into index/query
// operations.
//
// Grounded on the teacher's BasicRetriever (internal/rag/retriever.go) for
// its shape — a mutex-guarded struct over a vector.Store and an embedder,
// validate-then-execute operations, a running stats block — generalized
// from single-document add/search into the spec's index_files/query
// pipeline with populated-state tracking and request-scoped document
// ingestion (§4.F query() steps 1–2).
type Pipeline struct {
	mu        sync.RWMutex
	store     *vector.MemoryStore
	embedder  Embedder
	processor *Processor
	config    PipelineConfig
	populated bool
	queries   int64
}

// NewPipeline constructs a Pipeline with an empty index.
func NewPipeline(embedder Embedder, processor *Processor, config PipelineConfig) (*Pipeline, error) {
	if config.DefaultTopK <= 0 {
		config = DefaultPipelineConfig()
	}
	store, err := vector.NewMemoryStore(config.VectorStore)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:     store,
		embedder:  embedder,
		processor: processor,
		config:    config,
	}, nil
}

// IndexFiles runs the Document Processor over files and inserts the
// resulting Documents into the index, marking it populated.
func (p *Pipeline) IndexFiles(ctx context.Context, files []IngestFile) (IngestResult, error) {
	if err := p.processor.Validate(files); err != nil {
		return IngestResult{}, err
	}

	docs, result, err := p.processor.Process(ctx, files)
	if err != nil {
		return result, err
	}

	if err := p.store.AddDocuments(docs); err != nil {
		return result, err
	}

	p.mu.Lock()
	p.populated = true
	p.mu.Unlock()

	return result, nil
}

// Query implements §4.F's query() steps 1–6. Generation (step 7's answer
// text) is left to the caller, which invokes an LLMClient with the
// returned Context.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest, files []IngestFile) (*QueryResponse, error) {
	start := time.Now()

	p.mu.RLock()
	populated := p.populated
	p.mu.RUnlock()

	if !populated && len(files) == 0 {
		return nil, ragerr.NoDocuments()
	}
	if !populated {
		if _, err := p.IndexFiles(ctx, files); err != nil {
			return nil, err
		}
	}

	embStart := time.Now()
	queryVec, err := p.embedder.EmbedOne(ctx, req.Text)
	if err != nil {
		return nil, err
	}
	embeddingTime := time.Since(embStart)

	topK := req.TopK
	if topK <= 0 {
		topK = p.config.DefaultTopK
	}
	metric := req.Metric
	if metric == "" {
		metric = p.config.SimilarityMetric
	}
	minSimilarity := req.MinSimilarity
	if minSimilarity == 0 {
		minSimilarity = p.config.DefaultMinSimilarity
	}

	searchStart := time.Now()
	retrieval, err := p.store.Search(vector.Query{
		Text:             req.Text,
		Embedding:        queryVec,
		TopK:             topK,
		MinSimilarity:    minSimilarity,
		Metric:           metric,
		DocumentIDFilter: req.DocumentIDFilter,
		FileTypeFilter:   req.FileTypeFilter,
		MetadataFilter:   req.MetadataFilter,
	})
	if err != nil {
		return nil, err
	}
	searchTime := time.Since(searchStart)

	contextStr := BuildContext(retrieval.Results, req.InlineContext)

	p.mu.Lock()
	p.queries++
	p.mu.Unlock()

	return &QueryResponse{
		Query:           req.Text,
		Context:         contextStr,
		Sources:         retrieval.Results,
		TotalChunks:     retrieval.TotalChunks,
		Metrics:         computeMetrics(retrieval.Results),
		QueryTimeMs:     time.Since(start).Milliseconds(),
		EmbeddingTimeMs: embeddingTime.Milliseconds(),
		SearchTimeMs:    searchTime.Milliseconds(),
	}, nil
}

// computeMetrics implements §4.F step 6: chunks_used, the mean retrieval
// score, and context_relevance defined equal to it.
func computeMetrics(results []vector.RetrievedChunk) RetrievalMetrics {
	if len(results) == 0 {
		return RetrievalMetrics{}
	}
	var sum float32
	for _, r := range results {
		sum += r.Score
	}
	avg := sum / float32(len(results))
	return RetrievalMetrics{
		ChunksUsed:            len(results),
		AverageRetrievalScore: avg,
		ContextRelevance:      avg,
	}
}

// ClearIndex empties the vector index and resets the populated flag.
func (p *Pipeline) ClearIndex() error {
	p.mu.Lock()
	p.populated = false
	p.mu.Unlock()
	return p.store.Clear()
}

// GetStats reports the pipeline's current index size and embedding cache
// statistics (§4.F get_stats).
func (p *Pipeline) GetStats() Stats {
	vs := p.store.Stats()
	return Stats{
		DocumentCount: vs.DocumentCount,
		ChunkCount:    vs.ChunkCount,
		CacheStats:    p.embedder.CacheStats(),
	}
}

// GetConfig returns a copy of the active pipeline configuration.
func (p *Pipeline) GetConfig() PipelineConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// UpdateConfig replaces the retrieval-affecting fields of the pipeline
// configuration (top_k, min_similarity, metric); it does not re-provision
// the embedding client or vector store, whose dimension and model are
// process-lifetime constants (§4.C).
func (p *Pipeline) UpdateConfig(update PipelineConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if update.DefaultTopK > 0 {
		p.config.DefaultTopK = update.DefaultTopK
	}
	if update.DefaultMinSimilarity != 0 {
		p.config.DefaultMinSimilarity = update.DefaultMinSimilarity
	}
	if update.SimilarityMetric != "" {
		p.config.SimilarityMetric = update.SimilarityMetric
	}
}

// IsPopulated reports whether the index currently holds any documents.
func (p *Pipeline) IsPopulated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.populated
}
