package rag

import (
	"context"
	"testing"

	"github.com/vzdr/docuquery-rag/internal/parser"
	"github.com/vzdr/docuquery-rag/internal/vector"
	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	registry := parser.NewRegistry()
	embedder := &fakeEmbedder{dimension: 4}
	processor := NewProcessor(registry, embedder, DefaultProcessorConfig())

	cfg := DefaultPipelineConfig()
	cfg.VectorStore.Dimension = 4

	p, err := NewPipeline(embedder, processor, cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipeline_Query_NoDocumentsWithoutIndexOrFiles(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Query(context.Background(), QueryRequest{Text: "what is this about?"}, nil)
	if err == nil {
		t.Fatal("expected an error when the index is empty and no files are supplied")
	}
	if ragerr.CodeOf(err) != ragerr.CodeNoDocuments {
		t.Errorf("expected CodeNoDocuments, got %v", ragerr.CodeOf(err))
	}
}

func TestPipeline_IndexFiles_MarksPopulated(t *testing.T) {
	p := newTestPipeline(t)
	if p.IsPopulated() {
		t.Fatal("expected a freshly built pipeline to be unpopulated")
	}

	result, err := p.IndexFiles(context.Background(), []IngestFile{
		{FileName: "doc.txt", Data: []byte("Some content about the solar system and its planets.")},
	})
	if err != nil {
		t.Fatalf("IndexFiles: %v", err)
	}
	if len(result.Succeeded) != 1 {
		t.Errorf("expected 1 succeeded file, got %d", len(result.Succeeded))
	}
	if !p.IsPopulated() {
		t.Error("expected the pipeline to be populated after a successful IndexFiles")
	}
}

func TestPipeline_Query_ReturnsSourcesAfterIndexing(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.IndexFiles(context.Background(), []IngestFile{
		{FileName: "doc.txt", Data: []byte("Some content about the solar system and its planets.")},
	})
	if err != nil {
		t.Fatalf("IndexFiles: %v", err)
	}

	resp, err := p.Query(context.Background(), QueryRequest{Text: "solar system", MinSimilarity: -1}, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.TotalChunks == 0 {
		t.Error("expected at least one retrieved chunk")
	}
	if len(resp.Sources) == 0 {
		t.Error("expected sources to be populated")
	}
	if resp.Context == "" {
		t.Error("expected a non-empty context string")
	}
}

func TestPipeline_Query_IndexesSuppliedFilesWhenUnpopulated(t *testing.T) {
	p := newTestPipeline(t)
	resp, err := p.Query(context.Background(), QueryRequest{Text: "ask about it", MinSimilarity: -1}, []IngestFile{
		{FileName: "inline.txt", Data: []byte("Inline content supplied with the query itself.")},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !p.IsPopulated() {
		t.Error("expected the pipeline to become populated from request-scoped files")
	}
	if resp.TotalChunks == 0 {
		t.Error("expected chunks retrieved from the freshly indexed files")
	}
}

func TestPipeline_ClearIndex_ResetsPopulatedState(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.IndexFiles(context.Background(), []IngestFile{
		{FileName: "doc.txt", Data: []byte("Some content to index.")},
	}); err != nil {
		t.Fatalf("IndexFiles: %v", err)
	}
	if err := p.ClearIndex(); err != nil {
		t.Fatalf("ClearIndex: %v", err)
	}
	if p.IsPopulated() {
		t.Error("expected IsPopulated to be false after ClearIndex")
	}
	stats := p.GetStats()
	if stats.DocumentCount != 0 || stats.ChunkCount != 0 {
		t.Errorf("expected an empty index after ClearIndex, got %+v", stats)
	}
}

func TestPipeline_UpdateConfig_OnlyOverridesSuppliedFields(t *testing.T) {
	p := newTestPipeline(t)
	original := p.GetConfig()

	p.UpdateConfig(PipelineConfig{DefaultTopK: 9})

	updated := p.GetConfig()
	if updated.DefaultTopK != 9 {
		t.Errorf("expected DefaultTopK to become 9, got %d", updated.DefaultTopK)
	}
	if updated.DefaultMinSimilarity != original.DefaultMinSimilarity {
		t.Errorf("expected DefaultMinSimilarity to remain unchanged, got %v", updated.DefaultMinSimilarity)
	}
	if updated.SimilarityMetric != original.SimilarityMetric {
		t.Errorf("expected SimilarityMetric to remain unchanged, got %v", updated.SimilarityMetric)
	}
}

func TestPipeline_GetStats_ReflectsEmbedderCacheStats(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.IndexFiles(context.Background(), []IngestFile{
		{FileName: "doc.txt", Data: []byte("Content to generate a cache entry.")},
	}); err != nil {
		t.Fatalf("IndexFiles: %v", err)
	}
	stats := p.GetStats()
	if stats.DocumentCount != 1 {
		t.Errorf("expected 1 document, got %d", stats.DocumentCount)
	}
	if stats.CacheStats == nil {
		t.Error("expected non-nil cache stats")
	}
}

func TestComputeMetrics_EmptyResultsYieldZeroValue(t *testing.T) {
	got := computeMetrics(nil)
	if got != (RetrievalMetrics{}) {
		t.Errorf("expected zero-value metrics for empty results, got %+v", got)
	}
}

func TestComputeMetrics_AveragesScoresAndMirrorsRelevance(t *testing.T) {
	results := []vector.RetrievedChunk{{Score: 0.4}, {Score: 0.6}}
	got := computeMetrics(results)
	if got.ChunksUsed != 2 {
		t.Errorf("expected ChunksUsed 2, got %d", got.ChunksUsed)
	}
	if got.AverageRetrievalScore != 0.5 {
		t.Errorf("expected average score 0.5, got %v", got.AverageRetrievalScore)
	}
	if got.ContextRelevance != got.AverageRetrievalScore {
		t.Errorf("expected ContextRelevance to mirror AverageRetrievalScore, got %v vs %v", got.ContextRelevance, got.AverageRetrievalScore)
	}
}
