package rag

import (
	"context"
	"testing"

	"github.com/vzdr/docuquery-rag/internal/cache"
	"github.com/vzdr/docuquery-rag/internal/parser"
	"github.com/vzdr/docuquery-rag/internal/vector"
)

// fakeEmbedder returns a deterministic, fixed-dimension vector per text so
// tests never touch the network, mirroring the teacher's mockVectorStore
// pattern in retriever_test.go.
type fakeEmbedder struct {
	dimension int
	calls     int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([]vector.Vector, error) {
	f.calls++
	out := make([]vector.Vector, len(texts))
	for i := range texts {
		v := make(vector.Vector, f.dimension)
		v[0] = float32(len(texts[i]))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) (vector.Vector, error) {
	out, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) CacheStats() cache.Stats { return cache.Stats{} }
func (f *fakeEmbedder) Dimension() int          { return f.dimension }

func newTestProcessor() *Processor {
	registry := parser.NewRegistry()
	embedder := &fakeEmbedder{dimension: 4}
	return NewProcessor(registry, embedder, ProcessorConfig{
		ChunkSize: 50, ChunkOverlap: 10, MinChunkSize: 5, MaxDocuments: 5,
	})
}

func TestProcessor_Validate_RejectsTooManyFiles(t *testing.T) {
	p := newTestProcessor()
	files := make([]IngestFile, 10)
	for i := range files {
		files[i] = IngestFile{FileName: "a.txt", Data: []byte("x")}
	}
	if err := p.Validate(files); err == nil {
		t.Error("expected an error for exceeding max_documents")
	}
}

func TestProcessor_Validate_RejectsEmptyFile(t *testing.T) {
	p := newTestProcessor()
	err := p.Validate([]IngestFile{{FileName: "empty.txt", Data: nil}})
	if err == nil {
		t.Error("expected an error for an empty file")
	}
}

func TestProcessor_Process_ProducesChunkedDocument(t *testing.T) {
	p := newTestProcessor()
	text := "This is the first sentence. This is the second sentence. This is the third one."
	docs, result, err := p.Process(context.Background(), []IngestFile{
		{FileName: "note.txt", Data: []byte(text)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if len(result.Succeeded) != 1 || len(result.Failed) != 0 {
		t.Errorf("expected 1 success and 0 failures, got %+v", result)
	}
	doc := docs[0]
	if len(doc.Chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range doc.Chunks {
		if c.Source.ChunkIndex != i {
			t.Errorf("chunk %d has ChunkIndex %d, want %d", i, c.Source.ChunkIndex, i)
		}
		if c.Source.TotalChunks != len(doc.Chunks) {
			t.Errorf("chunk %d has TotalChunks %d, want %d", i, c.Source.TotalChunks, len(doc.Chunks))
		}
		if len(c.Embedding) != 4 {
			t.Errorf("chunk %d embedding has dimension %d, want 4", i, len(c.Embedding))
		}
	}
}

func TestProcessor_Process_IsolatesPerFileFailures(t *testing.T) {
	p := newTestProcessor()
	docs, result, err := p.Process(context.Background(), []IngestFile{
		{FileName: "good.txt", Data: []byte("Some readable content here.")},
		{FileName: "bad.unknownext", Data: []byte("unsupported format")},
	})
	if err != nil {
		t.Fatalf("expected overall success with one failure isolated, got error: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 surviving document, got %d", len(docs))
	}
	if len(result.Failed) != 1 {
		t.Errorf("expected 1 isolated failure, got %d", len(result.Failed))
	}
}

func TestProcessor_Process_FailsWhenAllFilesFail(t *testing.T) {
	p := newTestProcessor()
	_, _, err := p.Process(context.Background(), []IngestFile{
		{FileName: "bad.unknownext", Data: []byte("x")},
	})
	if err == nil {
		t.Error("expected an error when every file fails to parse")
	}
}
