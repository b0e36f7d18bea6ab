package rag

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vzdr/docuquery-rag/internal/chunk"
	"github.com/vzdr/docuquery-rag/internal/parser"
	"github.com/vzdr/docuquery-rag/internal/vector"
	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// Processor implements the Document Processor (§4.E): it binds the Parser
// Registry, Text Chunker, and Embedding Client into one
// files-in/Documents-out call, isolating per-file failures.
//
// Grounded on the teacher's BasicRetriever.AddDocument (internal/rag/
// retriever.go), which chains "process into chunks, embed chunk texts,
// store" the same way, generalized from a single-document call into a
// batch with per-file isolation and a pre-flight Validate step.
type Processor struct {
	registry *parser.Registry
	embedder Embedder
	config   ProcessorConfig
}

// NewProcessor constructs a Document Processor.
func NewProcessor(registry *parser.Registry, embedder Embedder, config ProcessorConfig) *Processor {
	if config.ChunkSize <= 0 {
		config = DefaultProcessorConfig()
	}
	return &Processor{registry: registry, embedder: embedder, config: config}
}

// Validate is the pre-flight check named by §4.E: file count within
// max_documents, every file has non-empty content and a non-empty name.
func (p *Processor) Validate(files []IngestFile) error {
	maxDocs := p.config.MaxDocuments
	if maxDocs <= 0 {
		maxDocs = DefaultProcessorConfig().MaxDocuments
	}
	if len(files) > maxDocs {
		return ragerr.New(ragerr.KindInput, ragerr.CodeValidationError,
			fmt.Sprintf("too many files: %d exceeds max_documents %d", len(files), maxDocs)).
			WithComponent("rag.processor")
	}
	for _, f := range files {
		if f.FileName == "" {
			return ragerr.New(ragerr.KindInput, ragerr.CodeValidationError, "file name is required").
				WithComponent("rag.processor")
		}
		if len(f.Data) == 0 {
			return ragerr.New(ragerr.KindInput, ragerr.CodeValidationError,
				fmt.Sprintf("file %q has no content", f.FileName)).
				WithComponent("rag.processor")
		}
	}
	return nil
}

// Process parses, chunks, and embeds each file, assembling indexable
// Documents. A per-file failure is logged and the file is skipped; the
// batch succeeds with whatever files succeeded. If none succeed, Process
// fails with PARSING_ERROR (§4.E).
func (p *Processor) Process(ctx context.Context, files []IngestFile) ([]vector.Document, IngestResult, error) {
	result := IngestResult{Failed: make(map[string]string)}
	var docs []vector.Document

	chunkOpts := chunk.Options{
		ChunkSize:        p.config.ChunkSize,
		Overlap:          p.config.ChunkOverlap,
		MinChunkSize:     p.config.MinChunkSize,
		BreakAtSentences: true,
		BreakAtWords:     true,
	}

	for _, f := range files {
		doc, err := p.processOne(ctx, f, chunkOpts)
		if err != nil {
			log.Printf("rag.processor: skipping %q: %v", f.FileName, err)
			result.Failed[f.FileName] = err.Error()
			continue
		}
		docs = append(docs, *doc)
		result.Succeeded = append(result.Succeeded, f.FileName)
		result.ChunkCount += len(doc.Chunks)
	}

	if len(docs) == 0 {
		return nil, result, ragerr.New(ragerr.KindContent, ragerr.CodeParsingError,
			"no files could be parsed").WithComponent("rag.processor")
	}

	return docs, result, nil
}

func (p *Processor) processOne(ctx context.Context, f IngestFile, chunkOpts chunk.Options) (*vector.Document, error) {
	parsed, err := p.registry.Parse(f.Data, f.FileName, parser.Options{
		MaxFileSizeBytes: 0,
		ExtractMetadata:  true,
	})
	if err != nil {
		return nil, err
	}
	if parsed.Text == "" {
		return nil, ragerr.New(ragerr.KindContent, ragerr.CodeParsingError,
			fmt.Sprintf("file %q produced no extractable text", f.FileName)).
			WithComponent("rag.processor")
	}

	docID := uuid.NewString()
	pieces := chunk.Split(parsed.Text, chunkOpts)

	texts := make([]string, len(pieces))
	for i, c := range pieces {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	chunks := make([]vector.Chunk, len(pieces))
	for i, c := range pieces {
		chunks[i] = vector.Chunk{
			ID:         fmt.Sprintf("%s_%d", docID, i),
			Text:       c.Text,
			Embedding:  embeddings[i],
			DocumentID: docID,
			Source: vector.ChunkSource{
				FileName:    f.FileName,
				FileType:    string(parsed.FileType),
				ChunkIndex:  i,
				TotalChunks: len(pieces),
				StartOffset: c.StartOffset,
				EndOffset:   c.EndOffset,
			},
		}
	}

	return &vector.Document{
		ID:        docID,
		FileName:  f.FileName,
		FileType:  string(parsed.FileType),
		MimeType:  parsed.MimeType,
		Content:   parsed.Text,
		Metadata:  parsed.Metadata,
		Chunks:    chunks,
		CreatedAt: time.Now(),
	}, nil
}
