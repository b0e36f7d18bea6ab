package rag

import (
	"fmt"
	"strings"

	"github.com/vzdr/docuquery-rag/internal/vector"
)

// BuildContext implements §4.F's build_context: a deterministic, pure
// string formatter. Grounded on the teacher's BasicContextBuilder
// (internal/rag/context.go) in spirit — one exported entry point building
// a header-per-source block — but the teacher's template-driven
// BuildContext is replaced with the spec's fixed format string, since
// §4.F names the exact header shape rather than leaving it
// template-configurable.
func BuildContext(retrieved []vector.RetrievedChunk, inlineContext string) string {
	var b strings.Builder

	b.WriteString("=== RETRIEVED CONTEXT FROM DOCUMENTS ===\n")
	for i, r := range retrieved {
		fmt.Fprintf(&b, "--- Source %d: %s (Chunk %d/%d, Relevance: %.1f%%) ---\n",
			i+1,
			r.Chunk.Source.FileName,
			r.Chunk.Source.ChunkIndex+1,
			r.Chunk.Source.TotalChunks,
			float64(r.Score)*100,
		)
		b.WriteString(r.Chunk.Text)
		b.WriteString("\n\n")
	}

	if inlineContext != "" {
		b.WriteString("=== ADDITIONAL CONTEXT ===\n")
		b.WriteString(inlineContext)
	}

	return b.String()
}
