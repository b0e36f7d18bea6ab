package chunk

import (
	"strings"
	"testing"
)

func TestSplit_CoversEntireInput(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	chunks := Split(text, Options{ChunkSize: 100, Overlap: 20, BreakAtSentences: true, BreakAtWords: true, MinChunkSize: 10})

	covered := make([]bool, len(text))
	for _, c := range chunks {
		for i := c.StartOffset; i < c.EndOffset; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("position %d not covered by any chunk", i)
		}
	}
}

func TestSplit_FirstAndLastFlags(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := Split(text, Options{ChunkSize: 50, Overlap: 10, BreakAtWords: true, MinChunkSize: 5})

	if !chunks[0].IsFirst {
		t.Error("expected first chunk to be flagged IsFirst")
	}
	if !chunks[len(chunks)-1].IsLast {
		t.Error("expected last chunk to be flagged IsLast")
	}
	for i, c := range chunks {
		if i != 0 && c.IsFirst {
			t.Errorf("chunk %d unexpectedly flagged IsFirst", i)
		}
		if i != len(chunks)-1 && c.IsLast {
			t.Errorf("chunk %d unexpectedly flagged IsLast", i)
		}
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	text := "Short sentence one. Short sentence two. Short sentence three. Padding padding padding padding."
	chunks := Split(text, Options{ChunkSize: 40, Overlap: 0, BreakAtSentences: true, BreakAtWords: true, MinChunkSize: 1})

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	first := chunks[0].Text
	if !strings.HasSuffix(strings.TrimRight(first, " "), ".") {
		t.Errorf("expected first chunk to end on a sentence boundary, got %q", first)
	}
}

func TestSplit_IndicesAreSequential(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon ", 30)
	chunks := Split(text, Options{ChunkSize: 30, Overlap: 5, BreakAtWords: true, MinChunkSize: 1})
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d", i, c.Index)
		}
	}
}

func TestSplit_EmptyTextReturnsNoChunks(t *testing.T) {
	if chunks := Split("", DefaultOptions()); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplit_ShortTextReturnsSingleChunk(t *testing.T) {
	text := "just one short sentence"
	chunks := Split(text, DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("expected chunk text to equal input, got %q", chunks[0].Text)
	}
	if !chunks[0].IsFirst || !chunks[0].IsLast {
		t.Error("single chunk must be flagged both first and last")
	}
}
