// Package chunk splits normalized document text into overlapping,
// boundary-aware chunks (§4.B).
package chunk

import (
	"regexp"
)

// Options configures the chunker. When ChunkSize is not positive, Split
// uses DefaultOptions in full; otherwise every field is used as given.
type Options struct {
	ChunkSize        int
	Overlap          int
	BreakAtSentences bool
	BreakAtWords     bool
	MinChunkSize     int
}

// DefaultOptions mirrors the Document Processor's pipeline defaults (§4.E):
// chunk_size=600, chunk_overlap=100, min_chunk_size=100.
func DefaultOptions() Options {
	return Options{
		ChunkSize:        600,
		Overlap:          100,
		BreakAtSentences: true,
		BreakAtWords:     true,
		MinChunkSize:     100,
	}
}

// Chunk is one boundary-aware slice of a document's text.
type Chunk struct {
	Text        string
	Index       int
	StartOffset int
	EndOffset   int
	IsFirst     bool
	IsLast      bool
	Length      int
}

var sentenceBoundary = regexp.MustCompile(`[.!?]\s`)

// Split implements the §4.B algorithm: scan forward in chunk_size strides,
// prefer ending on a sentence boundary, fall back to a word boundary, and
// advance by overlap. The union of [start_offset, end_offset) ranges always
// covers [0, len(text)).
func Split(text string, opts Options) []Chunk {
	if opts.ChunkSize <= 0 {
		opts = DefaultOptions()
	}
	n := len(text)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < n {
		tentativeEnd := start + opts.ChunkSize
		if tentativeEnd > n {
			tentativeEnd = n
		}
		end := tentativeEnd

		isFinal := tentativeEnd >= n

		if opts.BreakAtSentences && !isFinal {
			if b, ok := lastSentenceBoundary(text, start, tentativeEnd); ok {
				end = b
			} else if opts.BreakAtWords {
				if b, ok := lastWordBoundary(text, start, tentativeEnd); ok {
					end = b
				}
			}
		} else if opts.BreakAtWords && !isFinal {
			if b, ok := lastWordBoundary(text, start, tentativeEnd); ok {
				end = b
			}
		}

		if end <= start {
			end = tentativeEnd
		}

		length := end - start
		emit := length >= opts.MinChunkSize || end >= n
		if emit {
			chunks = append(chunks, Chunk{
				Text:        text[start:end],
				Index:       len(chunks),
				StartOffset: start,
				EndOffset:   end,
				Length:      length,
			})
		}

		nextStart := end - opts.Overlap
		if nextStart <= start {
			nextStart = end
		}
		if nextStart >= n {
			break
		}
		start = nextStart
	}

	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{Text: text, Index: 0, StartOffset: 0, EndOffset: n, Length: n})
	}

	chunks[0].IsFirst = true
	chunks[len(chunks)-1].IsLast = true
	return chunks
}

// lastSentenceBoundary scans backwards within [start, tentativeEnd] for the
// last occurrence of sentence-ending punctuation followed by whitespace,
// returning the offset just after that whitespace.
func lastSentenceBoundary(text string, start, tentativeEnd int) (int, bool) {
	window := text[start:tentativeEnd]
	matches := sentenceBoundary.FindAllStringIndex(window, -1)
	if len(matches) == 0 {
		return 0, false
	}
	last := matches[len(matches)-1]
	return start + last[1], true
}

// lastWordBoundary scans backwards up to 100 characters from tentativeEnd
// for the nearest whitespace, returning the offset just after it.
func lastWordBoundary(text string, start, tentativeEnd int) (int, bool) {
	lowerBound := tentativeEnd - 100
	if lowerBound < start {
		lowerBound = start
	}
	for i := tentativeEnd - 1; i > lowerBound; i-- {
		if text[i] == ' ' || text[i] == '\t' || text[i] == '\n' {
			return i + 1, true
		}
	}
	return 0, false
}
