package parser

import (
	"fmt"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// Registry dispatches a file to the format-specific parser selected by
// Detect, enforcing the size ceiling before any parser sees the bytes.
type Registry struct {
	parsers map[Format]FormatParser
}

// NewRegistry wires up the five built-in format parsers.
func NewRegistry() *Registry {
	return &Registry{
		parsers: map[Format]FormatParser{
			FormatTXT:  &TXTParser{},
			FormatMD:   &MDParser{},
			FormatCSV:  &CSVParser{},
			FormatPDF:  &PDFParser{},
			FormatDOCX: &DOCXParser{},
		},
	}
}

// Parse detects the file's format and runs the matching parser.
func (r *Registry) Parse(data []byte, fileName string, opts Options) (*Result, error) {
	if opts.MaxFileSizeBytes > 0 && int64(len(data)) > opts.MaxFileSizeBytes {
		return nil, ragerr.New(ragerr.KindInput, ragerr.CodePayloadTooLarge,
			fmt.Sprintf("file %q exceeds maximum size of %d bytes", fileName, opts.MaxFileSizeBytes)).
			WithComponent("parser.registry")
	}

	detection, ok := Detect(data, fileName)
	if !ok {
		return nil, ragerr.New(ragerr.KindInput, ragerr.CodeUnsupportedFileType,
			fmt.Sprintf("unable to determine file type for %q", fileName)).
			WithComponent("parser.registry")
	}

	p, ok := r.parsers[detection.Format]
	if !ok {
		return nil, ragerr.New(ragerr.KindInput, ragerr.CodeUnsupportedFileType,
			fmt.Sprintf("file type %q is not supported", detection.Format)).
			WithComponent("parser.registry")
	}

	result, err := p.Parse(data, fileName, opts)
	if err != nil {
		return nil, err
	}

	if opts.EnableChunking && result.Chunks == nil {
		result.Chunks = chunkOutline(result.Text, opts)
	}

	return result, nil
}

// SupportedFormats lists the formats this registry can dispatch to.
func (r *Registry) SupportedFormats() []Format {
	out := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	return out
}

// Validate reports whether data/fileName would be accepted without
// actually running extraction — used by the /parser/validate route.
func (r *Registry) Validate(data []byte, fileName string, opts Options) error {
	if opts.MaxFileSizeBytes > 0 && int64(len(data)) > opts.MaxFileSizeBytes {
		return ragerr.New(ragerr.KindInput, ragerr.CodePayloadTooLarge,
			fmt.Sprintf("file %q exceeds maximum size of %d bytes", fileName, opts.MaxFileSizeBytes)).
			WithComponent("parser.registry")
	}
	if _, ok := Detect(data, fileName); !ok {
		return ragerr.New(ragerr.KindInput, ragerr.CodeUnsupportedFileType,
			fmt.Sprintf("unable to determine file type for %q", fileName)).
			WithComponent("parser.registry")
	}
	return nil
}

// chunkOutline produces a simple fixed-window chunk outline for parsers
// that do not need the full sentence-aware algorithm in internal/chunk.
func chunkOutline(text string, opts Options) []ChunkOutline {
	if text == "" {
		return nil
	}
	size := opts.ChunkSize
	if size <= 0 {
		size = 4000
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []ChunkOutline
	start := 0
	index := 0
	for start < len(text) {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, ChunkOutline{
			Text:        text[start:end],
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
		})
		index++
		if end == len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
