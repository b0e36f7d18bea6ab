// Package parser is the Parser Registry (§4.A): it dispatches an uploaded
// file to a format-specific extractor that produces normalized UTF-8 text
// plus metadata.
package parser

// Format is one of the five supported document types.
type Format string

const (
	FormatPDF Format = "PDF"
	FormatDOCX Format = "DOCX"
	FormatTXT  Format = "TXT"
	FormatMD   Format = "MD"
	FormatCSV  Format = "CSV"
)

// CSVOptions controls CSV parsing (§4.A CSV contract).
type CSVOptions struct {
	Delimiter      rune
	HasHeader      bool
	SkipEmptyLines bool
}

// Options carries every optional parse setting (§4.A Options, all optional).
type Options struct {
	MaxFileSizeBytes   int64
	EnableChunking     bool
	ChunkSize          int
	ChunkOverlap       int
	ExtractMetadata    bool
	Encoding           string
	PreserveFormatting bool
	CSV                CSVOptions
}

// DefaultOptions returns the §4.A defaults.
func DefaultOptions() Options {
	return Options{
		MaxFileSizeBytes: 10 * 1024 * 1024,
		EnableChunking:   false,
		ChunkSize:        4000,
		ChunkOverlap:     200,
		ExtractMetadata:  true,
		CSV: CSVOptions{
			HasHeader:      true,
			SkipEmptyLines: true,
		},
	}
}

// ChunkOutline is an extracted chunk when EnableChunking is set.
type ChunkOutline struct {
	Text        string `json:"text"`
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Result is what a format parser produces: normalized text plus metadata
// and optional structured/chunked views.
type Result struct {
	Text           string
	FileType       Format
	MimeType       string
	Metadata       map[string]interface{}
	Chunks         []ChunkOutline
	StructuredData interface{}
	Warnings       []string
}

// FormatParser is the capability every format-specific extractor
// implements — the polymorphic dispatch surface named in §4.A / §9.
type FormatParser interface {
	Parse(data []byte, fileName string, opts Options) (*Result, error)
}
