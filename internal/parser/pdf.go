package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// PDFParser implements the §4.A PDF contract: text extraction via an
// external library, document-info metadata, and error triage that maps
// extractor failures onto the content error taxonomy.
type PDFParser struct{}

func (p *PDFParser) Parse(data []byte, fileName string, opts Options) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, triagePDFError(err)
	}

	text, err := extractPDFText(reader)
	if err != nil {
		return nil, triagePDFError(err)
	}

	cleaned := CleanText(text)
	totalPages := reader.NumPage()

	meta := map[string]interface{}{}
	if opts.ExtractMetadata {
		meta["page_count"] = totalPages
		for k, v := range extractPDFInfo(reader) {
			meta[k] = v
		}
	}

	return &Result{
		Text:     cleaned,
		FileType: FormatPDF,
		MimeType: "application/pdf",
		Metadata: meta,
	}, nil
}

func extractPDFText(reader *pdf.Reader) (string, error) {
	r, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// triagePDFError maps extractor error text onto the content taxonomy.
// The underlying library communicates failure reasons only as strings.
func triagePDFError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password") || strings.Contains(msg, "encrypted"):
		return ragerr.Wrap(ragerr.KindContent, ragerr.CodePasswordProtected, err, "PDF is password protected").
			WithComponent("parser.pdf")
	case strings.Contains(msg, "invalid pdf") || strings.Contains(msg, "corrupt") || strings.Contains(msg, "damaged"):
		return ragerr.Wrap(ragerr.KindContent, ragerr.CodeFileCorrupted, err, "PDF file is corrupted").
			WithComponent("parser.pdf")
	default:
		return ragerr.Wrap(ragerr.KindContent, ragerr.CodeExtractionError, err, "failed to extract PDF text").
			WithComponent("parser.pdf")
	}
}

// extractPDFInfo pulls the document Info dictionary (Title, Author,
// CreationDate, ...) off the trailer, parsing PDF date strings where
// present and silently omitting malformed ones.
func extractPDFInfo(reader *pdf.Reader) map[string]interface{} {
	out := map[string]interface{}{}

	trailer := reader.Trailer()
	if trailer.IsNull() {
		return out
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return out
	}

	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer"} {
		if v := info.Key(key); !v.IsNull() {
			if s := v.Text(); s != "" {
				out[strings.ToLower(key)] = s
			}
		}
	}

	for _, key := range []string{"CreationDate", "ModDate"} {
		v := info.Key(key)
		if v.IsNull() {
			continue
		}
		raw := v.Text()
		if raw == "" {
			continue
		}
		if t, ok := parsePDFDate(raw); ok {
			out[strings.ToLower(key)] = t.Format(time.RFC3339)
		}
	}

	return out
}

// parsePDFDate parses the "D:YYYYMMDDhhmmss" PDF date format. Malformed
// dates are reported via the bool return rather than an error, per §4.A.
func parsePDFDate(raw string) (time.Time, bool) {
	s := strings.TrimPrefix(raw, "D:")
	if len(s) < 14 {
		return time.Time{}, false
	}
	fields := []int{}
	for _, seg := range []struct{ start, length int }{
		{0, 4}, {4, 2}, {6, 2}, {8, 2}, {10, 2}, {12, 2},
	} {
		if seg.start+seg.length > len(s) {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(s[seg.start : seg.start+seg.length])
		if err != nil {
			return time.Time{}, false
		}
		fields = append(fields, n)
	}
	year, month, day, hour, min, sec := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), true
}
