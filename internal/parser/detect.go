package parser

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Detection reports the format a file was mapped to and how confident the
// registry is; Confidence is reported metadata only, per §4.A — it never
// gates dispatch.
type Detection struct {
	Format     Format
	Confidence float32
}

var extensionFormats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".txt":  FormatTXT,
	".md":   FormatMD,
	".markdown": FormatMD,
	".csv":  FormatCSV,
}

// Detect dispatches by extension first, then magic bytes; it never uses
// magic-byte confidence as a gate (§4.A).
func Detect(data []byte, fileName string) (Detection, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if f, ok := extensionFormats[ext]; ok {
		return Detection{Format: f, Confidence: matchConfidence(data, f)}, true
	}

	if f, ok := sniffMagicBytes(data); ok {
		return Detection{Format: f, Confidence: 0.6}, true
	}

	return Detection{}, false
}

// sniffMagicBytes recognizes PDF (%PDF) and DOCX (PK\x03\x04 zip signature)
// when the extension is missing or unrecognized.
func sniffMagicBytes(data []byte) (Format, bool) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF, true
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatDOCX, true
	}
	return "", false
}

func matchConfidence(data []byte, f Format) float32 {
	switch f {
	case FormatPDF:
		if bytes.HasPrefix(data, []byte("%PDF")) {
			return 1.0
		}
		return 0.7
	case FormatDOCX:
		if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return 1.0
		}
		return 0.7
	default:
		return 0.9
	}
}
