package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TXTParser implements the §4.A TXT contract: BOM-aware encoding
// detection, line-ending normalization, whitespace collapsing.
type TXTParser struct{}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16BEBOM = []byte{0xFE, 0xFF}
	utf16LEBOM = []byte{0xFF, 0xFE}

	runsOfSpaceTab = regexp.MustCompile(`[ \t]+`)
	threeOrMoreNewlines = regexp.MustCompile(`\n{3,}`)
)

func (p *TXTParser) Parse(data []byte, fileName string, opts Options) (*Result, error) {
	text := decodeTXT(data)
	cleaned := CleanText(text)

	meta := map[string]interface{}{}
	if opts.ExtractMetadata {
		meta["character_count"] = len(cleaned)
	}

	return &Result{
		Text:     cleaned,
		FileType: FormatTXT,
		MimeType: "text/plain",
		Metadata: meta,
	}, nil
}

// decodeTXT strips a BOM if present and otherwise assumes UTF-8,
// falling back to a lossy UTF-8 reinterpretation for non-UTF-8 byte
// sequences (§4.A: "else UTF-8 if no byte ≥0x80 decodes to replacement,
// else ASCII if pure 7-bit, else fall back to UTF-8").
func decodeTXT(data []byte) string {
	switch {
	case startsWith(data, utf8BOM):
		return string(data[len(utf8BOM):])
	case startsWith(data, utf16BEBOM):
		return decodeUTF16(data[len(utf16BEBOM):], true)
	case startsWith(data, utf16LEBOM):
		return decodeUTF16(data[len(utf16LEBOM):], false)
	}

	if utf8.Valid(data) {
		return string(data)
	}
	if isASCII(data) {
		return string(data)
	}
	return string(data)
}

func startsWith(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i := range prefix {
		if data[i] != prefix[i] {
			return false
		}
	}
	return true
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

func decodeUTF16(data []byte, bigEndian bool) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		if bigEndian {
			units[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
		} else {
			units[i] = uint16(data[2*i+1])<<8 | uint16(data[2*i])
		}
	}
	var sb strings.Builder
	for _, r := range utf16Decode(units) {
		sb.WriteRune(r)
	}
	return sb.String()
}

// utf16Decode converts UTF-16 code units to runes, handling surrogate pairs.
func utf16Decode(units []uint16) []rune {
	var out []rune
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			r := 0x10000 + (rune(u)-0xD800)<<10 + (rune(units[i+1]) - 0xDC00)
			out = append(out, r)
			i++
		default:
			out = append(out, rune(u))
		}
	}
	return out
}

// CleanText normalizes line endings, collapses whitespace runs, and trims —
// idempotent per §8 ("clean(clean(x)) == clean(x)").
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = runsOfSpaceTab.ReplaceAllString(text, " ")
	text = threeOrMoreNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
