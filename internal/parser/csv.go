package parser

import (
	"strconv"
	"strings"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// CSVParser implements the §4.A CSV contract: delimiter auto-detection,
// a quoting-aware field scanner, and dynamic cell typing that preserves
// quoted numeric-looking tokens as strings.
type CSVParser struct{}

var csvDelimiterCandidates = []rune{',', ';', '\t', '|'}

// csvField is one scanned cell together with whether it was wrapped in
// quotes in the source text. encoding/csv discards that information once a
// field has been unescaped, which is exactly what makes it impossible to
// tell `00123` from `"00123"` afterward — so this parser is hand-rolled
// instead, tracking quoting per field the way §9's ambiguities note
// requires for the embedded-newline case too.
type csvField struct {
	value  string
	quoted bool
}

func (p *CSVParser) Parse(data []byte, fileName string, opts Options) (*Result, error) {
	text := decodeTXT(data)
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")

	delim := opts.CSV.Delimiter
	if delim == 0 {
		delim = detectDelimiter(text)
	}

	records, terminated := scanCSV(text, delim)
	if !terminated {
		return nil, ragerr.New(ragerr.KindContent, ragerr.CodeExtractionError, "CSV contains an unterminated quoted field").
			WithComponent("parser.csv")
	}

	if opts.CSV.SkipEmptyLines {
		records = filterEmptyRecords(records)
	}

	var header []string
	rows := records
	if opts.CSV.HasHeader && len(records) > 0 {
		header = make([]string, len(records[0]))
		for i, f := range records[0] {
			header[i] = f.value
		}
		rows = records[1:]
	}

	structured := make([]map[string]interface{}, 0, len(rows))
	flattenedLines := make([]string, 0, len(rows)+1)
	if header != nil {
		flattenedLines = append(flattenedLines, strings.Join(header, " | "))
	}

	for _, row := range rows {
		record := map[string]interface{}{}
		cells := make([]string, 0, len(row))
		for i, field := range row {
			key := columnKey(header, i)
			record[key] = typeCell(field)
			cells = append(cells, field.value)
		}
		structured = append(structured, record)
		flattenedLines = append(flattenedLines, strings.Join(cells, " | "))
	}

	meta := map[string]interface{}{}
	if opts.ExtractMetadata {
		meta["delimiter"] = string(delim)
		meta["row_count"] = len(rows)
		meta["column_count"] = len(header)
		if header != nil {
			meta["headers"] = header
		}
	}

	return &Result{
		Text:           strings.Join(flattenedLines, "\n"),
		FileType:       FormatCSV,
		MimeType:       "text/csv",
		Metadata:       meta,
		StructuredData: structured,
	}, nil
}

// scanCSV is a small state machine over runes: `"` toggles quoted mode,
// `""` inside quoted mode is a literal `"`, the delimiter and newlines are
// literal while quoted, and trailing characters after a closing quote (up
// to the next delimiter or newline) are discarded rather than appended, so
// trailing whitespace outside quotes never pollutes the field. Unlike
// encoding/csv, every field remembers whether it was originally quoted.
// The bool result is false when the text ends inside a quoted field.
func scanCSV(text string, delim rune) ([][]csvField, bool) {
	var records [][]csvField
	var fields []csvField
	var sb strings.Builder

	quoted := false
	inQuotes := false
	afterQuote := false
	started := false

	flushField := func() {
		val := sb.String()
		if !quoted {
			val = strings.TrimSpace(val)
		}
		fields = append(fields, csvField{value: val, quoted: quoted})
		sb.Reset()
		quoted = false
		afterQuote = false
		started = false
	}
	flushRecord := func() {
		flushField()
		records = append(records, fields)
		fields = nil
	}

	runes := []rune(text)
	n := len(runes)
	for i := 0; i < n; i++ {
		c := runes[i]

		if inQuotes {
			if c == '"' {
				if i+1 < n && runes[i+1] == '"' {
					sb.WriteRune('"')
					i++
					continue
				}
				inQuotes = false
				afterQuote = true
				continue
			}
			sb.WriteRune(c)
			continue
		}

		if afterQuote {
			switch c {
			case delim:
				flushField()
			case '\n':
				flushRecord()
			default:
				// trailing whitespace (or stray text) outside the quotes
			}
			continue
		}

		switch {
		case c == '"' && !started:
			quoted = true
			inQuotes = true
			started = true
		case c == delim:
			flushField()
		case c == '\n':
			flushRecord()
		default:
			sb.WriteRune(c)
			started = true
		}
	}

	if started || sb.Len() > 0 || afterQuote || len(fields) > 0 {
		flushRecord()
	}

	return records, !inQuotes
}

func columnKey(header []string, index int) string {
	if header != nil && index < len(header) && header[index] != "" {
		return header[index]
	}
	return "column_" + strconv.Itoa(index)
}

// typeCell applies §4.A's dynamic cell typing: empty -> nil, case-insensitive
// true/false -> bool, a finite number that was NOT originally quoted ->
// float64, otherwise the raw string. A quoted numeric-looking token (e.g.
// `"00123"`) therefore survives as a string instead of becoming 123.
func typeCell(field csvField) interface{} {
	trimmed := strings.TrimSpace(field.value)
	if trimmed == "" {
		return nil
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	if !field.quoted {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return field.value
}

func filterEmptyRecords(records [][]csvField) [][]csvField {
	out := make([][]csvField, 0, len(records))
	for _, r := range records {
		allEmpty := true
		for _, c := range r {
			if strings.TrimSpace(c.value) != "" {
				allEmpty = false
				break
			}
		}
		if !allEmpty {
			out = append(out, r)
		}
	}
	return out
}

// detectDelimiter picks the candidate that yields the most consistent
// field count across the first few lines of the file. Candidates that do
// not occur in those lines are skipped; ',' is returned when none occurs.
func detectDelimiter(text string) rune {
	lines := strings.Split(text, "\n")
	sample := lines
	if len(sample) > 5 {
		sample = sample[:5]
	}
	joined := strings.Join(sample, "\n")

	best := ','
	bestScore := -1
	for _, cand := range csvDelimiterCandidates {
		if !strings.ContainsRune(joined, cand) {
			continue
		}
		counts := map[int]int{}
		total := 0
		for _, line := range sample {
			if line == "" {
				continue
			}
			n := strings.Count(line, string(cand)) + 1
			counts[n]++
			total++
		}
		if total == 0 {
			continue
		}
		maxAgreement := 0
		for _, c := range counts {
			if c > maxAgreement {
				maxAgreement = c
			}
		}
		if maxAgreement > bestScore {
			bestScore = maxAgreement
			best = cand
		}
	}
	return best
}
