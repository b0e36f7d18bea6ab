package parser

import (
	"regexp"
	"strings"
)

// MDParser implements the §4.A Markdown contract: normalization (unless
// preserve_formatting) plus a structural outline extracted into metadata.
type MDParser struct{}

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	codeFenceRe = regexp.MustCompile("^```\\s*([a-zA-Z0-9_+-]*)")
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	imageRe     = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	orderedListRe   = regexp.MustCompile(`^\s*\d+\.\s`)
	unorderedListRe = regexp.MustCompile(`^\s*[-*+]\s`)
)

type heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}

type codeBlock struct {
	Language string `json:"language,omitempty"`
	Line     int    `json:"line"`
}

type link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type listItem struct {
	Type string `json:"type"`
	Line int    `json:"line"`
}

func (p *MDParser) Parse(data []byte, fileName string, opts Options) (*Result, error) {
	raw := decodeTXT(data)

	var normalized string
	if opts.PreserveFormatting {
		normalized = strings.ReplaceAll(strings.ReplaceAll(raw, "\r\n", "\n"), "\r", "\n")
	} else {
		normalized = CleanText(raw)
	}

	var (
		headings   []heading
		codeBlocks []codeBlock
		links      []link
		images     []link
		lists      []listItem
		title      string
	)

	lines := strings.Split(normalized, "\n")
	inCodeFence := false
	for i, line := range lines {
		lineNo := i + 1

		if m := codeFenceRe.FindStringSubmatch(line); m != nil {
			if !inCodeFence {
				codeBlocks = append(codeBlocks, codeBlock{Language: m[1], Line: lineNo})
			}
			inCodeFence = !inCodeFence
			continue
		}
		if inCodeFence {
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			text := strings.TrimSpace(m[2])
			headings = append(headings, heading{Level: level, Text: text, Line: lineNo})
			if level == 1 && title == "" {
				title = text
			}
		}

		for _, im := range imageRe.FindAllStringSubmatch(line, -1) {
			images = append(images, link{Text: im[1], URL: im[2]})
		}
		withoutImages := imageRe.ReplaceAllString(line, "")
		for _, lm := range linkRe.FindAllStringSubmatch(withoutImages, -1) {
			links = append(links, link{Text: lm[1], URL: lm[2]})
		}

		switch {
		case orderedListRe.MatchString(line):
			lists = append(lists, listItem{Type: "ordered", Line: lineNo})
		case unorderedListRe.MatchString(line):
			lists = append(lists, listItem{Type: "unordered", Line: lineNo})
		}
	}

	meta := map[string]interface{}{}
	if opts.ExtractMetadata {
		meta["title"] = title
		meta["headings"] = headings
		meta["code_blocks"] = codeBlocks
		meta["links"] = links
		meta["images"] = images
		meta["lists"] = lists
		meta["custom"] = map[string]interface{}{
			"headingCount": len(headings),
		}
	}

	return &Result{
		Text:     normalized,
		FileType: FormatMD,
		MimeType: "text/markdown",
		Metadata: meta,
	}, nil
}
