package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// DOCXParser implements the §4.A DOCX contract: archive/zip extraction of
// word/document.xml for body text and docProps/core.xml for metadata.
type DOCXParser struct{}

func (p *DOCXParser) Parse(data []byte, fileName string, opts Options) (*Result, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, triageDOCXError(err)
	}

	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	docFile := fileIndex["word/document.xml"]
	if docFile == nil {
		return nil, ragerr.New(ragerr.KindContent, ragerr.CodeFileCorrupted, "DOCX missing word/document.xml").
			WithComponent("parser.docx")
	}

	docXML, err := readZipFile(docFile)
	if err != nil {
		return nil, triageDOCXError(err)
	}

	text, err := extractDocxText(docXML)
	if err != nil {
		return nil, triageDOCXError(err)
	}
	cleaned := CleanText(text)

	meta := map[string]interface{}{}
	if opts.ExtractMetadata {
		if coreFile := fileIndex["docProps/core.xml"]; coreFile != nil {
			if coreXML, err := readZipFile(coreFile); err == nil {
				for k, v := range extractDocxCoreProps(coreXML) {
					meta[k] = v
				}
			}
		}
	}

	return &Result{
		Text:     cleaned,
		FileType: FormatDOCX,
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Metadata: meta,
	}, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func triageDOCXError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password") || strings.Contains(msg, "encrypted"):
		return ragerr.Wrap(ragerr.KindContent, ragerr.CodePasswordProtected, err, "DOCX is password protected").
			WithComponent("parser.docx")
	case strings.Contains(msg, "not a valid zip") || strings.Contains(msg, "corrupt") || strings.Contains(msg, "damaged"):
		return ragerr.Wrap(ragerr.KindContent, ragerr.CodeFileCorrupted, err, "DOCX file is corrupted").
			WithComponent("parser.docx")
	default:
		return ragerr.Wrap(ragerr.KindContent, ragerr.CodeExtractionError, err, "failed to extract DOCX text").
			WithComponent("parser.docx")
	}
}

type docxBody struct {
	XMLName xml.Name `xml:"document"`
	Body    struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

// extractDocxText walks word/document.xml's paragraph/run structure and
// joins run text, one paragraph per line.
func extractDocxText(docXML []byte) (string, error) {
	var doc docxBody
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n"), nil
}

// docxCoreProperties covers the dc:/dcterms:/cp: tags named in §4.A:
// dc:title, dc:subject, dc:creator, dcterms:created, dcterms:modified,
// cp:keywords, cp:category, cp:lastModifiedBy, cp:revision. xml.Unmarshal
// matches on local name regardless of the dc/dcterms/cp namespace prefix
// docProps/core.xml actually uses.
type docxCoreProperties struct {
	XMLName        xml.Name `xml:"coreProperties"`
	Title          string   `xml:"title"`
	Subject        string   `xml:"subject"`
	Creator        string   `xml:"creator"`
	Keywords       string   `xml:"keywords"`
	Category       string   `xml:"category"`
	LastModifiedBy string   `xml:"lastModifiedBy"`
	Revision       string   `xml:"revision"`
	Created        string   `xml:"created"`
	Modified       string   `xml:"modified"`
}

// extractDocxCoreProps parses docProps/core.xml into a metadata map,
// omitting any field left empty.
func extractDocxCoreProps(coreXML []byte) map[string]interface{} {
	out := map[string]interface{}{}

	var props docxCoreProperties
	if err := xml.Unmarshal(coreXML, &props); err != nil {
		return out
	}

	fields := map[string]string{
		"title":            props.Title,
		"subject":          props.Subject,
		"author":           props.Creator,
		"keywords":         props.Keywords,
		"category":         props.Category,
		"last_modified_by": props.LastModifiedBy,
		"revision":         props.Revision,
		"created":          props.Created,
		"modified":         props.Modified,
	}
	for k, v := range fields {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
