package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

func TestParsePDFDate_Valid(t *testing.T) {
	got, ok := parsePDFDate("D:20230615143022")
	if !ok {
		t.Fatal("expected valid parse")
	}
	want := time.Date(2023, 6, 15, 14, 30, 22, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParsePDFDate_MalformedIsSilentlyOmitted(t *testing.T) {
	cases := []string{"D:2023", "not a date", "D:20231399000000", ""}
	for _, c := range cases {
		if _, ok := parsePDFDate(c); ok {
			t.Errorf("expected %q to fail to parse", c)
		}
	}
}

func TestTriagePDFError_PasswordProtected(t *testing.T) {
	err := triagePDFError(errors.New("the document is encrypted"))
	if ragerr.CodeOf(err) != ragerr.CodePasswordProtected {
		t.Errorf("expected PASSWORD_PROTECTED, got %v", ragerr.CodeOf(err))
	}
}

func TestTriagePDFError_Corrupted(t *testing.T) {
	err := triagePDFError(errors.New("invalid PDF: bad xref table"))
	if ragerr.CodeOf(err) != ragerr.CodeFileCorrupted {
		t.Errorf("expected FILE_CORRUPTED, got %v", ragerr.CodeOf(err))
	}
}

func TestTriagePDFError_GenericExtractionError(t *testing.T) {
	err := triagePDFError(errors.New("unexpected end of stream"))
	if ragerr.CodeOf(err) != ragerr.CodeExtractionError {
		t.Errorf("expected EXTRACTION_ERROR, got %v", ragerr.CodeOf(err))
	}
}
