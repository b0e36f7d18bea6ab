package parser

import (
	"strings"
	"testing"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

func TestRegistry_DispatchesTXT(t *testing.T) {
	r := NewRegistry()
	res, err := r.Parse([]byte("hello world"), "note.txt", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FileType != FormatTXT {
		t.Errorf("expected FormatTXT, got %v", res.FileType)
	}
}

func TestRegistry_DispatchesMarkdown(t *testing.T) {
	r := NewRegistry()
	res, err := r.Parse([]byte("# Heading\n\nbody"), "readme.md", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FileType != FormatMD {
		t.Errorf("expected FormatMD, got %v", res.FileType)
	}
}

func TestRegistry_DispatchesCSV(t *testing.T) {
	r := NewRegistry()
	res, err := r.Parse([]byte("a,b\n1,2\n"), "data.csv", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FileType != FormatCSV {
		t.Errorf("expected FormatCSV, got %v", res.FileType)
	}
}

func TestRegistry_UnsupportedFileTypeError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse([]byte("random bytes"), "mystery.xyz", DefaultOptions())
	if err == nil {
		t.Fatal("expected an error")
	}
	if ragerr.CodeOf(err) != ragerr.CodeUnsupportedFileType {
		t.Errorf("expected UNSUPPORTED_FILE_TYPE, got %v", ragerr.CodeOf(err))
	}
}

func TestRegistry_PayloadTooLarge(t *testing.T) {
	r := NewRegistry()
	opts := DefaultOptions()
	opts.MaxFileSizeBytes = 4
	_, err := r.Parse([]byte("this is longer than 4 bytes"), "note.txt", opts)
	if err == nil {
		t.Fatal("expected an error")
	}
	if ragerr.CodeOf(err) != ragerr.CodePayloadTooLarge {
		t.Errorf("expected PAYLOAD_TOO_LARGE, got %v", ragerr.CodeOf(err))
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry()
	if err := r.Validate([]byte("hello"), "note.txt", DefaultOptions()); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
	if err := r.Validate([]byte("hello"), "mystery.xyz", DefaultOptions()); err == nil {
		t.Error("expected validation error for unsupported type")
	}
}

func TestRegistry_SupportedFormats(t *testing.T) {
	r := NewRegistry()
	formats := r.SupportedFormats()
	if len(formats) != 5 {
		t.Fatalf("expected 5 supported formats, got %d", len(formats))
	}
}

func TestRegistry_ChunksWhenEnabled(t *testing.T) {
	r := NewRegistry()
	opts := DefaultOptions()
	opts.EnableChunking = true
	opts.ChunkSize = 10
	opts.ChunkOverlap = 2
	res, err := r.Parse([]byte(strings.Repeat("abcdefghij", 5)), "note.txt", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Chunks) == 0 {
		t.Fatal("expected chunk outline to be populated")
	}
}
