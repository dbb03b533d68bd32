package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Asthma is a chronic\nlung disease"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Asthma is a chronic\nlung disease" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("fever\x80cough"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "fever\uFFFDcough" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainNormalizesBOMAndCRLF(t *testing.T) {
	got, err := NewExtractor().ExtractBytes([]byte("\xEF\xBB\xBFFever\r\nChills\r\n"), ".TXT")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Fever\nChills\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormats(t *testing.T) {
	got := Formats()
	for _, want := range []string{".docx", ".pdf", ".xlsx"} {
		found := false
		for _, ext := range got {
			if ext == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Formats() = %v, missing %s", got, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("Formats() not sorted: %v", got)
		}
	}
}

func TestExtractBytes_unknownExtensionIsPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Condition")
	f.SetCellValue("Sheet1", "A3", "Anemia")
	f.SetCellValue("Sheet1", "B3", "Low hemoglobin")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Sheet: Sheet1\nCondition\nAnemia\tLow hemoglobin" {
		t.Errorf("got %q", got)
	}
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const docxBody = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Migraine causes throbbing pain</w:t></w:r></w:p></w:body></w:document>`

// zipParts builds an archive holding the given name/content pairs in order.
func zipParts(t *testing.T, parts ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i := 0; i+1 < len(parts); i += 2 {
		fw, err := w.Create(parts[i])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(parts[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	doc := zipParts(t, "[Content_Types].xml", docxContentTypes, "word/document.xml", docxBody)

	got, err := NewExtractor().ExtractBytes(doc, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(got, "Migraine causes throbbing pain") {
		t.Errorf("got %q", got)
	}
}

func TestExtract_malformedDocxIsIOError(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"missing content types", zipParts(t, "word/document.xml", docxBody)},
		{"not a zip", []byte("plain bytes named .docx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "notes.docx")
			if err := os.WriteFile(path, tt.content, 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := NewExtractor().Extract(path); !errors.Is(err, errs.ErrIO) {
				t.Errorf("Extract error = %v, want ErrIO", err)
			}
		})
	}
}

func TestExtractBytes_invalidPDF(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf")
	if err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistentIsIOError(t *testing.T) {
	_, err := NewExtractor().Extract("/nonexistent/path/gale.pdf")
	if !errors.Is(err, errs.ErrIO) {
		t.Errorf("Extract error = %v, want ErrIO", err)
	}
}

func TestExtract_corruptPDFIsIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 truncated"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := NewExtractor().Extract(path)
	if !errors.Is(err, errs.ErrIO) {
		t.Errorf("Extract error = %v, want ErrIO", err)
	}
}

func TestSupports(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".pdf", []string{".pdf", ".txt"}, true},
		{".PDF", []string{"pdf"}, true},
		{".md", []string{".txt"}, false},
		{"", []string{".txt"}, false},
		{"", []string{""}, false},
	}
	for _, tt := range tests {
		if got := Supports(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("Supports(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}
