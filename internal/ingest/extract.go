package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat/odtxt"
	"github.com/lu4p/cat/rtftxt"
)

// Fetcher retrieves resume bytes for the Extractor stage. Returns the raw
// content and the file extension (with leading dot) used for format dispatch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// FileFetcher reads resumes from the local filesystem. The upload service
// hands the pipeline a path (optionally file://-prefixed), not a remote URL.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	path := strings.TrimPrefix(url, "file://")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read resume: %w", err)
	}
	return content, strings.ToLower(filepath.Ext(path)), nil
}

// TextExtractor extracts plain text from resume documents.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractBytes extracts text from content based on the file extension
// (with leading dot, e.g. ".pdf"). Unknown extensions are treated as plain
// text; resumes exported as .txt frequently arrive with no extension at all.
func (e *TextExtractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDocx(content)
	case ".odt":
		return odtxt.BytesToStr(content)
	case ".rtf":
		return rtftxt.BytesToStr(content)
	default:
		return extractPlain(content)
	}
}

func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var buf bytes.Buffer
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		buf.WriteString(text)
		if i < pages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

const docxDefaultPart = "word/document.xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// runTextRe matches <w:t>text</w:t> including attributed forms like
// <w:t xml:space="preserve">.
var runTextRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

var mainPartRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

var mainPartReSwapped = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// extractDocx pulls all <w:t> run text out of the OOXML main document part.
// Matching text runs instead of whole paragraphs keeps content visible even
// when paragraph elements carry revision attributes.
func extractDocx(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract docx: not a zip: %w", err)
	}
	part := docxMainPart(zr)
	if part == "" {
		part = docxDefaultPart
	}
	docXML, err := readZipFile(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract docx: %w", err)
	}
	runs := runTextRe.FindAllStringSubmatch(string(docXML), -1)
	if len(runs) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, run := range runs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(run[1]))
	}
	return strings.TrimSpace(b.String()), nil
}

// docxMainPart resolves the main document part from [Content_Types].xml,
// trying both attribute orders.
func docxMainPart(zr *zip.Reader) string {
	content, err := readZipFile(zr, "[Content_Types].xml")
	if err != nil {
		return ""
	}
	if m := mainPartRe.FindSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(string(m[1]), "/")
	}
	if m := mainPartReSwapped.FindSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(string(m[1]), "/")
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

// extractPlain returns content as a string, replacing invalid UTF-8
// sequences with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
