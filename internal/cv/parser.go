package cv

import (
	"bytes"
	"fmt"
	"strings"

	"cv-processor/internal/apperr"

	"code.sajari.com/docconv"
	"github.com/dslipak/pdf"
)

// RawDocument is an uploaded file as received. It lives for one ingestion call.
type RawDocument struct {
	Data        []byte
	ContentType string
	Filename    string
}

type ParsedCV struct {
	Filename string
	FileType Format
	FileSize int64
	FullText string
}

// TextExtractor converts document bytes of a known format into plain text.
type TextExtractor interface {
	Extract(data []byte, format Format) (string, error)
}

type CVParser struct {
	extractor TextExtractor
}

// NewCVParser returns a parser backed by the PDF and DOCX extractors.
func NewCVParser() *CVParser {
	return &CVParser{extractor: DocumentExtractor{}}
}

// NewCVParserWithExtractor swaps the text extraction backend.
func NewCVParserWithExtractor(extractor TextExtractor) *CVParser {
	return &CVParser{extractor: extractor}
}

// ParseDocument sniffs the format and extracts trimmed text.
func (p *CVParser) ParseDocument(doc RawDocument) (*ParsedCV, error) {
	format, err := DetectFormat(doc.ContentType, doc.Data)
	if err != nil {
		return nil, err
	}

	text, err := p.extractor.Extract(doc.Data, format)
	if err != nil {
		return nil, err
	}

	filename := doc.Filename
	if filename == "" {
		filename = DefaultFilename(format)
	}

	return &ParsedCV{
		Filename: filename,
		FileType: format,
		FileSize: int64(len(doc.Data)),
		FullText: text,
	}, nil
}

// DocumentExtractor extracts PDF text page by page and DOCX text paragraph by paragraph.
type DocumentExtractor struct{}

func (DocumentExtractor) Extract(data []byte, format Format) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	default:
		return "", &apperr.FormatError{DeclaredType: string(format)}
	}
	if err != nil {
		return "", &apperr.ExtractionError{Format: strings.ToUpper(string(format)), Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &apperr.ExtractionError{Format: strings.ToUpper(string(format)), Err: apperr.ErrNoText}
	}
	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		b.WriteString(pageText(page))
	}
	return b.String(), nil
}

// pageText rebuilds the text rows of a page, starting a new line whenever
// the baseline moves.
func pageText(page pdf.Page) string {
	glyphs := page.Content().Text

	var b strings.Builder
	for i, glyph := range glyphs {
		if i > 0 && glyph.Y != glyphs[i-1].Y {
			b.WriteByte('\n')
		}
		b.WriteString(glyph.S)
	}
	return b.String()
}

func extractDOCX(data []byte) (string, error) {
	body, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n"), nil
}
