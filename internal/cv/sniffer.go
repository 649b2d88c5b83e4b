package cv

import (
	"bytes"
	"regexp"
	"strings"

	"cv-processor/internal/apperr"
)

// Format is the detected document format.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
)

var (
	pdfTypes = map[string]bool{
		"application/pdf": true,
	}
	docxTypes = map[string]bool{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"application/msword": true,
		"application/docx":   true,
	}
	genericTypes = map[string]bool{
		"":                         true,
		"application/octet-stream": true,
		"binary/octet-stream":      true,
	}

	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK")

	filenamePattern = regexp.MustCompile(`filename="?([^";]+)"?`)
)

// NormalizeContentType drops parameters and lower-cases the media type.
func NormalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// DetectFormat classifies a document. A specific declared type wins over
// the content; generic or missing types fall back to the leading bytes.
func DetectFormat(declaredType string, prefix []byte) (Format, error) {
	mediaType := NormalizeContentType(declaredType)

	switch {
	case pdfTypes[mediaType]:
		return FormatPDF, nil
	case docxTypes[mediaType]:
		return FormatDOCX, nil
	case genericTypes[mediaType]:
		if bytes.HasPrefix(prefix, pdfMagic) {
			return FormatPDF, nil
		}
		if bytes.HasPrefix(prefix, zipMagic) {
			return FormatDOCX, nil
		}
		return FormatUnknown, &apperr.FormatError{DeclaredType: mediaType, Generic: true}
	default:
		return FormatUnknown, &apperr.FormatError{DeclaredType: mediaType}
	}
}

// FilenameFromDisposition extracts filename="v" or filename=v from a
// Content-Disposition style header. It returns "" when absent.
func FilenameFromDisposition(header string) string {
	m := filenamePattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// DefaultFilename is the storage name used when the client sent none.
func DefaultFilename(f Format) string {
	switch f {
	case FormatPDF:
		return "uploaded_cv.pdf"
	case FormatDOCX:
		return "uploaded_cv.docx"
	default:
		return "uploaded_cv"
	}
}
