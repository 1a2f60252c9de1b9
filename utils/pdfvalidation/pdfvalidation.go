// Package pdfvalidation checks uploaded lesson handouts before they are stored.
package pdfvalidation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
)

// Limits bounds an accepted PDF
type Limits struct {
	MaxFileSizeMB int
	MaxPages      int
}

// HandoutLimits applies to lesson handouts
var HandoutLimits = Limits{MaxFileSizeMB: 25, MaxPages: 200}

// Result describes an accepted PDF
type Result struct {
	PageCount int
	FileSize  int64
}

// Validate checks name, size, header and page count. Rejections are validation errors.
func Validate(filename string, content []byte, limits Limits) (*Result, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, apperr.Validation("only PDF handouts are supported")
	}

	size := int64(len(content))
	if size > int64(limits.MaxFileSizeMB)*1024*1024 {
		return nil, apperr.Validation(fmt.Sprintf("handout exceeds the maximum size of %dMB", limits.MaxFileSizeMB))
	}
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return nil, apperr.Validation("invalid PDF file: missing PDF header")
	}

	pages, err := PageCount(content)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "VALIDATION_ERROR", "unreadable PDF", err)
	}
	if pages == 0 {
		return nil, apperr.Validation("PDF has no pages")
	}
	if pages > limits.MaxPages {
		return nil, apperr.Validation(fmt.Sprintf("PDF has %d pages, the maximum is %d", pages, limits.MaxPages))
	}

	return &Result{PageCount: pages, FileSize: size}, nil
}

// trimTrailing drops bytes after the last %%EOF marker, which some editors append
func trimTrailing(content []byte) []byte {
	lastEOF := bytes.LastIndex(content, []byte("%%EOF"))
	if lastEOF == -1 {
		return content
	}

	end := lastEOF + len("%%EOF")
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return content[:end]
}

// PageCount returns the number of pages in a PDF
func PageCount(content []byte) (int, error) {
	content = trimTrailing(content)

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return r.NumPage(), nil
}
