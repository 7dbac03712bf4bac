// Package ocr turns uploaded documents into plain text. Images go straight
// through tesseract; PDFs try their embedded text layer first and fall back
// to per-page rasterization plus OCR.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for mime types the extractor cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError wraps a failure inside OCR or PDF rasterization, such as a
// corrupt file or a missing system binary.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PageBreak separates per-page texts in extracted PDF output.
const PageBreak = "\f"

// SupportedMimeTypes lists the document types this service accepts.
var SupportedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/tiff":      true,
}

// IsSupported reports whether mime names a document type we can extract.
// Mime parameters ("; charset=...") are ignored.
func IsSupported(mime string) bool {
	return SupportedMimeTypes[normalizeMime(mime)]
}

// Extractor converts document bytes into text.
type Extractor struct {
	TesseractBin string
	PdftoppmBin  string
}

func NewExtractor(tesseractBin, pdftoppmBin string) *Extractor {
	if tesseractBin == "" {
		tesseractBin = "tesseract"
	}
	if pdftoppmBin == "" {
		pdftoppmBin = "pdftoppm"
	}
	return &Extractor{TesseractBin: tesseractBin, PdftoppmBin: pdftoppmBin}
}

// Extract returns the plain text of the document. It has no side effects
// beyond temp files, which are removed on all exit paths.
func (e *Extractor) Extract(ctx context.Context, data []byte, mime string) (string, error) {
	switch normalizeMime(mime) {
	case "application/pdf":
		return e.extractPDF(ctx, data)
	case "image/png", "image/jpeg", "image/tiff":
		return e.extractImage(ctx, data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
}

func normalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
