package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// extractPDF extracts text from a PDF. Scanned medical documents usually have
// no text layer, but when one is present it is both faster and more accurate
// than OCR, so we try it first and only rasterize when it comes up empty.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "medqa-pdf-*.pdf")
	if err != nil {
		return "", &ExtractionError{Stage: "pdf", Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", &ExtractionError{Stage: "pdf", Err: fmt.Errorf("write temp file: %w", err)}
	}
	tmp.Close()

	if text, err := extractTextLayer(tmpPath); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	return e.rasterizeAndOCR(ctx, tmpPath)
}

// extractTextLayer pulls the embedded text layer out of a PDF, page by page.
func extractTextLayer(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString(PageBreak)
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

// rasterizeAndOCR converts each PDF page to a PNG with pdftoppm, then runs
// tesseract per page, concatenating page texts in page order.
func (e *Extractor) rasterizeAndOCR(ctx context.Context, pdfPath string) (string, error) {
	pageDir, err := os.MkdirTemp("", "medqa-pages-*")
	if err != nil {
		return "", &ExtractionError{Stage: "rasterize", Err: fmt.Errorf("create temp dir: %w", err)}
	}
	defer os.RemoveAll(pageDir)

	prefix := filepath.Join(pageDir, "page")
	cmd := exec.CommandContext(ctx, e.PdftoppmBin, "-r", "300", "-png", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &ExtractionError{Stage: "rasterize", Err: fmt.Errorf("pdftoppm: %v: %s", err, strings.TrimSpace(string(out)))}
	}

	entries, err := os.ReadDir(pageDir)
	if err != nil {
		return "", &ExtractionError{Stage: "rasterize", Err: fmt.Errorf("read page dir: %w", err)}
	}
	var pages []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".png") {
			pages = append(pages, filepath.Join(pageDir, entry.Name()))
		}
	}
	if len(pages) == 0 {
		return "", &ExtractionError{Stage: "rasterize", Err: fmt.Errorf("pdftoppm produced no pages")}
	}
	// pdftoppm zero-pads page numbers, so name order is page order.
	sort.Strings(pages)

	var buf strings.Builder
	for i, page := range pages {
		text, err := e.runTesseract(ctx, page)
		if err != nil {
			return "", err
		}
		if i > 0 {
			buf.WriteString(PageBreak)
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
