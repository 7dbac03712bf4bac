package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// extractImage runs tesseract over a single raster image.
func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "medqa-ocr-*")
	if err != nil {
		return "", &ExtractionError{Stage: "ocr", Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", &ExtractionError{Stage: "ocr", Err: fmt.Errorf("write temp file: %w", err)}
	}
	tmp.Close()

	return e.runTesseract(ctx, tmpPath)
}

// runTesseract invokes the tesseract binary on an image file and returns its
// recognized text.
func (e *Extractor) runTesseract(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, e.TesseractBin, imagePath, "stdout")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return "", &ExtractionError{Stage: "ocr", Err: fmt.Errorf("tesseract: %s", msg)}
	}
	return string(out), nil
}
