package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rgaines3/medqa/internal/answer"
	"github.com/rgaines3/medqa/internal/embed"
	"github.com/rgaines3/medqa/internal/ocr"
	"github.com/rgaines3/medqa/internal/pipeline"
	"github.com/rgaines3/medqa/internal/session"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps the error taxonomy to HTTP statuses. Every error is
// terminal for the request; nothing is retried here.
func writeError(w http.ResponseWriter, err error) {
	jsonError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	var (
		extractionErr *ocr.ExtractionError
		embedErr      *embed.Error
		persistErr    *pipeline.PersistError
		llmErr        *answer.LLMError
	)
	switch {
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotProcessed):
		return http.StatusConflict
	case errors.As(err, &extractionErr):
		return http.StatusInternalServerError
	case errors.As(err, &embedErr):
		return http.StatusBadGateway
	case errors.As(err, &persistErr):
		return http.StatusInsufficientStorage
	case errors.As(err, &llmErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
