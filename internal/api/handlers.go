package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/rgaines3/medqa/internal/ocr"
)

// handleUpload accepts a multipart document upload and creates a session for
// it. Unsupported documents are rejected before any session directory exists,
// so rejected uploads leave nothing behind.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	// Sniff the content type from the bytes rather than trusting the client.
	mime := mimetype.Detect(data)
	if !ocr.IsSupported(mime.String()) {
		writeError(w, fmt.Errorf("%w: %s", ocr.ErrUnsupportedFormat, mime.String()))
		return
	}

	sess, err := s.store.Create()
	if err != nil {
		jsonError(w, "failed to create session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := sess.SaveUpload(header.Filename, data); err != nil {
		s.store.Delete(sess.ID)
		jsonError(w, "failed to store file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID})
}

// handleProcess runs extraction and the chunk-and-embed pipeline for a
// session, synchronously.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}

	rawPath, err := sess.RawFile()
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := os.ReadFile(rawPath)
	if err != nil {
		jsonError(w, "failed to read stored file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	mime := mimetype.Detect(data)
	text, err := s.extractor.Extract(r.Context(), data, mime.String())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.pipeline.Process(r.Context(), sess, text); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
}

// handleStatus reports whether a session has been processed.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"processed": sess.Processed()})
}

type queryRequest struct {
	Question string `json:"question"`
}

// handleQuery answers a question about a processed session's document.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	bullets, err := s.answerer.Answer(r.Context(), sess, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"answer": bullets})
}

// handleCleanup deletes a session directory and everything in it. Deleting a
// session that is already gone reports deleted=false rather than an error.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.Delete(chi.URLParam(r, "sid"))
	if err != nil {
		jsonError(w, "failed to delete session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
