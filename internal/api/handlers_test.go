package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rgaines3/medqa/internal/answer"
	"github.com/rgaines3/medqa/internal/chunker"
	"github.com/rgaines3/medqa/internal/config"
	"github.com/rgaines3/medqa/internal/pipeline"
	"github.com/rgaines3/medqa/internal/session"
)

type stubExtractor struct {
	text string
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte, mime string) (string, error) {
	return s.text, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = []float64{float64(len(text)), float64(strings.Count(text, "a") + 1)}
	}
	return vectors, nil
}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1}, nil
}

func (stubEmbedder) Model() string { return "stub" }

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return "- The diagnosis is pneumonia\n- Antibiotics were prescribed", nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()
	store := session.NewStore(dataDir)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{MaxUploadBytes: 10 << 20}

	pl := pipeline.New(stubEmbedder{}, chunker.Config{ChunkSize: 200, ChunkOverlap: 40}, log)
	ans := answer.NewAnswerer(stubEmbedder{}, stubLLM{}, 4)
	ext := &stubExtractor{text: "Chest X-ray shows right lower lobe consolidation. Diagnosis: pneumonia. Plan: oral antibiotics for seven days."}

	return NewServer(store, ext, pl, ans, log, cfg), dataDir
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	// Upload.
	rec := do(srv, uploadRequest(t, "scan.png", pngBytes(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sid := decodeBody[map[string]string](t, rec)["session_id"]
	if sid == "" {
		t.Fatal("expected session_id in upload response")
	}

	// Status before processing.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/status/"+sid, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	if decodeBody[map[string]bool](t, rec)["processed"] {
		t.Fatal("expected processed=false before processing")
	}

	// Query before processing must fail with a not-ready response.
	rec = do(srv, httptest.NewRequest(http.MethodPost, "/query/"+sid,
		strings.NewReader(`{"question":"What is the diagnosis?"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("query before process: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	// Process.
	rec = do(srv, httptest.NewRequest(http.MethodPost, "/process/"+sid, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[map[string]string](t, rec)["status"]; got != "done" {
		t.Fatalf("process: expected status done, got %q", got)
	}

	// Status after processing.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/status/"+sid, nil))
	if !decodeBody[map[string]bool](t, rec)["processed"] {
		t.Fatal("expected processed=true after processing")
	}

	// Query.
	rec = do(srv, httptest.NewRequest(http.MethodPost, "/query/"+sid,
		strings.NewReader(`{"question":"What is the diagnosis?"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	bullets := decodeBody[map[string][]string](t, rec)["answer"]
	if len(bullets) == 0 {
		t.Fatal("expected non-empty answer array")
	}
	for i, b := range bullets {
		if strings.TrimSpace(b) == "" {
			t.Errorf("bullet %d is blank", i)
		}
	}

	// Cleanup, twice.
	rec = do(srv, httptest.NewRequest(http.MethodDelete, "/cleanup/"+sid, nil))
	if !decodeBody[map[string]bool](t, rec)["deleted"] {
		t.Fatal("expected deleted=true on first cleanup")
	}
	rec = do(srv, httptest.NewRequest(http.MethodDelete, "/cleanup/"+sid, nil))
	if decodeBody[map[string]bool](t, rec)["deleted"] {
		t.Fatal("expected deleted=false on second cleanup")
	}

	// Status after cleanup is a not-found error.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/status/"+sid, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after cleanup: expected 404, got %d", rec.Code)
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	srv, dataDir := newTestServer(t)

	rec := do(srv, uploadRequest(t, "notes.txt", []byte("just plain text, not a scan")))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", rec.Code, rec.Body.String())
	}

	// Rejection happens before session creation: no orphan directories.
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty data dir after rejected upload, found %d entries", len(entries))
	}
}

func TestUpload_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := do(srv, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	const sid = "123e4567-e89b-42d3-a456-426614174000"

	for _, tt := range []struct {
		method string
		path   string
		body   io.Reader
	}{
		{http.MethodPost, "/process/" + sid, nil},
		{http.MethodGet, "/status/" + sid, nil},
		{http.MethodPost, "/query/" + sid, strings.NewReader(`{"question":"q"}`)},
	} {
		rec := do(srv, httptest.NewRequest(tt.method, tt.path, tt.body))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tt.method, tt.path, rec.Code)
		}
	}
}

func TestQuery_MissingQuestion(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, uploadRequest(t, "scan.png", pngBytes(t)))
	sid := decodeBody[map[string]string](t, rec)["session_id"]

	rec = do(srv, httptest.NewRequest(http.MethodPost, "/query/"+sid, strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProcess_Reentrant(t *testing.T) {
	// Re-processing replaces the index and keeps the session queryable.
	srv, _ := newTestServer(t)

	rec := do(srv, uploadRequest(t, "scan.png", pngBytes(t)))
	sid := decodeBody[map[string]string](t, rec)["session_id"]

	for i := 0; i < 2; i++ {
		rec = do(srv, httptest.NewRequest(http.MethodPost, "/process/"+sid, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("process run %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec = do(srv, httptest.NewRequest(http.MethodPost, "/query/"+sid,
		strings.NewReader(`{"question":"What is the plan?"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("query after reprocess: expected 200, got %d", rec.Code)
	}
	if len(decodeBody[map[string][]string](t, rec)["answer"]) == 0 {
		t.Fatal("expected non-empty answer")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
