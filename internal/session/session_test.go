package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(t.TempDir())

	sess, err := store.Create()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty session id")
	}
	if !store.Exists(sess.ID) {
		t.Errorf("expected session %s to exist", sess.ID)
	}

	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dir() != sess.Dir() {
		t.Errorf("expected dir %q, got %q", sess.Dir(), got.Dir())
	}
}

func TestStore_CreateDistinctIDs(t *testing.T) {
	store := NewStore(t.TempDir())
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := store.Create()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[sess.ID] {
			t.Fatalf("duplicate session id %s", sess.ID)
		}
		seen[sess.ID] = true
	}
}

func TestStore_GetUnknownID(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Get("123e4567-e89b-42d3-a456-426614174000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetRejectsNonUUID(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	// A sibling directory must not be reachable through a crafted id.
	if err := os.MkdirAll(filepath.Join(dir, "..", "leak"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"../leak", "..", "not-a-uuid", ""} {
		if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("id %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())
	sess, err := store.Create()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := store.Delete(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("expected first delete to report deleted=true")
	}
	if store.Exists(sess.ID) {
		t.Error("expected session to be gone after delete")
	}

	deleted, err = store.Delete(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error on second delete: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report deleted=false")
	}
}

func TestSession_ProcessedFlag(t *testing.T) {
	store := NewStore(t.TempDir())
	sess, err := store.Create()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sess.Processed() {
		t.Error("fresh session must not be processed")
	}

	if err := os.WriteFile(sess.IndexPath(), []byte(`{"entries":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !sess.Processed() {
		t.Error("session with index file must be processed")
	}
}

func TestSession_SaveUploadAndRawFile(t *testing.T) {
	store := NewStore(t.TempDir())
	sess, err := store.Create()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := sess.RawFile(); err == nil {
		t.Error("expected error when no file has been uploaded")
	}

	data := []byte("scan bytes")
	if err := sess.SaveUpload("../evil/../report.pdf", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := sess.RawFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(filepath.Dir(path)) != sess.Dir() {
		t.Errorf("raw file %q escaped session dir %q", path, sess.Dir())
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("raw file content mismatch: %q", got)
	}
}
