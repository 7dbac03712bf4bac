// Package session maps opaque session identifiers to per-session directories
// on disk. Each session owns one directory holding the raw upload and, once
// processed, the serialized vector index. Directories are never shared.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no session directory exists for the given id.
	ErrNotFound = errors.New("session not found")

	// ErrNotProcessed means the session exists but has no persisted index yet.
	ErrNotProcessed = errors.New("session not processed")
)

const (
	rawSubdir = "raw"
	indexFile = "index.json"
)

// Store manages sessions under a single base directory.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Session is one uploaded document and its derived state.
type Session struct {
	ID  string
	dir string
}

// Create allocates a new session with a random id and makes its directories.
func (s *Store) Create() (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(filepath.Join(dir, rawSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Session{ID: id, dir: dir}, nil
}

// Get returns the session for id, or ErrNotFound. Ids that are not valid
// UUIDs are treated as not found, which also keeps path traversal out of
// the directory derivation.
func (s *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	dir := filepath.Join(s.baseDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, ErrNotFound
	}
	return &Session{ID: id, dir: dir}, nil
}

// Exists reports whether a session directory exists for id.
func (s *Store) Exists(id string) bool {
	_, err := s.Get(id)
	return err == nil
}

// Delete removes the entire session directory tree. It returns false, not an
// error, when the session did not exist, so cleanup stays idempotent.
func (s *Store) Delete(id string) (bool, error) {
	sess, err := s.Get(id)
	if err != nil {
		return false, nil
	}
	if err := os.RemoveAll(sess.dir); err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return true, nil
}

// Dir returns the session's directory path.
func (sess *Session) Dir() string {
	return sess.dir
}

// IndexPath is where the session's serialized vector index lives.
func (sess *Session) IndexPath() string {
	return filepath.Join(sess.dir, indexFile)
}

// Processed reports whether the session has a persisted index. The index is
// written atomically, so its existence is the processed flag.
func (sess *Session) Processed() bool {
	info, err := os.Stat(sess.IndexPath())
	return err == nil && !info.IsDir()
}

// SaveUpload stores the raw uploaded bytes under the session's raw directory.
func (sess *Session) SaveUpload(filename string, data []byte) error {
	name := sanitizeFilename(filename)
	dest := filepath.Join(sess.dir, rawSubdir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}

// RawFile returns the path of the stored upload. A session holds exactly one
// uploaded file; if several are present the first by name is used.
func (sess *Session) RawFile() (string, error) {
	entries, err := os.ReadDir(filepath.Join(sess.dir, rawSubdir))
	if err != nil {
		return "", fmt.Errorf("read raw dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(sess.dir, rawSubdir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("session %s has no uploaded file", sess.ID)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}
