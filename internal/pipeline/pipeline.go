// Package pipeline runs the per-session processing step: chunk the extracted
// text, embed every chunk, and persist the session's vector index.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rgaines3/medqa/internal/chunker"
	"github.com/rgaines3/medqa/internal/ocr"
	"github.com/rgaines3/medqa/internal/session"
	"github.com/rgaines3/medqa/internal/vectorindex"
)

// PersistError wraps a failure to write the index to the session directory.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist index: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Embedder computes embedding vectors for a batch of texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// Pipeline turns extracted text into a persisted per-session vector index.
type Pipeline struct {
	embedder Embedder
	chunkCfg chunker.Config
	log      *slog.Logger
}

func New(embedder Embedder, chunkCfg chunker.Config, log *slog.Logger) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		chunkCfg: chunkCfg,
		log:      log,
	}
}

// Process chunks text, embeds the chunks, and writes the session's index.
// Re-running replaces the prior index wholesale. The session only reads as
// processed once the index has been fully persisted; a failure anywhere
// leaves the previous state intact.
func (p *Pipeline) Process(ctx context.Context, sess *session.Session, text string) error {
	// Page breaks become paragraph breaks so the chunker treats page
	// boundaries as natural cut points.
	text = strings.ReplaceAll(text, ocr.PageBreak, "\n\n")

	chunks := chunker.Split(text, p.chunkCfg)
	if len(chunks) == 0 {
		return fmt.Errorf("document produced no indexable text")
	}

	vectors, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return err
	}

	idx, err := vectorindex.New(p.embedder.Model(), chunks, vectors)
	if err != nil {
		return &PersistError{Err: err}
	}
	if err := idx.Save(sess.IndexPath()); err != nil {
		return &PersistError{Err: err}
	}

	p.log.Info("session processed",
		"session_id", sess.ID,
		"chunks", len(chunks),
		"dimension", idx.Dimension,
	)
	return nil
}
