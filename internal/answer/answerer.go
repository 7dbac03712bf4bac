// Package answer serves natural-language questions against a processed
// session: retrieve the nearest chunks from the persisted index, hand them to
// the LLM inside a fixed prompt, and parse the reply into bullet lines.
package answer

import (
	"context"

	"github.com/rgaines3/medqa/internal/session"
	"github.com/rgaines3/medqa/internal/vectorindex"
)

// Embedder embeds a single query with the same model used at indexing time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// LLM generates a free-text answer for a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answerer answers questions about a session's document.
type Answerer struct {
	embedder Embedder
	llm      LLM
	topK     int
}

func NewAnswerer(embedder Embedder, llm LLM, topK int) *Answerer {
	if topK <= 0 {
		topK = 4
	}
	return &Answerer{
		embedder: embedder,
		llm:      llm,
		topK:     topK,
	}
}

// Answer returns an ordered list of bullet-point strings for the question.
// The session must exist and be processed; otherwise session.ErrNotProcessed
// is returned. Either a full bullet list comes back or an error, never a
// partial result.
func (a *Answerer) Answer(ctx context.Context, sess *session.Session, question string) ([]string, error) {
	if !sess.Processed() {
		return nil, session.ErrNotProcessed
	}

	idx, err := vectorindex.Load(sess.IndexPath())
	if err != nil {
		return nil, err
	}

	queryVec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	results := idx.Search(queryVec, a.topK)
	contextChunks := make([]string, 0, len(results))
	for _, r := range results {
		contextChunks = append(contextChunks, r.Text)
	}

	raw, err := a.llm.Generate(ctx, BuildPrompt(contextChunks, question))
	if err != nil {
		return nil, err
	}

	return ParseBullets(raw), nil
}
