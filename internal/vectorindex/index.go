// Package vectorindex is a flat nearest-neighbor index over chunk embeddings
// with cosine similarity and JSON persistence. Sessions are small (one
// document each), so brute-force search over all entries is enough.
package vectorindex

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// Entry pairs a chunk's text with its embedding vector.
type Entry struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// Index holds all entries for one session. Built once per process run,
// read-only afterwards.
type Index struct {
	Model     string  `json:"model"`
	Dimension int     `json:"dimension"`
	Entries   []Entry `json:"entries"`
}

// New builds an index from parallel chunk and vector slices.
func New(model string, chunks []string, vectors [][]float64) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	idx := &Index{Model: model}
	for i, v := range vectors {
		if idx.Dimension == 0 {
			idx.Dimension = len(v)
		}
		if len(v) != idx.Dimension {
			return nil, fmt.Errorf("vector %d: dimension %d, want %d", i, len(v), idx.Dimension)
		}
		idx.Entries = append(idx.Entries, Entry{Text: chunks[i], Embedding: v})
	}
	return idx, nil
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Text  string
	Score float64
}

// Search returns the topK entries most similar to the query vector, highest
// similarity first. Ties keep original chunk order.
func (idx *Index) Search(query []float64, topK int) []Result {
	if topK <= 0 || len(idx.Entries) == 0 {
		return nil
	}

	scored := make([]struct {
		pos   int
		score float64
	}, len(idx.Entries))
	for i, e := range idx.Entries {
		scored[i].pos = i
		scored[i].score = cosine(query, e.Embedding)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	results := make([]Result, 0, topK)
	for _, s := range scored[:topK] {
		results = append(results, Result{Text: idx.Entries[s.pos].Text, Score: s.score})
	}
	return results
}

// Save serializes the index to path. The write goes through a temp file in
// the same directory followed by a rename, so readers never see a partial
// index and re-processing replaces the old one in a single step.
func (idx *Index) Save(path string) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.json")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

// Load reads a previously saved index.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return &idx, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
