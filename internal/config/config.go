package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Session storage
	DataDir string

	// Gemini LLM
	GoogleAPIKey string
	GeminiModel  string
	LLMTimeout   time.Duration

	// Embeddings (OpenAI-compatible endpoint)
	EmbedBaseURL string
	EmbedModel   string
	EmbedAPIKey  string

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopK int

	// Upload limits
	MaxUploadBytes int64

	// OCR binaries
	TesseractBin string
	PdftoppmBin  string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8085"),

		DataDir: envOr("DATA_DIR", "./data"),

		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMTimeout:   envDuration("LLM_TIMEOUT", 60*time.Second),

		EmbedBaseURL: envOr("EMBED_BASE_URL", "http://localhost:11434/v1"),
		EmbedModel:   envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedAPIKey:  os.Getenv("EMBED_API_KEY"),

		ChunkSize:    envInt("CHUNK_SIZE", 1000),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		TopK: envInt("TOP_K", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		TesseractBin: envOr("TESSERACT_BIN", "tesseract"),
		PdftoppmBin:  envOr("PDFTOPPM_BIN", "pdftoppm"),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
