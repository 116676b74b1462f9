package vector

import (
	"context"
	"errors"
)

const (
	DefaultCollection = "chaicode-collection"
	DefaultDimension  = 768
	DefaultBatchSize  = 100
	DefaultK          = 5
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

type Backend string

const (
	BackendQdrant   Backend = "qdrant"
	BackendMemory   Backend = "memory"
	BackendPgvector Backend = "pgvector"
)

type Config struct {
	Backend    Backend `yaml:"backend" validate:"omitempty,oneof=qdrant memory pgvector"`
	URL        string  `yaml:"url" env:"QDRANT_URL" validate:"required_if=Backend qdrant,omitempty,url"`
	APIKey     string  `yaml:"apiKey"`
	DSN        string  `yaml:"dsn" env:"DATABASE_URL" validate:"required_if=Backend pgvector"`
	Collection string  `yaml:"collection"`
	Dimension  int     `yaml:"dimension" validate:"gte=0"`
	BatchSize  int     `yaml:"batchSize" validate:"gte=0"`
	Persistent bool    `yaml:"persistent"`
	Path       string  `yaml:"path"`
}

// WithDefaults fills unset fields.
func (cfg Config) WithDefaults() Config {
	if cfg.Backend == "" {
		cfg.Backend = BackendQdrant
	}

	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return cfg
}

// Store is a vector database holding named collections of records
// compared by cosine similarity.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// Upsert writes records. It fails with ErrCollectionNotFound when the
	// collection is absent.
	Upsert(ctx context.Context, name string, records []Record) error

	// Search returns up to k hits ordered by decreasing similarity.
	Search(ctx context.Context, name string, vector []float32, k int) ([]Hit, error)

	DropCollection(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
	Close() error
}

// Embedder turns text into fixed-size vectors.
type Embedder interface {
	// Embed embeds a search query.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds documents, one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimension() int
}

type Record struct {
	ID      string
	Vector  []float32
	Content string
	Payload map[string]string
}

type Hit struct {
	ID      string
	Score   float32
	Content string
	Payload map[string]string
}

type Stats struct {
	Backend    Backend `json:"backend"`
	Collection string  `json:"collection"`
	Dimension  int     `json:"dimension"`
	Count      int     `json:"count"`
}
