package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/domain"
)

// Collection is the handle to the single application collection. It
// embeds chunks before writing them and embeds queries before searching.
type Collection struct {
	store     Store
	embedder  Embedder
	backend   Backend
	name      string
	dimension int
	batchSize int

	mu    sync.Mutex
	ready bool

	log *zap.Logger
}

// New returns a handle without touching the store.
func New(store Store, embedder Embedder, cfg Config) *Collection {
	cfg = cfg.WithDefaults()

	return &Collection{
		store:     store,
		embedder:  embedder,
		backend:   cfg.Backend,
		name:      cfg.Collection,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		log: zap.L().With(
			zap.String("component", "vector"),
			zap.String("collection", cfg.Collection),
		),
	}
}

// Connect opens the collection, creating it when absent.
func Connect(ctx context.Context, store Store, embedder Embedder, cfg Config) (*Collection, error) {
	c := New(store, embedder, cfg)
	if err := c.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Dimension() int {
	return c.dimension
}

// EnsureCollection creates the collection at most once per handle. A
// failed attempt is retried on the next call.
func (c *Collection) EnsureCollection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ensureLocked(ctx)
}

func (c *Collection) ensureLocked(ctx context.Context) error {
	if c.ready {
		return nil
	}

	if err := c.store.EnsureCollection(ctx, c.name, c.dimension); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	c.ready = true
	c.log.Debug("collection ready", zap.Int("dimension", c.dimension))

	return nil
}

func (c *Collection) invalidate() {
	c.mu.Lock()
	c.ready = false
	c.mu.Unlock()
}

// AddChunks embeds and stores chunks batch by batch. On failure it
// returns *domain.IngestionFailedError carrying the number of chunks
// already stored.
func (c *Collection) AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	total := len(chunks)
	if total == 0 {
		return 0, nil
	}

	added := 0
	failed := func(err error) (int, error) {
		return added, &domain.IngestionFailedError{
			Added: added,
			Total: total,
			Err:   err,
		}
	}

	if err := c.EnsureCollection(ctx); err != nil {
		return failed(err)
	}

	for start := 0; start < total; start += c.batchSize {
		end := min(start+c.batchSize, total)
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return failed(fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err))
		}

		if len(vectors) != len(batch) {
			return failed(fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailed, len(vectors), len(batch)))
		}

		records := make([]Record, len(batch))
		for i, chunk := range batch {
			if len(vectors[i]) != c.dimension {
				return failed(fmt.Errorf("%w: %w: got %d, want %d",
					domain.ErrEmbeddingFailed, ErrDimensionMismatch, len(vectors[i]), c.dimension))
			}

			records[i] = Record{
				ID:      uuid.NewString(),
				Vector:  vectors[i],
				Content: chunk.Content,
				Payload: chunk.Fields(),
			}
		}

		if err := c.store.Upsert(ctx, c.name, records); err != nil {
			if errors.Is(err, ErrCollectionNotFound) {
				c.invalidate()
			}

			return failed(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
		}

		added += len(batch)
	}

	return added, nil
}

// Search returns the k chunks most similar to query, best first. An empty
// or absent collection yields no chunks.
func (c *Collection) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if k <= 0 {
		k = DefaultK
	}

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}

	hits, err := c.store.Search(ctx, c.name, vec, k)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			c.invalidate()
			return []domain.Chunk{}, nil
		}

		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	chunks := make([]domain.Chunk, len(hits))
	for i, hit := range hits {
		chunks[i] = domain.ChunkFromFields(hit.Content, hit.Payload)
	}

	return chunks, nil
}

// Clear drops the collection and recreates it empty. When the recreate
// fails the collection stays absent until the next write.
func (c *Collection) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.DropCollection(ctx, c.name)
	if err != nil && !errors.Is(err, ErrCollectionNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	c.ready = false

	return c.ensureLocked(ctx)
}

func (c *Collection) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		Backend:    c.backend,
		Collection: c.name,
		Dimension:  c.dimension,
	}

	count, err := c.store.Count(ctx, c.name)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return stats, nil
		}

		return stats, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	stats.Count = count
	return stats, nil
}

func (c *Collection) Close() error {
	return c.store.Close()
}
