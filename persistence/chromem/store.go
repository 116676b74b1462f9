package chromem

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/ragblade/vector"
)

const metadataDimension = "dimension"

var errNoEmbeddingFunc = errors.New("embeddings must be precomputed")

// precomputed keeps chromem from falling back to its default OpenAI
// embedding function. Every record and query arrives already embedded.
func precomputed(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// NewChromemStore returns an in-process store, optionally persisted to
// cfg.Path.
func NewChromemStore(cfg vector.Config) (vector.Store, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemStore{db: db}, nil
}

type chromemStore struct {
	db *chromem.DB

	// chromem allows concurrent reads but drop and recreate must not
	// interleave with writes.
	mu sync.RWMutex
}

func (s *chromemStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata := map[string]string{
		metadataDimension: strconv.Itoa(dimension),
	}

	_, err := s.db.GetOrCreateCollection(name, metadata, precomputed)
	return err
}

func (s *chromemStore) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, precomputed)
	if c == nil {
		return nil, vector.ErrCollectionNotFound
	}

	return c, nil
}

func (s *chromemStore) Upsert(ctx context.Context, name string, records []vector.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(name)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  r.Payload,
			Embedding: r.Vector,
			Content:   r.Content,
		}
	}

	return c.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *chromemStore) Search(ctx context.Context, name string, vec []float32, k int) ([]vector.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}

	if count := c.Count(); k > count {
		k = count
	}

	if k <= 0 {
		return []vector.Hit{}, nil
	}

	results, err := c.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]vector.Hit, len(results))
	for i, result := range results {
		hits[i] = vector.Hit{
			ID:      result.ID,
			Score:   result.Similarity,
			Content: result.Content,
			Payload: result.Metadata,
		}
	}

	return hits, nil
}

func (s *chromemStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.collection(name); err != nil {
		return err
	}

	return s.db.DeleteCollection(name)
}

func (s *chromemStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}

	return c.Count(), nil
}

func (s *chromemStore) Close() error {
	return nil
}
