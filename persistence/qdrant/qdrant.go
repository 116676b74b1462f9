// Package qdrant stores vectors in a Qdrant server through its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flarexio/ragblade/vector"
)

const (
	DefaultTimeout = 15 * time.Second

	payloadContent  = "content"
	payloadMetadata = "metadata"
)

// StatusError is a non-2xx reply from Qdrant.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("qdrant %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

type Option func(*qdrantStore)

func WithHTTPClient(client *http.Client) Option {
	return func(s *qdrantStore) {
		s.client = client
	}
}

// NewQdrantStore returns a store talking to the server at cfg.URL. It
// does not contact the server.
func NewQdrantStore(cfg vector.Config, opts ...Option) (vector.Store, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, err
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid qdrant url: %q", cfg.URL)
	}

	s := &qdrantStore{
		base:   base.String(),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type qdrantStore struct {
	base   string
	apiKey string
	client *http.Client
}

type collectionInfo struct {
	Result struct {
		Config      struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func (s *qdrantStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	var info collectionInfo
	err := s.do(ctx, http.MethodGet, collectionPath(name), nil, &info)
	if err == nil {
		size := info.Result.Config.Params.Vectors.Size
		if size != 0 && size != dimension {
			return fmt.Errorf("%w: collection %s has size %d, want %d",
				vector.ErrDimensionMismatch, name, size, dimension)
		}

		return nil
	}

	if !isStatus(err, http.StatusNotFound) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}

	err = s.do(ctx, http.MethodPut, collectionPath(name), body, nil)
	if isStatus(err, http.StatusConflict) {
		// created concurrently
		return nil
	}

	return err
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *qdrantStore) Upsert(ctx context.Context, name string, records []vector.Record) error {
	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     r.ID,
			Vector: r.Vector,
			Payload: map[string]any{
				payloadContent:  r.Content,
				payloadMetadata: r.Payload,
			},
		}
	}

	body := map[string]any{"points": points}

	return s.do(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", body, nil)
}

type scoredPoint struct {
	ID      any     `json:"id"`
	Score   float32 `json:"score"`
	Payload struct {
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata"`
	} `json:"payload"`
}

func (s *qdrantStore) Search(ctx context.Context, name string, vec []float32, k int) ([]vector.Hit, error) {
	body := map[string]any{
		"vector":       vec,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}

	if err := s.do(ctx, http.MethodPost, collectionPath(name)+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	hits := make([]vector.Hit, len(resp.Result))
	for i, r := range resp.Result {
		payload := make(map[string]string, len(r.Payload.Metadata))
		for k, v := range r.Payload.Metadata {
			switch v := v.(type) {
			case string:
				payload[k] = v
			case nil:
			default:
				payload[k] = fmt.Sprint(v)
			}
		}

		hits[i] = vector.Hit{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Content: r.Payload.Content,
			Payload: payload,
		}
	}

	return hits, nil
}

func (s *qdrantStore) DropCollection(ctx context.Context, name string) error {
	return s.do(ctx, http.MethodDelete, collectionPath(name), nil, nil)
}

func (s *qdrantStore) Count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	body := map[string]any{"exact": true}
	if err := s.do(ctx, http.MethodPost, collectionPath(name)+"/points/count", body, &resp); err != nil {
		return 0, err
	}

	return resp.Result.Count, nil
}

func (s *qdrantStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func (s *qdrantStore) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		statusErr := &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", vector.ErrCollectionNotFound, statusErr)
		}

		return statusErr
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func isStatus(err error, status int) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	return statusErr.Status == status
}
