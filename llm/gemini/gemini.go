// Package gemini embeds text and generates answers with the Google
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultChatModel      = "gemini-2.0-flash"
	DefaultDimension      = 768
	DefaultTemperature    = 0.2

	// Documents per embedContent call.
	maxBatch = 100

	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

var ErrEmptyResponse = errors.New("empty response from model")

type Config struct {
	APIKey         string  `yaml:"-"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	ChatModel      string  `yaml:"chatModel"`
	Dimension      int     `yaml:"dimension" validate:"gte=0"`
	Temperature    float32 `yaml:"temperature" validate:"gte=0,lte=2"`
}

func (cfg Config) WithDefaults() Config {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}

	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}

	return cfg
}

// models is the subset of *genai.Models used here.
type models interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is both the embedder for the vector store and the chat model
// for answering.
type Client struct {
	models models
	cfg    Config
	log    *zap.Logger
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return newClient(c.Models, cfg), nil
}

func newClient(m models, cfg Config) *Client {
	cfg = cfg.WithDefaults()

	return &Client{
		models: m,
		cfg:    cfg,
		log: zap.L().With(
			zap.String("component", "gemini"),
		),
	}
}

func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch, err := c.embed(ctx, texts[start:end], taskRetrievalDocument)
		if err != nil {
			return nil, err
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (c *Client) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: genai.Ptr(int32(c.cfg.Dimension)),
	}

	resp, err := c.models.EmbedContent(ctx, c.cfg.EmbeddingModel, contents, config)
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("missing embedding at %d", i)
		}

		vectors[i] = e.Values
	}

	c.log.Debug("embedded", zap.String("task", task), zap.Int("count", len(texts)))

	return vectors, nil
}

// Generate sends prompt as a single user turn and returns the reply text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	}

	resp, err := c.models.GenerateContent(ctx, c.cfg.ChatModel, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
