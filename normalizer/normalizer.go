package normalizer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/domain"
)

const (
	DefaultScrapeTimeout = 30 * time.Second
	DefaultMaxPageBytes  = 5 << 20
	DefaultUserAgent     = "Mozilla/5.0 (compatible; ragblade/1.0; +https://github.com/flarexio/ragblade)"
)

type Kind string

const (
	KindFile Kind = "file"
	KindText Kind = "text"
	KindURL  Kind = "url"
)

// Source is one raw ingestion input.
type Source struct {
	Kind     Kind
	Filename string
	MIMEType string
	Data     []byte
	Text     string
	URL      string
}

func FileSource(filename, mimeType string, data []byte) Source {
	return Source{
		Kind:     KindFile,
		Filename: filename,
		MIMEType: mimeType,
		Data:     data,
	}
}

func TextSource(text string) Source {
	return Source{Kind: KindText, Text: text}
}

func URLSource(url string) Source {
	return Source{Kind: KindURL, URL: url}
}

type Config struct {
	ScrapeTimeout time.Duration `yaml:"scrapeTimeout"`
	UserAgent     string        `yaml:"userAgent"`
	MaxPageBytes  int64         `yaml:"maxPageBytes"`
}

type Option func(*Normalizer)

// WithHTTPClient replaces the client used to fetch web pages.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Normalizer) {
		n.client = client
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// Normalizer converts ingestion inputs into documents.
type Normalizer struct {
	client       *http.Client
	userAgent    string
	maxPageBytes int64
	now          func() time.Time
	log          *zap.Logger
}

func New(cfg Config, opts ...Option) *Normalizer {
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = DefaultScrapeTimeout
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = DefaultMaxPageBytes
	}

	n := &Normalizer{
		client:       &http.Client{Timeout: cfg.ScrapeTimeout},
		userAgent:    cfg.UserAgent,
		maxPageBytes: cfg.MaxPageBytes,
		now:          time.Now,
		log: zap.L().With(
			zap.String("component", "normalizer"),
		),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Normalize produces the documents of one ingestion input.
func (n *Normalizer) Normalize(ctx context.Context, src Source) ([]domain.Document, error) {
	switch src.Kind {
	case KindFile:
		return n.normalizeFile(ctx, src.Filename, src.MIMEType, src.Data)

	case KindText:
		return n.normalizeText(src.Text)

	case KindURL:
		return n.normalizeURL(ctx, src.URL)

	default:
		return nil, domain.ErrInvalidInput
	}
}

func (n *Normalizer) normalizeText(text string) ([]domain.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyInput
	}

	doc := domain.Document{
		Content: text,
		Metadata: domain.DirectInputMeta{
			Timestamp: n.now(),
		},
	}

	return []domain.Document{doc}, nil
}
