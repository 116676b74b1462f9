package ragblade

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/domain"
	"github.com/flarexio/ragblade/normalizer"
	"github.com/flarexio/ragblade/splitter"
	"github.com/flarexio/ragblade/vector"
)

// Service defines the core logic of ragblade.
type Service interface {

	// Close releases the vector store connection.
	Close() error

	// IngestFile normalizes, splits and stores an uploaded PDF, TXT or CSV
	// file and returns the number of chunks stored.
	IngestFile(ctx context.Context, file File) (int, error)

	// IngestText stores raw text.
	IngestText(ctx context.Context, text string) (int, error)

	// IngestURL scrapes a web page and stores its visible text.
	IngestURL(ctx context.Context, url string) (int, error)

	// Chat answers a question from the stored chunks.
	Chat(ctx context.Context, message string) (string, error)

	// Stats reports the collection and its size.
	Stats(ctx context.Context) (vector.Stats, error)

	// Clear deletes every stored chunk.
	Clear(ctx context.Context) error
}

type ServiceMiddleware func(Service) Service

// File is an uploaded file.
type File struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data"`
}

// Gateway is the vector collection the service writes to and reads from.
// *vector.Collection implements it.
type Gateway interface {
	AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error)
	Search(ctx context.Context, query string, k int) ([]domain.Chunk, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (vector.Stats, error)
	Close() error
}

func NewService(cfg Config, gateway Gateway, chat ChatModel, opts ...normalizer.Option) Service {
	return &service{
		normalizer: normalizer.New(cfg.Scrape, opts...),
		splitter:   splitter.NewFromConfig(cfg.Splitter),
		gateway:    gateway,
		answerer:   NewAnswerer(gateway, chat, cfg.RetrievalK),
		log: zap.L().With(
			zap.String("service", "ragblade"),
		),
	}
}

type service struct {
	normalizer *normalizer.Normalizer
	splitter   *splitter.Splitter
	gateway    Gateway
	answerer   *Answerer
	log        *zap.Logger
}

func (svc *service) Close() error {
	return svc.gateway.Close()
}

func (svc *service) IngestFile(ctx context.Context, file File) (int, error) {
	if file.Filename == "" && file.Data == nil {
		return 0, domain.ErrNoFile
	}

	if int64(len(file.Data)) > MaxUploadSize {
		return 0, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, len(file.Data))
	}

	return svc.ingest(ctx, normalizer.FileSource(file.Filename, file.MIMEType, file.Data))
}

func (svc *service) IngestText(ctx context.Context, text string) (int, error) {
	return svc.ingest(ctx, normalizer.TextSource(text))
}

func (svc *service) IngestURL(ctx context.Context, url string) (int, error) {
	return svc.ingest(ctx, normalizer.URLSource(url))
}

func (svc *service) ingest(ctx context.Context, src normalizer.Source) (int, error) {
	docs, err := svc.normalizer.Normalize(ctx, src)
	if err != nil {
		return 0, err
	}

	chunks := svc.splitter.Split(docs)
	if len(chunks) == 0 {
		svc.log.Debug("nothing to store", zap.String("kind", string(src.Kind)))
		return 0, nil
	}

	return svc.gateway.AddChunks(ctx, chunks)
}

func (svc *service) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domain.ErrMissingMessage
	}

	return svc.answerer.Answer(ctx, message)
}

func (svc *service) Stats(ctx context.Context) (vector.Stats, error) {
	return svc.gateway.Stats(ctx)
}

func (svc *service) Clear(ctx context.Context) error {
	return svc.gateway.Clear(ctx)
}
