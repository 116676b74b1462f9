package ragblade

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/domain"
	"github.com/flarexio/ragblade/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ragblade"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) IngestFile(ctx context.Context, file File) (int, error) {
	log := mw.log.With(
		zap.String("action", "ingest_file"),
		zap.String("filename", file.Filename),
		zap.String("mime_type", file.MIMEType),
		zap.Int("size", len(file.Data)),
	)

	n, err := mw.next.IngestFile(ctx, file)
	if err != nil {
		logIngestError(log, err)
		return n, err
	}

	log.Info("file ingested", zap.Int("chunks", n))
	return n, nil
}

func (mw *loggingMiddleware) IngestText(ctx context.Context, text string) (int, error) {
	log := mw.log.With(
		zap.String("action", "ingest_text"),
		zap.Int("length", len(text)),
	)

	n, err := mw.next.IngestText(ctx, text)
	if err != nil {
		logIngestError(log, err)
		return n, err
	}

	log.Info("text ingested", zap.Int("chunks", n))
	return n, nil
}

func (mw *loggingMiddleware) IngestURL(ctx context.Context, url string) (int, error) {
	log := mw.log.With(
		zap.String("action", "ingest_url"),
		zap.String("url", url),
	)

	n, err := mw.next.IngestURL(ctx, url)
	if err != nil {
		logIngestError(log, err)
		return n, err
	}

	log.Info("website ingested", zap.Int("chunks", n))
	return n, nil
}

func logIngestError(log *zap.Logger, err error) {
	var failed *domain.IngestionFailedError
	if errors.As(err, &failed) {
		log = log.With(
			zap.Int("added", failed.Added),
			zap.Int("total", failed.Total),
		)
	}

	log.Error(err.Error())
}

func (mw *loggingMiddleware) Chat(ctx context.Context, message string) (string, error) {
	log := mw.log.With(
		zap.String("action", "chat"),
		zap.String("message", message),
	)

	reply, err := mw.next.Chat(ctx, message)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered", zap.Int("length", len(reply)))
	return reply, nil
}

func (mw *loggingMiddleware) Stats(ctx context.Context) (vector.Stats, error) {
	log := mw.log.With(
		zap.String("action", "stats"),
	)

	stats, err := mw.next.Stats(ctx)
	if err != nil {
		log.Error(err.Error())
		return stats, err
	}

	log.Info("stats retrieved",
		zap.String("collection", stats.Collection),
		zap.Int("count", stats.Count),
	)
	return stats, nil
}

func (mw *loggingMiddleware) Clear(ctx context.Context) error {
	log := mw.log.With(
		zap.String("action", "clear"),
	)

	err := mw.next.Clear(ctx)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("vector store cleared")
	return nil
}
