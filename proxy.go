package ragblade

import (
	"context"
	"errors"

	"github.com/flarexio/ragblade/domain"
	"github.com/flarexio/ragblade/vector"
)

// ProxyMiddleware serves the Service interface from remote endpoints,
// ignoring the wrapped service.
func ProxyMiddleware(endpoints EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

var ErrInvalidResponse = errors.New("invalid response type")

type proxyMiddleware struct {
	endpoints EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) ingest(ctx context.Context, e func(context.Context, any) (any, error), req any) (int, error) {
	resp, err := e(ctx, req)
	if err != nil {
		var failed *domain.IngestionFailedError
		if errors.As(err, &failed) {
			return failed.Added, err
		}

		return 0, err
	}

	result, ok := resp.(IngestResponse)
	if !ok {
		return 0, ErrInvalidResponse
	}

	return result.Chunks, nil
}

func (mw *proxyMiddleware) IngestFile(ctx context.Context, file File) (int, error) {
	return mw.ingest(ctx, mw.endpoints.IngestFile, file)
}

func (mw *proxyMiddleware) IngestText(ctx context.Context, text string) (int, error) {
	return mw.ingest(ctx, mw.endpoints.IngestText, IngestTextRequest{text})
}

func (mw *proxyMiddleware) IngestURL(ctx context.Context, url string) (int, error) {
	return mw.ingest(ctx, mw.endpoints.IngestURL, IngestURLRequest{url})
}

func (mw *proxyMiddleware) Chat(ctx context.Context, message string) (string, error) {
	resp, err := mw.endpoints.Chat(ctx, ChatRequest{message})
	if err != nil {
		return "", err
	}

	result, ok := resp.(ChatResponse)
	if !ok {
		return "", ErrInvalidResponse
	}

	return result.Reply, nil
}

func (mw *proxyMiddleware) Stats(ctx context.Context) (vector.Stats, error) {
	resp, err := mw.endpoints.Stats(ctx, nil)
	if err != nil {
		return vector.Stats{}, err
	}

	result, ok := resp.(StatsResponse)
	if !ok {
		return vector.Stats{}, ErrInvalidResponse
	}

	return vector.Stats{
		Backend:    vector.Backend(result.Backend),
		Collection: result.Collection,
		Dimension:  result.Dimension,
		Count:      result.Count,
	}, nil
}

func (mw *proxyMiddleware) Clear(ctx context.Context) error {
	_, err := mw.endpoints.Clear(ctx, nil)
	return err
}
