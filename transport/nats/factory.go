package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/domain"
)

// DefaultTimeout applies to requests whose context has no deadline. It
// covers the slowest server side operation.
const DefaultTimeout = 90 * time.Second

var errInvalidRequest = errors.New("invalid request")

func MakeEndpoints(nc *nats.Conn, prefix string) ragblade.EndpointSet {
	return ragblade.EndpointSet{
		IngestFile: IngestFileEndpoint(nc, prefix+"."+SubjectIngestFile),
		IngestText: IngestTextEndpoint(nc, prefix+"."+SubjectIngestText),
		IngestURL:  IngestURLEndpoint(nc, prefix+"."+SubjectIngestURL),
		Chat:       ChatEndpoint(nc, prefix+"."+SubjectChat),
		Stats:      StatsEndpoint(nc, prefix+"."+SubjectStats),
		Clear:      ClearEndpoint(nc, prefix+"."+SubjectClear),
	}
}

func requestJSON(ctx context.Context, nc *nats.Conn, topic string, req any, resp any) error {
	var data []byte
	if req != nil {
		bs, err := json.Marshal(req)
		if err != nil {
			return err
		}

		data = bs
	}

	if limit := nc.MaxPayload(); limit > 0 && int64(len(data)) > limit {
		return fmt.Errorf("%w: payload of %d bytes exceeds the server limit of %d",
			domain.ErrFileTooLarge, len(data), limit)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	msg, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return err
	}

	if err := Error(msg); err != nil {
		return err
	}

	return json.Unmarshal(msg.Data, resp)
}

func IngestFileEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.IngestFileRequest)
		if !ok {
			return nil, errInvalidRequest
		}

		var resp ragblade.IngestResponse
		if err := requestJSON(ctx, nc, topic, req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func IngestTextEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.IngestTextRequest)
		if !ok {
			return nil, errInvalidRequest
		}

		var resp ragblade.IngestResponse
		if err := requestJSON(ctx, nc, topic, req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func IngestURLEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.IngestURLRequest)
		if !ok {
			return nil, errInvalidRequest
		}

		var resp ragblade.IngestResponse
		if err := requestJSON(ctx, nc, topic, req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func ChatEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.ChatRequest)
		if !ok {
			return nil, errInvalidRequest
		}

		var resp ragblade.ChatResponse
		if err := requestJSON(ctx, nc, topic, req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func StatsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		var resp ragblade.StatsResponse
		if err := requestJSON(ctx, nc, topic, nil, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func ClearEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		var resp ragblade.ClearResponse
		if err := requestJSON(ctx, nc, topic, nil, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}
