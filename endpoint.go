package ragblade

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

const (
	MessageFileProcessed = "File processed successfully"
	MessageTextAdded     = "Text added successfully"
	MessageWebsiteAdded  = "Website scraped successfully"
	MessageStoreCleared  = "Vector store cleared successfully"
	MessageStoreReady    = "Vector store is ready"

	StatusReady = "ready"
)

type EndpointSet struct {
	IngestFile endpoint.Endpoint
	IngestText endpoint.Endpoint
	IngestURL  endpoint.Endpoint
	Chat       endpoint.Endpoint
	Stats      endpoint.Endpoint
	Clear      endpoint.Endpoint
}

func NewEndpointSet(svc Service) EndpointSet {
	return EndpointSet{
		IngestFile: IngestFileEndpoint(svc),
		IngestText: IngestTextEndpoint(svc),
		IngestURL:  IngestURLEndpoint(svc),
		Chat:       ChatEndpoint(svc),
		Stats:      StatsEndpoint(svc),
		Clear:      ClearEndpoint(svc),
	}
}

type IngestResponse struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

type IngestFileRequest = File

func IngestFileEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestFileRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		n, err := svc.IngestFile(ctx, req)
		if err != nil {
			return nil, err
		}

		return IngestResponse{MessageFileProcessed, n}, nil
	}
}

type IngestTextRequest struct {
	Text string `json:"text"`
}

func IngestTextEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestTextRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		n, err := svc.IngestText(ctx, req.Text)
		if err != nil {
			return nil, err
		}

		return IngestResponse{MessageTextAdded, n}, nil
	}
}

type IngestURLRequest struct {
	URL string `json:"url"`
}

func IngestURLEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestURLRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		n, err := svc.IngestURL(ctx, req.URL)
		if err != nil {
			return nil, err
		}

		return IngestResponse{MessageWebsiteAdded, n}, nil
	}
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

func ChatEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ChatRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		reply, err := svc.Chat(ctx, req.Message)
		if err != nil {
			return nil, err
		}

		return ChatResponse{reply}, nil
	}
}

type StatsResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Collection string `json:"collection"`
	Count      int    `json:"count"`
	Dimension  int    `json:"dimension,omitempty"`
	Backend    string `json:"backend,omitempty"`
}

func StatsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, err
		}

		return StatsResponse{
			Status:     StatusReady,
			Message:    MessageStoreReady,
			Collection: stats.Collection,
			Count:      stats.Count,
			Dimension:  stats.Dimension,
			Backend:    string(stats.Backend),
		}, nil
	}
}

type ClearResponse struct {
	Message string `json:"message"`
}

func ClearEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if err := svc.Clear(ctx); err != nil {
			return nil, err
		}

		return ClearResponse{MessageStoreCleared}, nil
	}
}
