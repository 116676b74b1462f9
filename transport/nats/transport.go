package nats

import (
	"context"
	"encoding/json"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
)

func requestContext(timeout ragblade.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}

	return context.WithTimeout(context.Background(), timeout.Duration())
}

func IngestFileHandler(endpoint endpoint.Endpoint, timeout ragblade.Duration) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.IngestFileRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx, cancel := requestContext(timeout)
		defer cancel()

		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func IngestTextHandler(endpoint endpoint.Endpoint, timeout ragblade.Duration) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.IngestTextRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx, cancel := requestContext(timeout)
		defer cancel()

		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func IngestURLHandler(endpoint endpoint.Endpoint, timeout ragblade.Duration) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.IngestURLRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx, cancel := requestContext(timeout)
		defer cancel()

		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ChatHandler(endpoint endpoint.Endpoint, timeout ragblade.Duration) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.ChatRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx, cancel := requestContext(timeout)
		defer cancel()

		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func StatsHandler(endpoint endpoint.Endpoint, timeout ragblade.Duration) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, cancel := requestContext(timeout)
		defer cancel()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ClearHandler(endpoint endpoint.Endpoint, timeout ragblade.Duration) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, cancel := requestContext(timeout)
		defer cancel()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}
