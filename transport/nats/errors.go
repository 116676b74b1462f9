package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade/domain"
)

// KindHeader names the domain error behind a micro error reply so the
// client can restore it.
const KindHeader = "Ragblade-Error-Kind"

const (
	CodeBadRequest = "400"
	CodeTimeout    = "408"
	CodeInternal   = "500"
)

var kinds = map[string]error{
	"empty_input":          domain.ErrEmptyInput,
	"empty_content":        domain.ErrEmptyContent,
	"unsupported_type":     domain.ErrUnsupportedType,
	"no_file":              domain.ErrNoFile,
	"file_too_large":       domain.ErrFileTooLarge,
	"missing_url":          domain.ErrMissingURL,
	"invalid_url":          domain.ErrInvalidURL,
	"missing_message":      domain.ErrMissingMessage,
	"invalid_input":        domain.ErrInvalidInput,
	"scrape_failed":        domain.ErrScrapeFailed,
	"store_unavailable":    domain.ErrStoreUnavailable,
	"embedding_failed":     domain.ErrEmbeddingFailed,
	"answer_generation":    domain.ErrAnswerGeneration,
	"upstream_unavailable": domain.ErrUpstreamUnavailable,
}

// Specific kinds first, classes last.
var kindOrder = []string{
	"empty_input", "empty_content", "unsupported_type", "no_file", "file_too_large",
	"missing_url", "invalid_url", "missing_message",
	"scrape_failed", "store_unavailable", "embedding_failed", "answer_generation",
	"invalid_input", "upstream_unavailable",
}

func kindOf(err error) string {
	for _, kind := range kindOrder {
		if errors.Is(err, kinds[kind]) {
			return kind
		}
	}

	return ""
}

// partial is the error data of a partially completed ingestion.
type partial struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

func respondError(r micro.Request, err error) {
	code := CodeInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.Is(err, domain.ErrInvalidInput):
		code = CodeBadRequest
	}

	var data []byte

	var failed *domain.IngestionFailedError
	if errors.As(err, &failed) {
		data, _ = json.Marshal(partial{failed.Added, failed.Total})
	}

	headers := micro.Headers{}
	if kind := kindOf(err); kind != "" {
		headers[KindHeader] = []string{kind}
	}

	r.Error(code, err.Error(), data, micro.WithHeaders(headers))
}

// Error restores the error carried by a micro error reply, or returns nil.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	var err error
	switch kind, ok := kinds[msg.Header.Get(KindHeader)]; {
	case ok:
		err = fmt.Errorf("%w: %s", kind, description)
	case code == CodeTimeout:
		err = fmt.Errorf("%w: %s", context.DeadlineExceeded, description)
	case code == CodeBadRequest:
		err = fmt.Errorf("%w: %s", domain.ErrInvalidInput, description)
	default:
		err = errors.New(code + ":" + description)
	}

	if code == CodeTimeout && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}

	var p partial
	if len(msg.Data) > 0 && json.Unmarshal(msg.Data, &p) == nil && p.Total > 0 {
		err = &domain.IngestionFailedError{
			Added: p.Added,
			Total: p.Total,
			Err:   err,
		}
	}

	return err
}
