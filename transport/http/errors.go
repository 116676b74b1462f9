package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flarexio/ragblade/domain"
)

const MessageTimeout = "Request timed out"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Chunks  *int   `json:"chunks,omitempty"`
}

// Fixed messages for input errors.
var inputMessages = []struct {
	err     error
	message string
}{
	{domain.ErrNoFile, "No file uploaded."},
	{domain.ErrFileTooLarge, "File too large. Maximum size is 10MB."},
	{domain.ErrUnsupportedType, "Unsupported file type. Please upload PDF, TXT, or CSV files."},
	{domain.ErrEmptyInput, "Text is required"},
	{domain.ErrMissingURL, "URL is required"},
	{domain.ErrInvalidURL, "Invalid URL"},
	{domain.ErrMissingMessage, "Message is required"},
}

// StatusOf maps an error to its HTTP status and short message. fallback
// names the failed operation for upstream errors.
func StatusOf(ctx context.Context, err error, fallback string) (int, ErrorResponse) {
	resp := ErrorResponse{
		Details: err.Error(),
	}

	var failed *domain.IngestionFailedError
	if errors.As(err, &failed) {
		added := failed.Added
		resp.Chunks = &added
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):

		resp.Error = MessageTimeout
		return http.StatusRequestTimeout, resp

	case errors.Is(err, domain.ErrInvalidInput):
		resp.Error = inputMessage(err, fallback)
		return http.StatusBadRequest, resp
	}

	resp.Error = fallback
	return http.StatusInternalServerError, resp
}

func inputMessage(err error, fallback string) string {
	for _, m := range inputMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}

	if errors.Is(err, domain.ErrEmptyContent) {
		switch fallback {
		case MessageScrapeFailed:
			return "No content found on the website"
		case MessageFileFailed:
			return "No content found in the file"
		}

		return "No content found"
	}

	return "Invalid request"
}

func abortWithError(c *gin.Context, err error, fallback string) {
	status, resp := StatusOf(c.Request.Context(), err, fallback)

	c.Error(err)
	c.AbortWithStatusJSON(status, &resp)
}
