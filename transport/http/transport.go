package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/domain"
)

const (
	MessageFileFailed   = "Failed to process file"
	MessageTextFailed   = "Failed to process text"
	MessageScrapeFailed = "Failed to scrape website"
	MessageChatFailed   = "Failed to generate response"
	MessageStatsFailed  = "Failed to get store stats"
	MessageClearFailed  = "Failed to clear vector store"
)

// Timeout bounds the request context. Every external call made while
// serving the request inherits the deadline.
func Timeout(d ragblade.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d.Duration())
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func UploadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		// multipart overhead on top of the file itself
		limit := ragblade.MaxUploadSize + 1<<20
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		fh, err := c.FormFile("file")
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				err = domain.ErrFileTooLarge
			} else {
				err = domain.ErrNoFile
			}

			abortWithError(c, err, MessageFileFailed)
			return
		}

		if fh.Size > ragblade.MaxUploadSize {
			abortWithError(c, domain.ErrFileTooLarge, MessageFileFailed)
			return
		}

		f, err := fh.Open()
		if err != nil {
			abortWithError(c, err, MessageFileFailed)
			return
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			abortWithError(c, err, MessageFileFailed)
			return
		}

		req := ragblade.IngestFileRequest{
			Filename: fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err, MessageFileFailed)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func TextHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.IngestTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, domain.ErrEmptyInput, MessageTextFailed)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err, MessageTextFailed)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ScrapeHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.IngestURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, domain.ErrMissingURL, MessageScrapeFailed)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err, MessageScrapeFailed)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ChatHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, domain.ErrMissingMessage, MessageChatFailed)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err, MessageChatFailed)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func StatsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abortWithError(c, err, MessageStatsFailed)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ClearHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abortWithError(c, err, MessageClearFailed)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
