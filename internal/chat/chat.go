// Package chat streams assistant answers from an OpenAI-compatible backend.
package chat

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Request is one single-turn completion request.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

// Backend streams answer text for a request. onDelta is invoked zero or more
// times in arrival order before StreamChat returns.
type Backend interface {
	StreamChat(ctx context.Context, req Request, onDelta func(string)) error
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, req Request, onDelta func(string)) error

// StreamChat calls f.
func (f BackendFunc) StreamChat(ctx context.Context, req Request, onDelta func(string)) error {
	return f(ctx, req, onDelta)
}

// UserMessage maps a backend failure to the single message shown to the user.
// Cancellation maps to the empty string.
func UserMessage(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The assistant took too long to answer. Try again."
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "The assistant rejected the API key. Check OPENAI_API_KEY."
	case status == http.StatusTooManyRequests:
		return "The assistant is rate limited right now. Try again shortly."
	case status >= 500:
		return "The assistant is unavailable right now. Try again shortly."
	case status != 0:
		return "The assistant could not answer that request."
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return "Could not reach the assistant. Check your connection."
	}
	return "Something went wrong while answering. Try again."
}
