// Package llm wraps the text-generation providers behind one interface.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is a single prompt/response exchange.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a single JSON object.
	JSON bool
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
