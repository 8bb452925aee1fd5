// Package llm provides a uniform gateway to pluggable text-generation
// backends. The agent pipeline depends only on the Client interface; the
// concrete backend is chosen once at startup via NewClient.
package llm

import "context"

type Request struct {
	Prompt        string
	SystemMessage string
	MaxTokens     int
	Temperature   float64
}

type Client interface {
	// Generate returns raw model text for the given prompt. Implementations
	// may fail on transport or auth errors; callers are expected to treat a
	// failure as recoverable.
	Generate(ctx context.Context, req Request) (string, error)

	// Provider reports the backend name for logging and metrics.
	Provider() string
}
