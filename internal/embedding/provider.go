// Package embedding runs chunk and query text through an embedding provider under an
// explicit session that owns initialisation and throttling.
package embedding

import "context"

// Provider turns text into a vector. A nil vector with a nil error is a null result:
// the provider had nothing to return for that text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Initializer is implemented by providers that need one-time setup, such as loading
// the model into the inference server, before the first Embed call.
type Initializer interface {
	Init(ctx context.Context) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f(ctx, text).
func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}
