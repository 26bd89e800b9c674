package embedding

import (
	"context"
	"fmt"
	"sync"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/textnorm"
)

// Session owns the embedding provider for the lifetime of an engine. It initialises
// the provider once and routes every call through its throttle.
type Session struct {
	provider   Provider
	throttle   *Throttle
	normalizer *textnorm.Normalizer

	mu          sync.Mutex
	initialized bool
}

// NewSession creates a session. A nil throttle uses DefaultInterval and a nil
// normalizer uses the default English stop words.
func NewSession(provider Provider, throttle *Throttle, normalizer *textnorm.Normalizer) *Session {
	if throttle == nil {
		throttle = NewThrottle(DefaultInterval)
	}
	if normalizer == nil {
		normalizer = textnorm.New()
	}
	return &Session{provider: provider, throttle: throttle, normalizer: normalizer}
}

// Init runs the provider's one-time setup. A failed setup is retried on the next call.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if init, ok := s.provider.(Initializer); ok {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "initializing embedding model")
		if err := init.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize embedding model: %w", err)
		}
	}
	s.initialized = true
	return nil
}

// EmbedChunk normalizes chunk text and embeds it.
func (s *Session) EmbedChunk(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, s.normalizer.Normalize(text))
}

// EmbedQuery embeds query text as typed.
func (s *Session) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text)
}

func (s *Session) embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}

	var vec []float32
	err := s.throttle.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = s.provider.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}
