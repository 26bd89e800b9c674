package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/messages"
	"nb-assistant/internal/storage"
)

const (
	// ProgressEvery is the number of embedded chunks between progress messages.
	ProgressEvery = 100
	// EstimateThreshold is the chunk count above which an upfront estimate is sent.
	EstimateThreshold = 500
	// SecondsPerChunk is the rough embedding cost used for the estimate.
	SecondsPerChunk = 3
)

// Stats counts what happened to the chunks of one EmbedAll run.
type Stats struct {
	Total    int
	Skipped  int // empty content
	Dropped  int // null result or provider error
	Embedded int
}

// Orchestrator embeds a notebook's chunks one after another through a session.
type Orchestrator struct {
	session *Session
	sink    messages.Sink
}

// NewOrchestrator creates an orchestrator reporting progress to sink.
func NewOrchestrator(session *Session, sink messages.Sink) *Orchestrator {
	return &Orchestrator{session: session, sink: sink}
}

// EstimateMinutes is the rough wall time for embedding n chunks, rounded.
func EstimateMinutes(n int) int {
	return int(math.Round(float64(n*SecondsPerChunk) / 60))
}

// EmbedAll embeds chunks strictly in order and returns one pair per embedded chunk,
// keyed by the chunk's id. Empty chunks are skipped; chunks the provider returns
// nothing for, or fails on, are dropped without retry. Only context cancellation
// stops the run.
func (o *Orchestrator) EmbedAll(ctx context.Context, chunks []storage.Chunk) ([]hnsw.Pair, Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	stats := Stats{Total: len(chunks)}

	if len(chunks) > EstimateThreshold {
		o.notify(ctx, messages.Info(fmt.Sprintf(
			"Embedding %d chunks, this will take about %d minutes", len(chunks), EstimateMinutes(len(chunks)))))
	}

	pairs := make([]hnsw.Pair, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if strings.TrimSpace(chunk.Content) == "" {
			stats.Skipped++
			continue
		}

		vec, err := o.session.EmbedChunk(ctx, chunk.Content)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
			logger.WarnContext(ctx, "embedding failed, dropping chunk", "chunk_id", chunk.ID, "error", err)
			stats.Dropped++
			continue
		}
		if vec == nil {
			logger.WarnContext(ctx, "embedding returned nothing, dropping chunk", "chunk_id", chunk.ID)
			stats.Dropped++
			continue
		}

		pairs = append(pairs, hnsw.Pair{ID: chunk.ID, Vector: vec})
		stats.Embedded++

		if stats.Embedded%ProgressEvery == 0 {
			left := stats.Total - stats.Embedded
			logger.InfoContext(ctx, "embedding progress", "processed", stats.Embedded, "left", left)
			o.notify(ctx, messages.Info(fmt.Sprintf("Processed %d chunks, %d left", stats.Embedded, left)))
		}
	}

	logger.InfoContext(ctx, "embedding finished",
		"total", stats.Total, "embedded", stats.Embedded, "dropped", stats.Dropped, "skipped", stats.Skipped)
	return pairs, stats, nil
}

func (o *Orchestrator) notify(ctx context.Context, msg messages.Message) {
	if err := o.sink.Notify(ctx, msg); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to send notification", "error", err)
	}
}
