package messages

import (
	"context"
	"log/slog"
	"sync"
)

// Async delivers messages to a sink from a background goroutine so callers never
// wait on delivery. Messages are dropped when the queue is full.
type Async struct {
	sink   Sink
	queue  chan Message
	logger *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsync starts a delivery goroutine with room for queueSize pending messages.
func NewAsync(sink Sink, queueSize int) *Async {
	if queueSize <= 0 {
		queueSize = 64
	}
	a := &Async{
		sink:   sink,
		queue:  make(chan Message, queueSize),
		logger: slog.Default(),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for msg := range a.queue {
		if err := a.sink.Notify(context.Background(), msg); err != nil {
			a.logger.Warn("failed to deliver notification", "message", msg.Text, "error", err)
		}
	}
}

// Notify enqueues msg and returns immediately.
func (a *Async) Notify(ctx context.Context, msg Message) error {
	select {
	case a.queue <- msg:
	default:
		a.logger.WarnContext(ctx, "notification queue full, dropping message", "message", msg.Text)
	}
	return nil
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.once.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
}
