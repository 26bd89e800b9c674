package embedding

import (
	"context"
	"errors"
	"sync"
)

// ErrWorkerClosed is returned for requests made after Close.
var ErrWorkerClosed = errors.New("embedding worker closed")

type requestKind int

const (
	initModel requestKind = iota
	createEmbedding
)

func (k requestKind) String() string {
	if k == initModel {
		return "init-model"
	}
	return "create-embedding"
}

type request struct {
	ctx   context.Context
	kind  requestKind
	text  string
	reply chan response
}

type response struct {
	vector []float32
	err    error
}

// Worker runs a provider on its own goroutine. Requests are handed over on an
// unbuffered channel, so at most one is in flight and callers block until the
// worker is free.
type Worker struct {
	provider  Provider
	requests  chan request
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// StartWorker starts the worker goroutine.
func StartWorker(provider Provider) *Worker {
	w := &Worker{
		provider: provider,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			req.reply <- w.handle(req)
		}
	}
}

func (w *Worker) handle(req request) response {
	switch req.kind {
	case initModel:
		if init, ok := w.provider.(Initializer); ok {
			return response{err: init.Init(req.ctx)}
		}
		return response{}
	default:
		vec, err := w.provider.Embed(req.ctx, req.text)
		return response{vector: vec, err: err}
	}
}

func (w *Worker) call(ctx context.Context, kind requestKind, text string) ([]float32, error) {
	req := request{ctx: ctx, kind: kind, text: text, reply: make(chan response, 1)}

	select {
	case <-w.done:
		return nil, ErrWorkerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case w.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-req.reply:
		return resp.vector, resp.err
	}
}

// Init sends an init-model request.
func (w *Worker) Init(ctx context.Context) error {
	_, err := w.call(ctx, initModel, "")
	return err
}

// Embed sends a create-embedding request.
func (w *Worker) Embed(ctx context.Context, text string) ([]float32, error) {
	return w.call(ctx, createEmbedding, text)
}

// Close stops the worker and waits for an in-flight request to finish.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}
