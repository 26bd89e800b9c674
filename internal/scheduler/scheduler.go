package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"nb-assistant/internal/indexer"
)

// Rebuilder runs a full rebuild of one notebook.
type Rebuilder interface {
	Rebuild(ctx context.Context, notebookID, notebookName string) (*indexer.RebuildReport, error)
}

// RunStatus describes the last scheduled pass over one notebook.
type RunStatus struct {
	NotebookID     string
	LastRun        time.Time
	Duration       time.Duration
	ChunksEmbedded int
	Err            error
}

// Scheduler rebuilds a fixed set of notebooks on a cron schedule.
// Notebooks in one pass are rebuilt one at a time, in id order.
type Scheduler struct {
	rebuilder Rebuilder
	schedule  string
	notebooks map[string]string
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.RWMutex
	running bool
	status  map[string]RunStatus
	pass    sync.Mutex
}

// New creates a scheduler. schedule is a standard five-field cron spec;
// notebooks maps notebook id to display name.
func New(rebuilder Rebuilder, schedule string, notebooks map[string]string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", schedule, err)
	}
	if len(notebooks) == 0 {
		return nil, errors.New("no notebooks to schedule")
	}

	return &Scheduler{
		rebuilder: rebuilder,
		schedule:  schedule,
		notebooks: notebooks,
		cron:      cron.New(),
		logger:    logger.With("component", "scheduler"),
		status:    make(map[string]RunStatus, len(notebooks)),
	}, nil
}

// Start begins running passes on the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunNow(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule rebuilds: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.InfoContext(ctx, "rebuild scheduler started", "schedule", s.schedule, "notebooks", len(s.notebooks))
	return nil
}

// Stop stops the schedule and waits up to timeout for a running pass.
func (s *Scheduler) Stop(timeout time.Duration) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("rebuild scheduler stopped")
	case <-time.After(timeout):
		s.logger.Warn("rebuild scheduler stop timed out")
	}
}

// RunNow runs one pass over every configured notebook.
// Overlapping passes are skipped.
func (s *Scheduler) RunNow(ctx context.Context) {
	if !s.pass.TryLock() {
		s.logger.WarnContext(ctx, "previous rebuild pass still running, skipping")
		return
	}
	defer s.pass.Unlock()

	ids := make([]string, 0, len(s.notebooks))
	for id := range s.notebooks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.rebuild(ctx, id, s.notebooks[id])
	}
}

func (s *Scheduler) rebuild(ctx context.Context, notebookID, name string) {
	start := time.Now()
	report, err := s.rebuilder.Rebuild(ctx, notebookID, name)

	status := RunStatus{NotebookID: notebookID, LastRun: start, Duration: time.Since(start), Err: err}
	switch {
	case errors.Is(err, indexer.ErrRebuildRunning):
		s.logger.InfoContext(ctx, "notebook already rebuilding, skipping", "notebook_id", notebookID)
	case err != nil:
		s.logger.ErrorContext(ctx, "scheduled rebuild failed", "notebook_id", notebookID, "error", err)
	default:
		status.ChunksEmbedded = report.ChunksEmbedded
		s.logger.InfoContext(ctx, "scheduled rebuild completed",
			"notebook_id", notebookID,
			"chunks_embedded", report.ChunksEmbedded,
			"duration", status.Duration,
		)
	}

	s.mu.Lock()
	s.status[notebookID] = status
	s.mu.Unlock()
}

// Status returns the last run of each notebook that has been rebuilt.
func (s *Scheduler) Status() map[string]RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]RunStatus, len(s.status))
	for id, st := range s.status {
		out[id] = st
	}
	return out
}
