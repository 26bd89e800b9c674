package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rebuild_marker_store.go -package=mocks nb-assistant/internal/storage RebuildMarkerStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RebuildMarkerStore defines the interface for write-ahead rebuild markers.
type RebuildMarkerStore interface {
	// Begin records that a rebuild generation has started for a notebook,
	// replacing any previous marker.
	Begin(ctx context.Context, notebookID, generation string) error
	// Complete marks the given generation as finished.
	// Returns ErrNotFound if the notebook's current marker is for another generation.
	Complete(ctx context.Context, notebookID, generation string) error
	// Get returns the current marker for a notebook.
	// Returns nil and ErrNotFound if none exists.
	Get(ctx context.Context, notebookID string) (*RebuildMarker, error)
	// ListInProgress returns every marker still in progress, oldest first.
	ListInProgress(ctx context.Context) ([]RebuildMarker, error)
	// Delete removes the marker for a notebook.
	Delete(ctx context.Context, notebookID string) error
}

// RebuildMarkerRepo provides methods for rebuild marker operations.
// It implements the RebuildMarkerStore interface.
type RebuildMarkerRepo struct {
	db *sql.DB
}

// NewRebuildMarkerRepo creates a new RebuildMarkerRepo.
func NewRebuildMarkerRepo(db *sql.DB) *RebuildMarkerRepo {
	return &RebuildMarkerRepo{db: db}
}

// Begin records that a rebuild generation has started for a notebook.
func (r *RebuildMarkerRepo) Begin(ctx context.Context, notebookID, generation string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rebuild_markers (notebook_id, generation, state, started_at, finished_at) VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT(notebook_id) DO UPDATE SET generation = excluded.generation, state = excluded.state,
		 started_at = excluded.started_at, finished_at = NULL`,
		notebookID, generation, RebuildInProgress, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild marker: %w", err)
	}
	return nil
}

// Complete marks the given generation as finished.
func (r *RebuildMarkerRepo) Complete(ctx context.Context, notebookID, generation string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE rebuild_markers SET state = ?, finished_at = ? WHERE notebook_id = ? AND generation = ?",
		RebuildComplete, time.Now().UTC().Format(time.RFC3339), notebookID, generation,
	)
	if err != nil {
		return fmt.Errorf("failed to complete rebuild marker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rebuild marker update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the current marker for a notebook.
func (r *RebuildMarkerRepo) Get(ctx context.Context, notebookID string) (*RebuildMarker, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT notebook_id, generation, state, started_at, finished_at FROM rebuild_markers WHERE notebook_id = ?",
		notebookID,
	)
	marker, err := scanMarker(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rebuild marker: %w", err)
	}
	return marker, nil
}

// ListInProgress returns every marker still in progress, oldest first.
func (r *RebuildMarkerRepo) ListInProgress(ctx context.Context) ([]RebuildMarker, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT notebook_id, generation, state, started_at, finished_at FROM rebuild_markers WHERE state = ? ORDER BY started_at",
		RebuildInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebuild markers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var markers []RebuildMarker
	for rows.Next() {
		marker, err := scanMarker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rebuild marker: %w", err)
		}
		markers = append(markers, *marker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return markers, nil
}

// Delete removes the marker for a notebook.
func (r *RebuildMarkerRepo) Delete(ctx context.Context, notebookID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM rebuild_markers WHERE notebook_id = ?", notebookID)
	if err != nil {
		return fmt.Errorf("failed to delete rebuild marker: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarker(row rowScanner) (*RebuildMarker, error) {
	var marker RebuildMarker
	var startedAtStr string
	var finishedAtStr sql.NullString
	if err := row.Scan(&marker.NotebookID, &marker.Generation, &marker.State, &startedAtStr, &finishedAtStr); err != nil {
		return nil, err
	}
	marker.StartedAt = parseTimestamp(startedAtStr)
	if finishedAtStr.Valid {
		finishedAt := parseTimestamp(finishedAtStr.String)
		marker.FinishedAt = &finishedAt
	}
	return &marker, nil
}
