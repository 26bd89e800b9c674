package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr bool
	}{
		{
			name:    "file in temp dir",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "cache.db") },
			wantErr: false,
		},
		{
			name:    "missing parent directory",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing", "cache.db") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.path(t))
			if db != nil {
				defer func() {
					_ = db.Close()
				}()
			}

			if tt.wantErr {
				if err == nil {
					t.Error("New() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}

			var fkEnabled int
			if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
				t.Fatalf("PRAGMA foreign_keys error = %v", err)
			}
			if fkEnabled != 1 {
				t.Error("New() should enable foreign keys")
			}
			if got := db.Stats().MaxOpenConnections; got != 25 {
				t.Errorf("MaxOpenConnections = %d, want 25", got)
			}
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}

	for _, table := range []string{"index_cache", "chunks", "rebuild_markers"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("lookup of table %s error = %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s count = %d, want 1", table, count)
		}
	}
}

func TestMigrate_ChunksKeyedByNotebookAndID(t *testing.T) {
	db := newTestDB(t)

	insert := func(notebookID string, id int) error {
		_, err := db.Exec(
			"INSERT INTO chunks (notebook_id, id, notebook_name, block_ids, content) VALUES (?, ?, 'NB', '[]', '')",
			notebookID, id,
		)
		return err
	}

	if err := insert("nb1", 1); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if err := insert("nb2", 1); err != nil {
		t.Errorf("same chunk id in another notebook error = %v, want nil", err)
	}
	if err := insert("nb1", 1); err == nil {
		t.Error("duplicate (notebook_id, id) insert succeeded, want constraint error")
	}

	var blocks string
	if err := db.QueryRow("SELECT blocks FROM chunks WHERE notebook_id = 'nb1' AND id = 1").Scan(&blocks); err != nil {
		t.Fatalf("select blocks error = %v", err)
	}
	if blocks != "[]" {
		t.Errorf("default blocks = %q, want []", blocks)
	}
}

func TestMigrate_IndexCacheHoldsOneSnapshotPerNotebook(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.Exec("INSERT INTO index_cache (notebook_id, snapshot) VALUES ('nb1', x'01')"); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if _, err := db.Exec("INSERT INTO index_cache (notebook_id, snapshot) VALUES ('nb1', x'02')"); err == nil {
		t.Error("second snapshot for the same notebook succeeded, want constraint error")
	}
	if _, err := db.Exec("INSERT INTO index_cache (notebook_id) VALUES ('nb2')"); err == nil {
		t.Error("snapshot-less insert succeeded, want NOT NULL error")
	}
}

func TestMigrate_RebuildMarkerRequiresState(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Exec("INSERT INTO rebuild_markers (notebook_id, generation, started_at) VALUES ('nb1', 'g1', CURRENT_TIMESTAMP)")
	if err == nil {
		t.Error("marker without state succeeded, want NOT NULL error")
	}

	_, err = db.Exec("INSERT INTO rebuild_markers (notebook_id, generation, state, started_at) VALUES ('nb1', 'g1', 'in_progress', CURRENT_TIMESTAMP)")
	if err != nil {
		t.Fatalf("marker insert error = %v", err)
	}

	var finished sql.NullTime
	if err := db.QueryRow("SELECT finished_at FROM rebuild_markers WHERE notebook_id = 'nb1'").Scan(&finished); err != nil {
		t.Fatalf("select finished_at error = %v", err)
	}
	if finished.Valid {
		t.Errorf("finished_at = %v, want NULL for an in-progress marker", finished.Time)
	}
}

func TestMigrate_AddsBlocksColumnToExistingCache(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(`CREATE TABLE chunks (
		notebook_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		notebook_name TEXT NOT NULL,
		block_ids TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (notebook_id, id)
	);`)
	if err != nil {
		t.Fatalf("create legacy table error = %v", err)
	}
	if _, err := db.Exec("INSERT INTO chunks VALUES ('nb1', 1, 'NB', '[\"b1\"]', 'text')"); err != nil {
		t.Fatalf("legacy insert error = %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	chunks, err := NewChunkRepo(db).GetByIDs(t.Context(), "nb1", []int{1})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "text" || chunks[0].Blocks != nil {
		t.Errorf("GetByIDs() = %+v, want legacy chunk without block text", chunks)
	}
}
