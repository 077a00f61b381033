package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	firstID, err := store.Record(ctx, Record{
		Project:   "app",
		StartedAt: base,
		Duration:  1500 * time.Millisecond,
		Files:     3,
		Nodes:     12,
		Edges:     4,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(firstID)
	require.NoError(t, err, "generated ids are uuids")

	_, err = store.Record(ctx, Record{
		Project:   "app",
		StartedAt: base.Add(time.Hour),
		Status:    StatusFailed,
		Error:     "cyclic dependency",
	})
	require.NoError(t, err)
	_, err = store.Record(ctx, Record{Project: "other", StartedAt: base})
	require.NoError(t, err)

	got, err := store.Recent(ctx, "app", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, StatusFailed, got[0].Status, "newest first")
	assert.Equal(t, "cyclic dependency", got[0].Error)
	assert.Equal(t, firstID, got[1].ID)
	assert.Equal(t, StatusOK, got[1].Status)
	assert.Equal(t, 1500*time.Millisecond, got[1].Duration)
	assert.Equal(t, 12, got[1].Nodes)
	assert.True(t, got[1].StartedAt.Equal(base))

	limited, err := store.Recent(ctx, "app", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_DefaultProject(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Record(ctx, Record{Project: "  "})
	require.NoError(t, err)

	got, err := store.Recent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "default", got[0].Project)
}

func TestStore_RejectsInvalidID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Record(context.Background(), Record{ID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}
