package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName     = "sqlite"
	maxAttempts    = 5
	defaultProject = "default"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record is one build outcome.
type Record struct {
	ID        string
	Project   string
	StartedAt time.Time
	Duration  time.Duration
	Files     int
	Nodes     int
	Edges     int
	Status    string
	Error     string
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores rec, assigning an ID and timestamp when missing, and returns
// the stored ID.
func (s *Store) Record(ctx context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		return "", fmt.Errorf("invalid build id %q: %w", rec.ID, err)
	}
	rec.Project = strings.TrimSpace(rec.Project)
	if rec.Project == "" {
		rec.Project = defaultProject
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusOK
	}

	err := s.withRetry("record build", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO builds (id, project, started_at_utc, duration_ms, file_count, node_count, edge_count, status, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID,
			rec.Project,
			rec.StartedAt.UTC().Format(time.RFC3339Nano),
			rec.Duration.Milliseconds(),
			rec.Files,
			rec.Nodes,
			rec.Edges,
			rec.Status,
			rec.Error,
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Recent returns up to limit builds of project, newest first.
func (s *Store) Recent(ctx context.Context, project string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project = strings.TrimSpace(project)
	if project == "" {
		project = defaultProject
	}
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	err := s.withRetry("load builds", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, project, started_at_utc, duration_ms, file_count, node_count, edge_count, status, error
FROM builds
WHERE project = ?
ORDER BY started_at_utc DESC, id ASC
LIMIT ?`, project, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec        Record
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.Project, &startedRaw, &durationMS, &rec.Files, &rec.Nodes, &rec.Edges, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build timestamp %q: %w", startedRaw, err)
		}
		rec.StartedAt = started.UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build rows: %w", err)
	}
	return records, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
