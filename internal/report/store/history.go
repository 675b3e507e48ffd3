package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
	"github.com/shandysiswandi/vidstat/internal/report/entity"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS submissions (
	id            INTEGER PRIMARY KEY,
	report_id     TEXT    NOT NULL,
	owner         TEXT    NOT NULL,
	date_ms       INTEGER NOT NULL,
	uploads       INTEGER NOT NULL,
	views         INTEGER NOT NULL,
	survive_count INTEGER NOT NULL,
	survive_rate  REAL    NOT NULL,
	order_amount  REAL    NOT NULL,
	record_id     TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_owner ON submissions(owner, id);
`

// SQLiteHistory records every summary row pushed to Feishu.
type SQLiteHistory struct {
	db  *sql.DB
	id  pkguid.NumberID
	now func() time.Time
}

// OpenSQLiteHistory opens (and if needed creates) the history database at
// path. Use ":memory:" for a throwaway database.
func OpenSQLiteHistory(ctx context.Context, path string, id pkguid.NumberID) (*SQLiteHistory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}

	return &SQLiteHistory{db: db, id: id, now: time.Now}, nil
}

// Append stores sub with a fresh id and creation time and returns the stored row.
func (h *SQLiteHistory) Append(ctx context.Context, sub entity.Submission) (entity.Submission, error) {
	sub.ID = h.id.Generate()
	sub.CreatedAt = h.now().UTC().Truncate(time.Millisecond)

	_, err := h.db.ExecContext(ctx, `
INSERT INTO submissions
	(id, report_id, owner, date_ms, uploads, views, survive_count, survive_rate, order_amount, record_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.ReportID, sub.Owner, sub.DateMillis, sub.Uploads, sub.Views,
		sub.SurviveCount, sub.SurviveRate, sub.OrderAmount, sub.RecordID, sub.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return entity.Submission{}, fmt.Errorf("history: insert: %w", err)
	}

	return sub, nil
}

// List returns up to limit submissions, newest first. An empty owner lists
// every owner.
func (h *SQLiteHistory) List(ctx context.Context, owner string, limit int) ([]entity.Submission, error) {
	query := `
SELECT id, report_id, owner, date_ms, uploads, views, survive_count, survive_rate, order_amount, record_id, created_at
FROM submissions`
	args := []any{}
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	out := make([]entity.Submission, 0, limit)
	for rows.Next() {
		var (
			sub       entity.Submission
			createdMs int64
		)
		if err := rows.Scan(
			&sub.ID, &sub.ReportID, &sub.Owner, &sub.DateMillis, &sub.Uploads, &sub.Views,
			&sub.SurviveCount, &sub.SurviveRate, &sub.OrderAmount, &sub.RecordID, &createdMs,
		); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		sub.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, sub)
	}

	return out, rows.Err()
}

// Close implements io.Closer.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
