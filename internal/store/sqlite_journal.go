package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	context_id    TEXT    NOT NULL,
	doc_ref       TEXT    NOT NULL,
	hit           INTEGER NOT NULL,
	payload_type  TEXT    NOT NULL,
	payload_bytes INTEGER NOT NULL,
	tokens_before INTEGER NOT NULL,
	tokens_after  INTEGER NOT NULL,
	requests      INTEGER NOT NULL,
	hits          INTEGER NOT NULL,
	total_before  INTEGER NOT NULL,
	total_after   INTEGER NOT NULL,
	hit_rate      REAL    NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_context ON outcomes (context_id, id);
`

type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a journal database at path.
func OpenSQLite(path string) (*SQLiteJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite journal path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	// One writer; sqlite serializes writes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite journal: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `INSERT INTO outcomes
		(context_id, doc_ref, hit, payload_type, payload_bytes, tokens_before, tokens_after,
		 requests, hits, total_before, total_after, hit_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ContextID, rec.DocRef, rec.Hit, rec.PayloadType, rec.PayloadBytes,
		rec.TokensBefore, rec.TokensAfter, rec.Requests, rec.Hits,
		rec.TotalBefore, rec.TotalAfter, rec.HitRate, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) List(ctx context.Context, contextID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, `SELECT
		id, context_id, doc_ref, hit, payload_type, payload_bytes, tokens_before, tokens_after,
		requests, hits, total_before, total_after, hit_rate, created_at
		FROM outcomes WHERE context_id = ? ORDER BY id DESC LIMIT ?`, contextID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.ContextID, &rec.DocRef, &rec.Hit, &rec.PayloadType,
			&rec.PayloadBytes, &rec.TokensBefore, &rec.TokensAfter, &rec.Requests, &rec.Hits,
			&rec.TotalBefore, &rec.TotalAfter, &rec.HitRate, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

func (j *SQLiteJournal) Delete(ctx context.Context, contextID string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM outcomes WHERE context_id = ?`, contextID); err != nil {
		return fmt.Errorf("delete outcomes: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
