// Package audit persists the outcome of each reaction pipeline run to SQLite.
// Only outcomes are stored; summary and article text never are.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"newsbot/internal/domain"
)

const defaultRecentLimit = 20

var runColumns = []string{
	"id", "platform", "workspace", "channel", "message_id",
	"status", "code", "urls", "summaries", "started_at", "finished_at",
}

// Journal implements domain.RunJournal on SQLite.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the journal database at path and applies
// pending migrations.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Ping checks that the database is reachable.
func (j *Journal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }

// Record inserts one run outcome.
func (j *Journal) Record(ctx context.Context, rec domain.RunRecord) error {
	query, args, err := sq.Insert("runs").
		Columns(runColumns[1:]...).
		Values(
			string(rec.Key.Platform), rec.Key.Workspace, rec.Channel, rec.Key.MessageID,
			rec.Status, rec.Code, rec.URLs, rec.Summaries,
			rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query, args, err := sq.Select(runColumns...).
		From("runs").
		OrderBy("finished_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var (
			rec               domain.RunRecord
			platform          string
			started, finished int64
		)
		if err := rows.Scan(
			&rec.ID, &platform, &rec.Key.Workspace, &rec.Channel, &rec.Key.MessageID,
			&rec.Status, &rec.Code, &rec.URLs, &rec.Summaries, &started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Key.Platform = domain.PlatformName(platform)
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByStatus aggregates runs finished at or after since.
func (j *Journal) CountByStatus(ctx context.Context, since time.Time) (map[string]int, error) {
	query, args, err := sq.Select("status", "COUNT(*)").
		From("runs").
		Where(sq.GtOrEq{"finished_at": since.UnixMilli()}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan run count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
