// Package store handles SQLite persistence of finalized attempts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/timer"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for the attempt archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			category TEXT NOT NULL,
			attempt_index INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			finished INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_splits (
			attempt_id TEXT NOT NULL,
			segment_index INTEGER NOT NULL,
			segment_name TEXT NOT NULL,
			split_ms INTEGER,
			segment_ms INTEGER,
			PRIMARY KEY (attempt_id, segment_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(game, category, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt archives a finalized attempt of run. Inserting the same
// attempt twice is a no-op. It reports whether a row was added.
func (s *Store) InsertAttempt(ctx context.Context, run *model.Run, attempt model.Attempt) (inserted bool, err error) {
	if attempt.ID == "" {
		return false, fmt.Errorf("attempt %d has no id", attempt.Index)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	ended := attempt.StartedAt
	if attempt.EndedAt != nil {
		ended = *attempt.EndedAt
	}
	var durationMs int64
	if attempt.Duration != nil {
		durationMs = attempt.Duration.Milliseconds()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO attempts (id, game, category, attempt_index, started_at, ended_at, finished, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		run.Game,
		run.Category,
		attempt.Index,
		attempt.StartedAt.Format(time.RFC3339Nano),
		ended.Format(time.RFC3339Nano),
		attempt.Finished(),
		durationMs,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		err = tx.Commit()
		return false, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attempt_splits (attempt_id, segment_index, segment_name, split_ms, segment_ms)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, seg := range run.Segments {
		var split, segment sql.NullInt64
		if i < len(attempt.Splits) && attempt.Splits[i] != nil {
			split = sql.NullInt64{Int64: attempt.Splits[i].Milliseconds(), Valid: true}
			if d, ok := timer.SegmentTime(attempt.Splits, i); ok {
				segment = sql.NullInt64{Int64: d.Milliseconds(), Valid: true}
			}
		}
		if _, err = stmt.ExecContext(ctx, attempt.ID, i, seg.Name, split, segment); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func runFilter(cfg model.StatsConfig) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Game != "" {
		clauses = append(clauses, "game = ?")
		args = append(args, cfg.Game)
	}
	if cfg.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, cfg.Category)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	return strings.Join(clauses, " AND "), args
}

// ListAttempts returns archived attempts filtered by stats config, oldest first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	where, args := runFilter(cfg)
	query := fmt.Sprintf(`SELECT id, game, category, started_at, ended_at, finished, duration_ms
		FROM attempts
		WHERE %s
		ORDER BY ended_at ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.AttemptAggregate
	for rows.Next() {
		var agg model.AttemptAggregate
		var startedAt, endedAt string
		if err := rows.Scan(&agg.ID, &agg.Game, &agg.Category, &startedAt, &endedAt, &agg.Finished, &agg.DurationMs); err != nil {
			return nil, err
		}
		if agg.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if agg.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// ListSegmentAggregates aggregates recorded segment times for the given attempts.
func (s *Store) ListSegmentAggregates(ctx context.Context, attemptIDs []string) ([]model.SegmentAggregate, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(attemptIDs))
	args := make([]any, len(attemptIDs))
	for i, id := range attemptIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT sp.segment_index, sp.segment_name, COUNT(sp.segment_ms), MIN(sp.segment_ms), SUM(sp.segment_ms),
			(SELECT s2.segment_ms FROM attempt_splits s2 JOIN attempts a2 ON a2.id = s2.attempt_id
			 WHERE s2.segment_index = sp.segment_index AND s2.segment_ms IS NOT NULL AND s2.attempt_id IN (%[1]s)
			 ORDER BY a2.ended_at DESC LIMIT 1)
		FROM attempt_splits sp
		WHERE sp.attempt_id IN (%[1]s) AND sp.segment_ms IS NOT NULL
		GROUP BY sp.segment_index
		ORDER BY sp.segment_index ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, append(append([]any{}, args...), args...)...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SegmentAggregate
	for rows.Next() {
		var agg model.SegmentAggregate
		var latest sql.NullInt64
		if err := rows.Scan(&agg.Index, &agg.Name, &agg.Count, &agg.BestMs, &agg.SumMs, &latest); err != nil {
			return nil, err
		}
		agg.LatestMs = latest.Int64
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRuns returns the distinct game/category pairs in the archive.
func (s *Store) ListRuns(ctx context.Context) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT game, category FROM attempts ORDER BY game, category`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var out [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}
