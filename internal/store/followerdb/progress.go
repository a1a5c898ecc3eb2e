package followerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"influencekit/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetProgress returns the crawl task for targetID, or nil if none was ever started.
func (d *DB) GetProgress(ctx context.Context, targetID string) (*model.CrawlProgress, error) {
	var (
		p             model.CrawlProgress
		start, finish int64
	)
	err := d.sql.QueryRowContext(ctx,
		`SELECT cursor, completion_percent, start_time, finish_time FROM FollowerTasks WHERE id=?`, targetID).
		Scan(&p.Cursor, &p.CompletionPercent, &start, &finish)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p.StartTime = optionalTime(start)
	p.FinishTime = optionalTime(finish)
	return &p, nil
}

// SaveProgress replaces the crawl task row for targetID.
func (d *DB) SaveProgress(ctx context.Context, targetID string, p model.CrawlProgress) error {
	return saveProgress(ctx, d.sql, targetID, p)
}

func saveProgress(ctx context.Context, ex execer, targetID string, p model.CrawlProgress) error {
	pct := p.CompletionPercent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO FollowerTasks(id, cursor, completion_percent, start_time, finish_time)
		VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			cursor=excluded.cursor,
			completion_percent=excluded.completion_percent,
			start_time=excluded.start_time,
			finish_time=excluded.finish_time`,
		targetID, p.Cursor, pct, optionalMillis(p.StartTime), optionalMillis(p.FinishTime))
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
