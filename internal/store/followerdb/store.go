// Package followerdb is the SQLite follower cache: followers, bio tags,
// follow edges, crawl progress and the two send-history logs.
package followerdb

import (
	"database/sql"
	"fmt"
	"time"

	"influencekit/internal/model"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding the follower cache.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: the process has a single thread of control, and
	// ":memory:" databases are per-connection.
	d.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := d.Exec(pragma); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}
	db := &DB{sql: d, now: time.Now}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS Users (
	  id TEXT NOT NULL PRIMARY KEY,
	  screen_name TEXT NOT NULL,
	  name TEXT NOT NULL,
	  verified INTEGER NOT NULL DEFAULT 0,
	  statuses_count INTEGER NOT NULL DEFAULT 0,
	  friends_count INTEGER NOT NULL DEFAULT 0,
	  followers_count INTEGER NOT NULL DEFAULT 0,
	  description TEXT NOT NULL DEFAULT '',
	  profile_image_url TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_users_followers_count ON Users(followers_count);

	CREATE TABLE IF NOT EXISTS Tags (
	  tag TEXT NOT NULL COLLATE NOCASE,
	  id TEXT NOT NULL,
	  UNIQUE(tag, id) ON CONFLICT IGNORE
	);
	CREATE INDEX IF NOT EXISTS idx_tags_tag ON Tags(tag);
	CREATE INDEX IF NOT EXISTS idx_tags_id ON Tags(id);

	CREATE TABLE IF NOT EXISTS Followers (
	  id TEXT NOT NULL,
	  id_followee TEXT NOT NULL,
	  age INTEGER NOT NULL,
	  UNIQUE(id, id_followee)
	);
	CREATE INDEX IF NOT EXISTS idx_followers_id ON Followers(id);
	CREATE INDEX IF NOT EXISTS idx_followers_followee ON Followers(id_followee);

	CREATE TABLE IF NOT EXISTS FollowerTasks (
	  id TEXT NOT NULL PRIMARY KEY,
	  cursor TEXT NOT NULL DEFAULT '',
	  completion_percent INTEGER NOT NULL DEFAULT 0,
	  start_time INTEGER NOT NULL DEFAULT -1,
	  finish_time INTEGER NOT NULL DEFAULT -1
	);

	CREATE TABLE IF NOT EXISTS SendHistory (
	  campaign_id TEXT NOT NULL,
	  id TEXT NOT NULL,
	  date INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_send_history_campaign ON SendHistory(campaign_id);
	CREATE INDEX IF NOT EXISTS idx_send_history_id ON SendHistory(id);

	CREATE TABLE IF NOT EXISTS DryRunSendHistory (
	  campaign_id TEXT NOT NULL,
	  id TEXT NOT NULL,
	  date INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dry_run_send_history_campaign ON DryRunSendHistory(campaign_id);
	CREATE INDEX IF NOT EXISTS idx_dry_run_send_history_id ON DryRunSendHistory(id);
	`)
	return err
}

// historyTable maps a log to its table. Table names are never user input.
func historyTable(l model.HistoryLog) string {
	if l == model.HistoryDryRun {
		return "DryRunSendHistory"
	}
	return "SendHistory"
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// optionalMillis stores an absent time as -1.
func optionalMillis(t *time.Time) int64 {
	if t == nil {
		return -1
	}
	return t.UnixMilli()
}

func optionalTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := fromMillis(ms)
	return &t
}
