package followerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"influencekit/internal/model"
	"influencekit/internal/util"
)

// WriteFollowers stores one crawl batch in a single transaction: it upserts
// each user, regenerates their tags if the bio changed, and inserts a follow
// edge into targetID. Edge ranks are assigned from startRank upward and only
// consumed by edges that did not already exist, so replaying a committed
// batch is a no-op for ranks. It returns the number of new edges.
func (d *DB) WriteFollowers(ctx context.Context, targetID string, users []model.User, startRank int) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rank := startRank
	for _, u := range users {
		if err := upsertUser(ctx, tx, u); err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO Followers(id, id_followee, age) VALUES(?,?,?)`,
			u.ID, targetID, rank)
		if err != nil {
			return 0, fmt.Errorf("insert follow edge: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert follow edge: %w", err)
		}
		if n > 0 {
			rank++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit followers: %w", err)
	}
	return rank - startRank, nil
}

// upsertUser writes u and keeps its tag set consistent with its bio.
func upsertUser(ctx context.Context, tx *sql.Tx, u model.User) error {
	var cached string
	err := tx.QueryRowContext(ctx, `SELECT description FROM Users WHERE id=?`, u.ID).Scan(&cached)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := insertTags(ctx, tx, u.ID, u.Description); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("read cached bio: %w", err)
	case cached != u.Description:
		if _, err := tx.ExecContext(ctx, `DELETE FROM Tags WHERE id=?`, u.ID); err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		if err := insertTags(ctx, tx, u.ID, u.Description); err != nil {
			return err
		}
	}

	image := u.ProfileImageURL
	if u.DefaultImage {
		image = ""
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO Users(id, screen_name, name, verified, statuses_count, friends_count, followers_count, description, profile_image_url)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			screen_name=excluded.screen_name,
			name=excluded.name,
			verified=excluded.verified,
			statuses_count=excluded.statuses_count,
			friends_count=excluded.friends_count,
			followers_count=excluded.followers_count,
			description=excluded.description,
			profile_image_url=excluded.profile_image_url`,
		u.ID, u.ScreenName, u.Name, u.Verified, u.StatusesCount, u.FriendsCount, u.FollowersCount, u.Description, image)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func insertTags(ctx context.Context, tx *sql.Tx, id, bio string) error {
	for _, tag := range util.BioTags(bio) {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO Tags(tag, id) VALUES(?,?)`, tag, id); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

// BeginWriting discards every follow edge into targetID and records a fresh
// crawl task, atomically.
func (d *DB) BeginWriting(ctx context.Context, targetID string) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM Followers WHERE id_followee=?`, targetID); err != nil {
		return fmt.Errorf("delete follow edges: %w", err)
	}
	start := d.now().UTC()
	if err := saveProgress(ctx, tx, targetID, model.CrawlProgress{StartTime: &start}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit begin writing: %w", err)
	}
	return nil
}

// CountFollowers returns how many follow edges into targetID are stored.
func (d *DB) CountFollowers(ctx context.Context, targetID string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM Followers WHERE id_followee=?`, targetID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return n, nil
}

// FollowEdges returns every edge into targetID ordered by age rank.
func (d *DB) FollowEdges(ctx context.Context, targetID string) ([]model.FollowEdge, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, id_followee, age FROM Followers WHERE id_followee=? ORDER BY age, id`, targetID)
	if err != nil {
		return nil, fmt.Errorf("query follow edges: %w", err)
	}
	defer rows.Close()
	var out []model.FollowEdge
	for rows.Next() {
		var e model.FollowEdge
		if err := rows.Scan(&e.FollowerID, &e.TargetID, &e.AgeRank); err != nil {
			return nil, fmt.Errorf("scan follow edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetUser returns the cached profile for id. ok is false when it is not cached.
func (d *DB) GetUser(ctx context.Context, id string) (u model.User, ok bool, err error) {
	err = d.sql.QueryRowContext(ctx, `
		SELECT id, screen_name, name, verified, statuses_count, friends_count, followers_count, description, profile_image_url
		FROM Users WHERE id=?`, id).
		Scan(&u.ID, &u.ScreenName, &u.Name, &u.Verified, &u.StatusesCount, &u.FriendsCount, &u.FollowersCount, &u.Description, &u.ProfileImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

// Tags returns the tag set derived from a follower's cached bio, sorted.
func (d *DB) Tags(ctx context.Context, id string) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT tag FROM Tags WHERE id=? ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}
