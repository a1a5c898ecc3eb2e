package followerdb

import (
	"context"
	"fmt"
	"time"

	"influencekit/internal/model"
)

// AppendSendEvent appends ev to the selected history log. Rows are never
// updated or deleted.
func (d *DB) AppendSendEvent(ctx context.Context, log model.HistoryLog, ev model.SendEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s(campaign_id, id, date) VALUES(?,?,?)`, historyTable(log))
	if _, err := d.sql.ExecContext(ctx, q, ev.CampaignID, ev.RecipientID, toMillis(ev.Time)); err != nil {
		return fmt.Errorf("append send event: %w", err)
	}
	return nil
}

// RecentSendEvents returns the newest n events for a campaign, oldest first.
func (d *DB) RecentSendEvents(ctx context.Context, log model.HistoryLog, campaignID string, n int) ([]model.SendEvent, error) {
	q := fmt.Sprintf(`SELECT campaign_id, id, date FROM %s WHERE campaign_id=? ORDER BY date DESC, rowid DESC LIMIT ?`, historyTable(log))
	evs, err := d.scanEvents(ctx, q, campaignID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
		evs[i], evs[j] = evs[j], evs[i]
	}
	return evs, nil
}

// SendEventsSince returns a campaign's events at or after since, oldest first.
func (d *DB) SendEventsSince(ctx context.Context, log model.HistoryLog, campaignID string, since time.Time) ([]model.SendEvent, error) {
	q := fmt.Sprintf(`SELECT campaign_id, id, date FROM %s WHERE campaign_id=? AND date>=? ORDER BY date, rowid`, historyTable(log))
	return d.scanEvents(ctx, q, campaignID, toMillis(since))
}

func (d *DB) scanEvents(ctx context.Context, q string, args ...any) ([]model.SendEvent, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query send history: %w", err)
	}
	defer rows.Close()
	var out []model.SendEvent
	for rows.Next() {
		var (
			ev model.SendEvent
			ms int64
		)
		if err := rows.Scan(&ev.CampaignID, &ev.RecipientID, &ms); err != nil {
			return nil, fmt.Errorf("scan send event: %w", err)
		}
		ev.Time = fromMillis(ms)
		out = append(out, ev)
	}
	return out, rows.Err()
}
