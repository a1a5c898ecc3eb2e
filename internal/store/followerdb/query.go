package followerdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"influencekit/internal/model"
	"influencekit/internal/util"
)

// Query returns the followers of q.TargetID eligible for q.CampaignID:
// not yet contacted in the selected history log (unless IncludeContacted),
// and carrying at least one of q.Tags when tags are given. An empty result
// is not an error.
func (d *DB) Query(ctx context.Context, q model.FollowerQuery) ([]model.Recipient, error) {
	history := historyTable(model.LogFor(q.UseDryRunHistory))

	var b strings.Builder
	args := []any{q.CampaignID, q.TargetID}
	fmt.Fprintf(&b, `
		SELECT f.id, u.screen_name, u.name, u.description, f.age, u.followers_count, u.profile_image_url,
			(SELECT MIN(h.date) FROM %s h WHERE h.campaign_id=? AND h.id=f.id) AS contact_date
		FROM Followers f
		JOIN Users u ON u.id = f.id
		WHERE f.id_followee=?`, history)

	if !q.IncludeContacted {
		fmt.Fprintf(&b, ` AND NOT EXISTS (SELECT 1 FROM %s h2 WHERE h2.campaign_id=? AND h2.id=f.id)`, history)
		args = append(args, q.CampaignID)
	}

	if tags := util.DropEmpty(q.Tags); len(tags) > 0 {
		b.WriteString(` AND EXISTS (SELECT 1 FROM Tags t WHERE t.id=f.id AND t.tag IN (?` + strings.Repeat(`,?`, len(tags)-1) + `))`)
		for _, t := range tags {
			args = append(args, t)
		}
	}

	switch q.Sort {
	case model.SortRecent:
		b.WriteString(` ORDER BY f.age ASC`)
	default:
		b.WriteString(` ORDER BY u.followers_count DESC, f.age ASC`)
	}

	switch {
	case q.Limit > 0:
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		b.WriteString(` LIMIT -1 OFFSET ?`)
		args = append(args, q.Offset)
	}

	rows, err := d.sql.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	defer rows.Close()

	out := []model.Recipient{}
	for rows.Next() {
		var (
			r       model.Recipient
			contact sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.ScreenName, &r.Name, &r.Description, &r.AgeRank, &r.FollowersCount, &r.ProfileImageURL, &contact); err != nil {
			return nil, fmt.Errorf("scan follower: %w", err)
		}
		if contact.Valid {
			t := fromMillis(contact.Int64)
			r.ContactedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followers: %w", err)
	}
	return out, nil
}
