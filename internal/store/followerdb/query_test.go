package followerdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influencekit/internal/model"
)

func recipientIDs(rs []model.Recipient) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

func seedQueryDB(t *testing.T) *DB {
	t.Helper()
	db := openTestDB(t)
	_, err := db.WriteFollowers(context.Background(), "T", []model.User{
		user("1", "newest", "Bitcoin fan", 10),
		user("2", "mid", "golang", 500),
		user("3", "old", "#bitcoin only", 50),
		user("4", "oldest", "", 500),
	}, 0)
	require.NoError(t, err)
	_, err = db.WriteFollowers(context.Background(), "OTHER", []model.User{user("9", "else", "bitcoin", 1)}, 0)
	require.NoError(t, err)
	return db
}

func TestQuerySortModes(t *testing.T) {
	db := seedQueryDB(t)
	ctx := context.Background()

	got, err := db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortInfluence})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "3", "1"}, recipientIDs(got))

	got, err = db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortRecent})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, recipientIDs(got))
	assert.Equal(t, 0, got[0].AgeRank)
	assert.Equal(t, "newest", got[0].ScreenName)
}

func TestQueryTagsCaseInsensitive(t *testing.T) {
	db := seedQueryDB(t)
	ctx := context.Background()

	got, err := db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Tags: []string{"bitcoin", ""}, Sort: model.SortRecent})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, recipientIDs(got))

	got, err = db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Tags: []string{"#BITCOIN", "GoLang"}, Sort: model.SortRecent})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, recipientIDs(got))

	got, err = db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Tags: []string{"rust"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQueryLimitOffset(t *testing.T) {
	db := seedQueryDB(t)
	ctx := context.Background()

	got, err := db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortRecent, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, recipientIDs(got))

	got, err = db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortRecent, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, recipientIDs(got))
}

func TestQueryExcludesContacted(t *testing.T) {
	db := seedQueryDB(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.AppendSendEvent(ctx, model.HistoryLive, model.SendEvent{CampaignID: "c", RecipientID: "2", Time: at}))
	require.NoError(t, db.AppendSendEvent(ctx, model.HistoryDryRun, model.SendEvent{CampaignID: "c", RecipientID: "1", Time: at}))
	require.NoError(t, db.AppendSendEvent(ctx, model.HistoryLive, model.SendEvent{CampaignID: "other", RecipientID: "3", Time: at}))

	live, err := db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortRecent})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "4"}, recipientIDs(live))

	dry, err := db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortRecent, UseDryRunHistory: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4"}, recipientIDs(dry))

	all, err := db.Query(ctx, model.FollowerQuery{TargetID: "T", CampaignID: "c", Sort: model.SortRecent, IncludeContacted: true})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Nil(t, all[0].ContactedAt)
	require.NotNil(t, all[1].ContactedAt)
	assert.True(t, at.Equal(*all[1].ContactedAt))
}
