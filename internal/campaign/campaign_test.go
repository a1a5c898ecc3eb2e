package campaign

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influencekit/internal/model"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte(`{"message":"Buy Bitcoin!"}`))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("Buy Bitcoin!"))
	assert.Equal(t, hex.EncodeToString(sum[:]), c.ID)
	assert.Equal(t, model.SortInfluence, c.Sort)
	assert.Equal(t, model.SchedulingBurst, c.Scheduling)
	assert.False(t, c.DryRun)
	assert.Nil(t, c.Count)
	assert.False(t, c.Limited())
	assert.Empty(t, c.Tags)
}

func TestParseFullDocument(t *testing.T) {
	c, err := Parse([]byte(`{
		"message": "hi ${followerTwitterHandle}",
		"campaign_id": 42,
		"count": 10,
		"dryRun": true,
		"sort": "recent",
		"scheduling": "spread",
		"filter": {"tags": ["bitcoin", 21, 1.5]}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "42", c.ID)
	require.NotNil(t, c.Count)
	assert.Equal(t, 10, *c.Count)
	assert.True(t, c.DryRun)
	assert.Equal(t, model.SortRecent, c.Sort)
	assert.Equal(t, model.SchedulingSpread, c.Scheduling)
	assert.Equal(t, []string{"bitcoin", "21", "1.5"}, c.Tags)
}

func TestParseNullMeansAbsent(t *testing.T) {
	c, err := Parse([]byte(`{"message":"m","campaign_id":null,"count":null,"sort":null,"filter":null}`))
	require.NoError(t, err)
	assert.Nil(t, c.Count)
	assert.Equal(t, model.SortInfluence, c.Sort)
	assert.Len(t, c.ID, 64)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"not json", `{`, "document"},
		{"not an object", `null`, "document"},
		{"array", `[1]`, "document"},
		{"missing message", `{}`, "message"},
		{"empty message", `{"message":""}`, "message"},
		{"numeric message", `{"message":5}`, "message"},
		{"unknown template variable", `{"message":"hi ${name}"}`, "message"},
		{"bool campaign id", `{"message":"m","campaign_id":true}`, "campaign_id"},
		{"zero count", `{"message":"m","count":0}`, "count"},
		{"negative count", `{"message":"m","count":-3}`, "count"},
		{"fractional count", `{"message":"m","count":2.5}`, "count"},
		{"string count", `{"message":"m","count":"10"}`, "count"},
		{"string dry run", `{"message":"m","dryRun":"yes"}`, "dryRun"},
		{"unknown sort", `{"message":"m","sort":"random"}`, "sort"},
		{"unknown scheduling", `{"message":"m","scheduling":"often"}`, "scheduling"},
		{"filter not object", `{"message":"m","filter":"bitcoin"}`, "filter"},
		{"tags not array", `{"message":"m","filter":{"tags":"bitcoin"}}`, "filter.tags"},
		{"tag wrong type", `{"message":"m","filter":{"tags":[true]}}`, "filter.tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.doc))
			assert.Nil(t, c)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
