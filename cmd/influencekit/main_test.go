package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsFlagsAnywhere(t *testing.T) {
	fset := flag.NewFlagSet("stats", flag.ContinueOnError)
	dry := fset.Bool("dry-run", false, "")
	cfg := fset.String("config", defaultConfigPath, "")

	pos, err := parseArgs(fset, []string{"camp-1", "--dry-run", "--config", "x.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"camp-1"}, pos)
	assert.True(t, *dry)
	assert.Equal(t, "x.yaml", *cfg)
}

func TestReadCampaignInlineAndFile(t *testing.T) {
	c, err := readCampaign(`{"campaign_id":"c1","message":"hi ${followerTwitterHandle}"}`)
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	path := filepath.Join(t.TempDir(), "campaign.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"campaign_id":"c2","message":"hello","count":3}`), 0o600))
	c, err = readCampaign(path)
	require.NoError(t, err)
	assert.Equal(t, "c2", c.ID)
	require.NotNil(t, c.Count)
	assert.Equal(t, 3, *c.Count)

	_, err = readCampaign(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
