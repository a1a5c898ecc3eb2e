package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Minute, cfg.Crawl.RetryPause())
	assert.Equal(t, time.Minute, cfg.Campaign.RetryPause())
	assert.Equal(t, 500*time.Millisecond, cfg.API.BaseBackoff())
	assert.Error(t, cfg.RequireCredentials())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "influencekit.yaml")
	cfg := Default()
	cfg.Account.ScreenName = "treylorswift"
	cfg.Campaign.SandboxDelayMillis = 250
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, 250*time.Millisecond, got.Campaign.SandboxDelay())
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influencekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  dbPath: /tmp/x.db\n"), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", got.Storage.DBPath)
	assert.Equal(t, 100, got.Crawl.LookupBatch)
	assert.Equal(t, 1000, got.Campaign.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv("ITK_CONSUMER_KEY", "ck")
	t.Setenv("ITK_CONSUMER_SECRET", "cs")
	t.Setenv("ITK_ACCESS_TOKEN", "at")
	t.Setenv("ITK_ACCESS_SECRET", "as")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg := Default()
	cfg.Credentials.ConsumerKey = "from-file"
	require.NoError(t, cfg.ResolveEnv())
	assert.Equal(t, "ck", cfg.Credentials.ConsumerKey)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cfg := Default()
	cfg.Crawl.LookupBatch = 500
	cfg.Campaign.BatchSize = 0
	cfg.Storage.DBPath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.lookupBatch")
	assert.Contains(t, err.Error(), "campaign.batchSize")
	assert.Contains(t, err.Error(), "storage.dbPath")
}
