package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"influencekit/internal/crawler"
)

// CacheBuilder is the part of the crawler EnsureFollowerCache drives.
type CacheBuilder interface {
	Status(ctx context.Context) (crawler.Status, error)
	Run(ctx context.Context) error
}

// EnsureFollowerCache crawls when the cache was never built or was left
// unfinished. A complete cache is used as is.
func EnsureFollowerCache(ctx context.Context, b CacheBuilder, logger zerolog.Logger) error {
	st, err := b.Status(ctx)
	if err != nil {
		return err
	}
	switch st.State {
	case crawler.StateNone:
		logger.Info().Msg("follower_cache_missing_building")
	case crawler.StateIncomplete:
		logger.Info().Int("pct", st.CompletionPercent).Int("stored", st.StoredFollowers).Msg("follower_cache_incomplete_resuming")
	default:
		logger.Info().Str("state", string(st.State)).Int("stored", st.StoredFollowers).Msg("follower_cache_ready")
		return nil
	}
	return b.Run(ctx)
}
