// Package crawler builds the local follower cache for one target account.
// A crawl pages through follower ids, looks up profiles in batches and
// stores each batch with its resume point, so an interrupted crawl picks up
// exactly where the last committed batch left off.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"influencekit/internal/metrics"
	"influencekit/internal/model"
	"influencekit/internal/schedule"
	"influencekit/internal/xclient"
)

// ErrNotInitialized is returned by Run and Status before Initialize succeeds.
var ErrNotInitialized = errors.New("crawler not initialized")

// Source fetches follower data from the platform.
type Source interface {
	LookupUser(ctx context.Context, screenName string) (model.User, error)
	FollowerIDs(ctx context.Context, userID, cursor string) (model.IDPage, error)
	LookupUsers(ctx context.Context, ids []string) ([]model.User, error)
}

// Store persists the crawl.
type Store interface {
	GetProgress(ctx context.Context, targetID string) (*model.CrawlProgress, error)
	SaveProgress(ctx context.Context, targetID string, p model.CrawlProgress) error
	BeginWriting(ctx context.Context, targetID string) error
	WriteFollowers(ctx context.Context, targetID string, users []model.User, startRank int) (int, error)
	CountFollowers(ctx context.Context, targetID string) (int, error)
}

type Options struct {
	// RetryPause is the fixed wait before retrying a failed fetch.
	RetryPause time.Duration
	// LookupBatch is how many ids go into one profile lookup.
	LookupBatch int
	Clock       schedule.Clock
	// ForceRebuild discards an unfinished crawl instead of resuming it.
	ForceRebuild bool
}

// Target is the account whose followers are crawled.
type Target struct {
	ID                string
	ScreenName        string
	ExpectedFollowers int
}

type Crawler struct {
	src     Source
	store   Store
	logger  zerolog.Logger
	opts    Options
	target  Target
	running atomic.Bool
}

func New(src Source, store Store, logger zerolog.Logger, opts Options) *Crawler {
	if opts.RetryPause <= 0 {
		opts.RetryPause = time.Minute
	}
	if opts.LookupBatch <= 0 || opts.LookupBatch > xclient.MaxLookupIDs {
		opts.LookupBatch = xclient.MaxLookupIDs
	}
	if opts.Clock == nil {
		opts.Clock = schedule.System()
	}
	return &Crawler{
		src:    src,
		store:  store,
		logger: logger.With().Str("component", "crawler").Logger(),
		opts:   opts,
	}
}

// Initialize resolves the target account by screen name.
func (c *Crawler) Initialize(ctx context.Context, screenName string) (Target, error) {
	u, err := c.src.LookupUser(ctx, screenName)
	if err != nil {
		return Target{}, fmt.Errorf("lookup %s: %w", screenName, err)
	}
	c.target = Target{ID: u.ID, ScreenName: u.ScreenName, ExpectedFollowers: u.FollowersCount}
	c.logger = c.logger.With().Str("target", u.ScreenName).Logger()
	c.logger.Info().Str("target_id", u.ID).Int("expected_followers", u.FollowersCount).Msg("crawl_target")
	return c.target, nil
}

// Target returns the initialized target.
func (c *Crawler) Target() Target { return c.target }

// Run crawls until the terminal page. It resumes an unfinished crawl unless
// ForceRebuild is set; otherwise it discards the target's edges and starts
// over. Fetch errors are retried after RetryPause without limit. Storage
// errors and context cancellation end the run; the saved progress stays
// resumable.
func (c *Crawler) Run(ctx context.Context) error {
	if c.target.ID == "" {
		return ErrNotInitialized
	}
	c.running.Store(true)
	defer c.running.Store(false)

	p, err := c.store.GetProgress(ctx, c.target.ID)
	if err != nil {
		return err
	}

	var stored int
	if p != nil && !p.Finished() && !c.opts.ForceRebuild {
		stored, err = c.store.CountFollowers(ctx, c.target.ID)
		if err != nil {
			return err
		}
		c.logger.Info().Str("cursor", p.Cursor).Int("stored", stored).Int("pct", p.CompletionPercent).Msg("crawl_resume")
	} else {
		if err := c.store.BeginWriting(ctx, c.target.ID); err != nil {
			return err
		}
		if p, err = c.store.GetProgress(ctx, c.target.ID); err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("crawl task for %s missing after reset", c.target.ID)
		}
		c.logger.Info().Msg("crawl_rebuild")
	}

	progress := *p
	cursor := progress.Cursor
	for {
		var page model.IDPage
		err := c.retry(ctx, "follower_ids", func() error {
			var err error
			page, err = c.src.FollowerIDs(ctx, c.target.ID, cursor)
			return err
		})
		if err != nil {
			return err
		}
		metrics.CrawlPages.Inc()

		for i := 0; i < len(page.IDs); i += c.opts.LookupBatch {
			end := min(i+c.opts.LookupBatch, len(page.IDs))
			var users []model.User
			err := c.retry(ctx, "lookup_users", func() error {
				var err error
				users, err = c.src.LookupUsers(ctx, page.IDs[i:end])
				return err
			})
			if err != nil {
				return err
			}
			n, err := c.store.WriteFollowers(ctx, c.target.ID, users, stored)
			if err != nil {
				return err
			}
			stored += n
			metrics.FollowersWritten.Add(float64(n))

			progress.Cursor = cursor
			progress.CompletionPercent = c.percent(stored)
			if err := c.store.SaveProgress(ctx, c.target.ID, progress); err != nil {
				return err
			}
		}

		if page.Terminal() {
			finish := c.opts.Clock.Now().UTC()
			progress.Cursor = page.NextCursor
			progress.CompletionPercent = 100
			progress.FinishTime = &finish
			if err := c.store.SaveProgress(ctx, c.target.ID, progress); err != nil {
				return err
			}
			c.logger.Info().Int("stored", stored).Msg("crawl_complete")
			return nil
		}

		cursor = page.NextCursor
		progress.Cursor = cursor
		progress.CompletionPercent = c.percent(stored)
		if err := c.store.SaveProgress(ctx, c.target.ID, progress); err != nil {
			return err
		}
		c.logger.Debug().Str("next_cursor", cursor).Int("stored", stored).Int("pct", progress.CompletionPercent).Msg("crawl_page")
	}
}

// percent stays below 100 until the terminal page: the expected count is a
// snapshot taken at Initialize and drifts.
func (c *Crawler) percent(stored int) int {
	if c.target.ExpectedFollowers <= 0 {
		return 0
	}
	return min(99, 100*stored/c.target.ExpectedFollowers)
}

// retry calls fn until it succeeds, pausing RetryPause after every failure.
func (c *Crawler) retry(ctx context.Context, op string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		kind := xclient.Classify(err)
		if kind == xclient.KindRateLimited {
			c.logger.Warn().Str("op", op).Dur("pause", c.opts.RetryPause).Msg("rate_limited")
		} else {
			c.logger.Error().Err(err).Str("op", op).Dur("pause", c.opts.RetryPause).Msg("fetch_error")
		}
		metrics.IncFetchRetry(kind.String())
		if err := c.opts.Clock.Sleep(ctx, c.opts.RetryPause); err != nil {
			return err
		}
	}
}
