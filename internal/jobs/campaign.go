package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"influencekit/internal/campaign"
	"influencekit/internal/engage"
	"influencekit/internal/metrics"
	"influencekit/internal/model"
	"influencekit/internal/schedule"
	"influencekit/internal/template"
	"influencekit/internal/xclient"
)

// CampaignStore is what a campaign run reads recipients from and records sends to.
type CampaignStore interface {
	engage.HistoryStore
	Query(ctx context.Context, q model.FollowerQuery) ([]model.Recipient, error)
}

// Sender delivers one direct message.
type Sender interface {
	SendDirectMessage(ctx context.Context, recipientID, text string) error
}

type CampaignOptions struct {
	// RetryPause is the wait before retrying a rate-limited send.
	RetryPause time.Duration
	// SandboxDelay simulates send latency in dry runs.
	SandboxDelay time.Duration
	// BatchSize caps one recipient query.
	BatchSize int
	Clock     schedule.Clock
}

// RunSummary describes a finished campaign run.
type RunSummary struct {
	RunID        string
	Sent         int
	Skipped      int
	ForcedDryRun bool
}

type CampaignRunner struct {
	store  CampaignStore
	sender Sender
	logger zerolog.Logger
	opts   CampaignOptions
}

func NewCampaignRunner(store CampaignStore, sender Sender, logger zerolog.Logger, opts CampaignOptions) *CampaignRunner {
	if opts.RetryPause <= 0 {
		opts.RetryPause = time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = engage.WindowSize
	}
	if opts.Clock == nil {
		opts.Clock = schedule.System()
	}
	return &CampaignRunner{
		store:  store,
		sender: sender,
		logger: logger.With().Str("component", "campaign").Logger(),
		opts:   opts,
	}
}

// Run messages the account's eligible followers until none are left or the
// campaign count is used up. Sends are paced by the campaign's scheduling
// and the rolling volume cap. A live campaign on an account without DM
// permission runs as a dry run. Only storage failures and cancellation
// end a run early; per-recipient failures are logged and skipped.
func (r *CampaignRunner) Run(ctx context.Context, account model.Account, c *campaign.Campaign) (RunSummary, error) {
	sum := RunSummary{RunID: uuid.NewString()}
	log := r.logger.With().Str("run_id", sum.RunID).Str("campaign_id", c.ID).Logger()

	if !c.DryRun && !account.Permission.CanSendDirectMessages() {
		c.DryRun = true
		sum.ForcedDryRun = true
		log.Warn().Str("permission", account.Permission.String()).Msg("dm_permission_missing_forcing_dry_run")
	}
	log.Info().Bool("dry_run", c.DryRun).Str("sort", string(c.Sort)).Str("scheduling", string(c.Scheduling)).
		Strs("tags", c.Tags).Msg("campaign_start")

	tracker, err := engage.NewTracker(ctx, r.store, c.ID, model.LogFor(c.DryRun), engage.Options{Clock: r.opts.Clock, Logger: log})
	if err != nil {
		return sum, err
	}

	// Recipients skipped in this run stay eligible, so later queries return
	// them again. They are not retried within the run.
	skipped := map[string]struct{}{}
	for {
		limit := r.opts.BatchSize
		if c.Count != nil && *c.Count < limit {
			limit = *c.Count
		}
		rows, err := r.store.Query(ctx, model.FollowerQuery{
			TargetID:         account.ID,
			CampaignID:       c.ID,
			Tags:             c.Tags,
			Sort:             c.Sort,
			Limit:            limit + len(skipped),
			UseDryRunHistory: c.DryRun,
		})
		if err != nil {
			log.Error().Err(err).Msg("recipient_query_failed")
			return sum, fmt.Errorf("query recipients: %w", err)
		}
		batch := make([]model.Recipient, 0, limit)
		for _, rcp := range rows {
			if _, ok := skipped[rcp.ID]; !ok && len(batch) < limit {
				batch = append(batch, rcp)
			}
		}
		if len(batch) == 0 {
			log.Info().Int("sent", sum.Sent).Int("skipped", sum.Skipped).Msg("campaign_done")
			return sum, nil
		}

		for _, rcp := range batch {
			if err := r.wait(ctx, log, tracker, c.Scheduling); err != nil {
				return sum, err
			}
			sent, err := r.attempt(ctx, log, tracker, c, rcp)
			if err != nil {
				return sum, err
			}
			if sent {
				sum.Sent++
			} else {
				sum.Skipped++
				skipped[rcp.ID] = struct{}{}
			}
		}

		if c.Count != nil {
			*c.Count -= len(batch)
			if *c.Count <= 0 {
				log.Info().Int("sent", sum.Sent).Int("skipped", sum.Skipped).Msg("campaign_count_reached")
				return sum, nil
			}
		}
	}
}

func (r *CampaignRunner) wait(ctx context.Context, log zerolog.Logger, tracker *engage.Tracker, s model.Scheduling) error {
	d := tracker.TimeUntilNextSend(s)
	if d.Wait <= 0 {
		return nil
	}
	next := r.opts.Clock.Now().Add(d.Wait)
	if d.Reason == engage.ReasonRateLimit {
		log.Warn().Time("next_send", next).Dur("wait", d.Wait).Msg("dm_rate_limit_reached")
	} else {
		log.Info().Time("next_send", next).Dur("wait", d.Wait).Msg("spread_wait")
	}
	metrics.ObserveSendWait(d.Reason.String(), d.Wait)
	return r.opts.Clock.Sleep(ctx, d.Wait)
}

// attempt sends to one recipient, retrying rate-limited sends after
// RetryPause. It reports whether the send was recorded.
func (r *CampaignRunner) attempt(ctx context.Context, log zerolog.Logger, tracker *engage.Tracker, c *campaign.Campaign, rcp model.Recipient) (bool, error) {
	log = log.With().Str("recipient", rcp.ScreenName).Str("recipient_id", rcp.ID).Logger()

	text, err := template.Expand(c.Message, template.Vars{FollowerHandle: rcp.ScreenName})
	if err != nil {
		log.Error().Err(err).Msg("template_expand_failed")
		return false, nil
	}

	for {
		if c.DryRun {
			if r.opts.SandboxDelay > 0 {
				if err := r.opts.Clock.Sleep(ctx, r.opts.SandboxDelay); err != nil {
					return false, err
				}
			}
			break
		}
		err := r.sender.SendDirectMessage(ctx, rcp.ID, text)
		if err == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		kind := xclient.Classify(err)
		metrics.IncSendFailure(kind.String())
		switch kind {
		case xclient.KindRateLimited:
			log.Warn().Dur("pause", r.opts.RetryPause).Msg("send_rate_limited")
			if err := r.opts.Clock.Sleep(ctx, r.opts.RetryPause); err != nil {
				return false, err
			}
			continue
		case xclient.KindReadOnly:
			log.Warn().Err(err).Msg("send_denied_read_only")
		case xclient.KindRecipientRejected:
			log.Info().Err(err).Msg("send_rejected_by_recipient")
		default:
			log.Error().Err(err).Msg("send_failed")
		}
		return false, nil
	}

	ev := model.SendEvent{CampaignID: c.ID, RecipientID: rcp.ID, Time: r.opts.Clock.Now().UTC()}
	if err := tracker.RecordSend(ctx, ev); err != nil {
		log.Error().Err(err).Msg("record_send_failed")
		return false, fmt.Errorf("record send: %w", err)
	}
	metrics.IncMessageSent(c.DryRun)
	log.Info().Bool("dry_run", c.DryRun).Int("window", tracker.Len()).Msg("send_ok")
	return true, nil
}
