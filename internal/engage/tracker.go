package engage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"influencekit/internal/model"
	"influencekit/internal/schedule"
)

// ErrCampaignMismatch is returned when a send event belongs to another campaign.
var ErrCampaignMismatch = errors.New("send event campaign does not match tracker")

// HistoryStore is the slice of the follower store the tracker needs.
type HistoryStore interface {
	RecentSendEvents(ctx context.Context, log model.HistoryLog, campaignID string, n int) ([]model.SendEvent, error)
	AppendSendEvent(ctx context.Context, log model.HistoryLog, ev model.SendEvent) error
}

type Options struct {
	Clock  schedule.Clock
	Logger zerolog.Logger
}

// Tracker holds the most recent WindowSize sends of one campaign on one
// history log and answers how long to wait before the next send.
type Tracker struct {
	store      HistoryStore
	campaignID string
	log        model.HistoryLog
	clock      schedule.Clock
	logger     zerolog.Logger

	ring  [WindowSize]model.SendEvent
	start int
	n     int
}

// NewTracker loads the newest WindowSize events for campaignID from the
// selected log.
func NewTracker(ctx context.Context, store HistoryStore, campaignID string, log model.HistoryLog, opts Options) (*Tracker, error) {
	if opts.Clock == nil {
		opts.Clock = schedule.System()
	}
	t := &Tracker{
		store:      store,
		campaignID: campaignID,
		log:        log,
		clock:      opts.Clock,
		logger:     opts.Logger.With().Str("component", "tracker").Str("campaign_id", campaignID).Str("history", log.String()).Logger(),
	}
	evs, err := store.RecentSendEvents(ctx, log, campaignID, WindowSize)
	if err != nil {
		return nil, fmt.Errorf("load send history: %w", err)
	}
	for _, ev := range evs {
		t.push(ev)
	}
	t.logger.Debug().Int("loaded", t.n).Msg("history_loaded")
	return t, nil
}

// RecordSend persists ev and adds it to the window, evicting the oldest
// event once the window is full.
func (t *Tracker) RecordSend(ctx context.Context, ev model.SendEvent) error {
	if ev.CampaignID != t.campaignID {
		return fmt.Errorf("%w: got %q, tracking %q", ErrCampaignMismatch, ev.CampaignID, t.campaignID)
	}
	if err := t.store.AppendSendEvent(ctx, t.log, ev); err != nil {
		return err
	}
	t.push(ev)
	return nil
}

// Len is the number of events currently in the window.
func (t *Tracker) Len() int { return t.n }

// Events returns the window, oldest first.
func (t *Tracker) Events() []model.SendEvent {
	out := make([]model.SendEvent, 0, t.n)
	for i := 0; i < t.n; i++ {
		out = append(out, t.ring[(t.start+i)%WindowSize])
	}
	return out
}

func (t *Tracker) push(ev model.SendEvent) {
	if t.n < WindowSize {
		t.ring[(t.start+t.n)%WindowSize] = ev
		t.n++
		return
	}
	t.ring[t.start] = ev
	t.start = (t.start + 1) % WindowSize
}

func (t *Tracker) oldest() (time.Time, bool) {
	if t.n == 0 {
		return time.Time{}, false
	}
	return t.ring[t.start].Time, true
}

func (t *Tracker) newest() (time.Time, bool) {
	if t.n == 0 {
		return time.Time{}, false
	}
	return t.ring[(t.start+t.n-1)%WindowSize].Time, true
}
