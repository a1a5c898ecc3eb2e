package crawler

import (
	"context"
)

// State is the follower cache state of the target.
type State string

const (
	// StateNone means no crawl was ever started.
	StateNone State = "None"
	// StateIncomplete means a crawl was interrupted and can be resumed.
	StateIncomplete State = "Incomplete"
	// StateInProgress means this crawler is running right now.
	StateInProgress State = "InProgress"
	// StateComplete means the last crawl reached the terminal page.
	StateComplete State = "Complete"
)

type Status struct {
	State             State
	CompletionPercent int
	StoredFollowers   int
}

// Status reports the cache state for the initialized target.
func (c *Crawler) Status(ctx context.Context) (Status, error) {
	if c.target.ID == "" {
		return Status{}, ErrNotInitialized
	}
	p, err := c.store.GetProgress(ctx, c.target.ID)
	if err != nil {
		return Status{}, err
	}
	if p == nil {
		return Status{State: StateNone}, nil
	}
	stored, err := c.store.CountFollowers(ctx, c.target.ID)
	if err != nil {
		return Status{}, err
	}
	st := Status{CompletionPercent: p.CompletionPercent, StoredFollowers: stored}
	switch {
	case c.running.Load():
		st.State = StateInProgress
	case !p.Finished():
		st.State = StateIncomplete
	default:
		st.State = StateComplete
	}
	return st, nil
}
