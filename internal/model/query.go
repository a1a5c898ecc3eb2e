package model

import (
	"fmt"
	"time"
)

// SortMode orders eligible recipients.
type SortMode string

const (
	// SortInfluence orders by follower count, highest first.
	SortInfluence SortMode = "influence"
	// SortRecent orders by age rank, newest follow first.
	SortRecent SortMode = "recent"
)

// ParseSortMode accepts "influence" or "recent".
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case SortInfluence, SortRecent:
		return SortMode(s), nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// Scheduling controls how sends are paced.
type Scheduling string

const (
	// SchedulingBurst sends as fast as the rolling volume cap allows.
	SchedulingBurst Scheduling = "burst"
	// SchedulingSpread spaces sends evenly across 24 hours.
	SchedulingSpread Scheduling = "spread"
)

// ParseScheduling accepts "burst" or "spread".
func ParseScheduling(s string) (Scheduling, error) {
	switch Scheduling(s) {
	case SchedulingBurst, SchedulingSpread:
		return Scheduling(s), nil
	}
	return "", fmt.Errorf("unknown scheduling %q", s)
}

// FollowerQuery asks for eligible recipients of a campaign.
// Limit and Offset of zero mean "no limit" and "from the start".
type FollowerQuery struct {
	TargetID         string
	CampaignID       string
	Tags             []string
	Sort             SortMode
	Limit            int
	Offset           int
	IncludeContacted bool
	UseDryRunHistory bool
}

// Recipient is one row of a FollowerQuery result.
type Recipient struct {
	ID              string
	ScreenName      string
	Name            string
	Description     string
	AgeRank         int
	FollowersCount  int
	ProfileImageURL string
	// ContactedAt is set only when the query includes contacted followers.
	ContactedAt *time.Time
}
