package model

import "time"

// User is a cached follower profile (a subset of the X v1.1 user object).
type User struct {
	ID              string
	ScreenName      string
	Name            string
	Description     string
	Verified        bool
	StatusesCount   int
	FriendsCount    int
	FollowersCount  int
	ProfileImageURL string
	DefaultImage    bool
}

// Account is the authenticated account running a campaign.
type Account struct {
	ID         string
	ScreenName string
	Permission PermissionLevel
}

// PermissionLevel mirrors the x-access-level granted to the app.
type PermissionLevel int

const (
	PermissionRead PermissionLevel = iota
	PermissionReadWrite
	PermissionReadWriteDirectMessages
)

func (p PermissionLevel) String() string {
	switch p {
	case PermissionReadWrite:
		return "read-write"
	case PermissionReadWriteDirectMessages:
		return "read-write-directmessages"
	default:
		return "read"
	}
}

// CanSendDirectMessages reports whether the level includes DM send rights.
func (p PermissionLevel) CanSendDirectMessages() bool {
	return p == PermissionReadWriteDirectMessages
}

// IDPage is one page of follower ids. NextCursor is "0" (or empty) on the last page.
type IDPage struct {
	IDs        []string
	NextCursor string
}

// Terminal reports whether no further pages exist.
func (p IDPage) Terminal() bool {
	return p.NextCursor == "" || p.NextCursor == "0"
}

// FollowEdge records that FollowerID follows TargetID. AgeRank 0 is the newest follow.
type FollowEdge struct {
	FollowerID string
	TargetID   string
	AgeRank    int
}

// CrawlProgress is the persisted, resumable state of one target's follower crawl.
// A nil FinishTime means the crawl is running or was interrupted.
type CrawlProgress struct {
	Cursor            string
	CompletionPercent int
	StartTime         *time.Time
	FinishTime        *time.Time
}

// Finished reports whether the crawl reached its terminal page.
func (p CrawlProgress) Finished() bool { return p.FinishTime != nil }

// SendEvent is one successful (or simulated) message send.
type SendEvent struct {
	CampaignID  string
	RecipientID string
	Time        time.Time
}

// HistoryLog selects which send-history table a campaign reads and writes.
type HistoryLog int

const (
	HistoryLive HistoryLog = iota
	HistoryDryRun
)

func (l HistoryLog) String() string {
	if l == HistoryDryRun {
		return "dry_run"
	}
	return "live"
}

// LogFor returns the history log matching a campaign's dry-run flag.
func LogFor(dryRun bool) HistoryLog {
	if dryRun {
		return HistoryDryRun
	}
	return HistoryLive
}
