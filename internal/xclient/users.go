package xclient

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"influencekit/internal/model"
)

// MaxLookupIDs is the users/lookup per-call cap.
const MaxLookupIDs = 100

type rawUser struct {
	IDStr                string `json:"id_str"`
	ScreenName           string `json:"screen_name"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Verified             bool   `json:"verified"`
	StatusesCount        int    `json:"statuses_count"`
	FriendsCount         int    `json:"friends_count"`
	FollowersCount       int    `json:"followers_count"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	DefaultProfileImage  bool   `json:"default_profile_image"`
}

func (r rawUser) toModel() model.User {
	return model.User{
		ID:              r.IDStr,
		ScreenName:      r.ScreenName,
		Name:            r.Name,
		Description:     r.Description,
		Verified:        r.Verified,
		StatusesCount:   r.StatusesCount,
		FriendsCount:    r.FriendsCount,
		FollowersCount:  r.FollowersCount,
		ProfileImageURL: r.ProfileImageURLHTTPS,
		DefaultImage:    r.DefaultProfileImage,
	}
}

// VerifyCredentials returns the authenticated account and the permission
// level granted to the app (x-access-level header).
func (c *Client) VerifyCredentials(ctx context.Context) (model.Account, error) {
	var raw rawUser
	params := url.Values{"include_entities": {"false"}, "skip_status": {"true"}}
	hdr, err := c.get(ctx, "/account/verify_credentials.json", params, &raw)
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		ID:         raw.IDStr,
		ScreenName: raw.ScreenName,
		Permission: parsePermission(hdr.Get("x-access-level")),
	}, nil
}

func parsePermission(level string) model.PermissionLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "read-write-directmessages":
		return model.PermissionReadWriteDirectMessages
	case "read-write":
		return model.PermissionReadWrite
	default:
		return model.PermissionRead
	}
}

// LookupUser fetches one profile by screen name.
func (c *Client) LookupUser(ctx context.Context, screenName string) (model.User, error) {
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	if screenName == "" {
		return model.User{}, errors.New("empty screen name")
	}
	var raw rawUser
	params := url.Values{"screen_name": {screenName}, "include_entities": {"false"}}
	if _, err := c.get(ctx, "/users/show.json", params, &raw); err != nil {
		return model.User{}, err
	}
	return raw.toModel(), nil
}

// FollowerIDs fetches one page of follower ids, newest follow first. An
// empty cursor requests the first page.
func (c *Client) FollowerIDs(ctx context.Context, userID, cursor string) (model.IDPage, error) {
	if cursor == "" {
		cursor = "-1"
	}
	params := url.Values{
		"user_id":       {userID},
		"cursor":        {cursor},
		"stringify_ids": {"true"},
		"count":         {"5000"},
	}
	var raw struct {
		IDs           []string `json:"ids"`
		NextCursorStr string   `json:"next_cursor_str"`
	}
	if _, err := c.get(ctx, "/followers/ids.json", params, &raw); err != nil {
		return model.IDPage{}, err
	}
	return model.IDPage{IDs: raw.IDs, NextCursor: raw.NextCursorStr}, nil
}

// LookupUsers fetches profiles for up to MaxLookupIDs ids. Suspended or
// deleted accounts are silently absent from the result.
func (c *Client) LookupUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxLookupIDs {
		ids = ids[:MaxLookupIDs]
	}
	params := url.Values{"user_id": {strings.Join(ids, ",")}, "include_entities": {"false"}}
	var raw []rawUser
	if _, err := c.get(ctx, "/users/lookup.json", params, &raw); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel())
	}
	return out, nil
}
