package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influencekit/internal/model"
)

// helper to create a client pointed at a test server
func newTestClient(ts *httptest.Server) *Client {
	c := New(Config{
		BaseURL:           ts.URL,
		Credentials:       Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as"},
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxAttempts:       3,
		BaseBackoff:       time.Millisecond,
	}, zerolog.Nop())
	c.httpClient = ts.Client()
	return c
}

func TestSignatureMatchesPublishedExample(t *testing.T) {
	u, err := url.Parse("https://api.twitter.com/1.1/statuses/update.json")
	require.NoError(t, err)
	params := url.Values{
		"status":           {"Hello Ladies + Gentlemen, a signed OAuth request!"},
		"include_entities": {"true"},
	}
	oauth := map[string]string{
		"oauth_consumer_key":     "xvz1evFS4wEEPTGEFPHBog",
		"oauth_nonce":            "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1318622958",
		"oauth_token":            "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		"oauth_version":          "1.0",
	}
	creds := Credentials{
		ConsumerSecret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		AccessSecret:   "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	}
	assert.Equal(t, "hCtSmYh+iHYCEqBWrE7C7hYmtUk=", signature(http.MethodPost, u, params, oauth, creds))
}

func TestVerifyCredentialsReadsAccessLevel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/verify_credentials.json", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="ck"`)
		w.Header().Set("x-access-level", "read-write-directmessages")
		_, _ = w.Write([]byte(`{"id_str":"7","screen_name":"treylorswift"}`))
	}))
	defer ts.Close()

	acct, err := newTestClient(ts).VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Account{ID: "7", ScreenName: "treylorswift", Permission: model.PermissionReadWriteDirectMessages}, acct)
}

func TestParsePermission(t *testing.T) {
	assert.Equal(t, model.PermissionRead, parsePermission("read"))
	assert.Equal(t, model.PermissionReadWrite, parsePermission("read-write"))
	assert.Equal(t, model.PermissionReadWriteDirectMessages, parsePermission("Read-Write-DirectMessages"))
	assert.Equal(t, model.PermissionRead, parsePermission(""))
}

func TestFollowerIDsFirstPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/followers/ids.json", r.URL.Path)
		assert.Equal(t, "-1", r.URL.Query().Get("cursor"))
		assert.Equal(t, "42", r.URL.Query().Get("user_id"))
		assert.Equal(t, "true", r.URL.Query().Get("stringify_ids"))
		_, _ = w.Write([]byte(`{"ids":["3","2","1"],"next_cursor_str":"1650"}`))
	}))
	defer ts.Close()

	page, err := newTestClient(ts).FollowerIDs(context.Background(), "42", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, page.IDs)
	assert.Equal(t, "1650", page.NextCursor)
	assert.False(t, page.Terminal())
}

func TestLookupUsersMapsProfiles(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/lookup.json", r.URL.Path)
		assert.Len(t, strings.Split(r.URL.Query().Get("user_id"), ","), MaxLookupIDs)
		_, _ = w.Write([]byte(`[{"id_str":"1","screen_name":"a","name":"A","description":"bitcoin",
			"verified":true,"followers_count":9,"friends_count":3,"statuses_count":100,
			"profile_image_url_https":"https://img/a.png","default_profile_image":true}]`))
	}))
	defer ts.Close()

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = "1"
	}
	users, err := newTestClient(ts).LookupUsers(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.User{
		ID: "1", ScreenName: "a", Name: "A", Description: "bitcoin", Verified: true,
		StatusesCount: 100, FriendsCount: 3, FollowersCount: 9,
		ProfileImageURL: "https://img/a.png", DefaultImage: true,
	}, users[0])
}

func TestSendDirectMessageBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body messageCreate
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "message_create", body.Event.Type)
		assert.Equal(t, "99", body.Event.MessageCreate.Target.RecipientID)
		assert.Equal(t, "gm", body.Event.MessageCreate.MessageData.Text)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(ts).SendDirectMessage(context.Background(), "99", "gm"))
}

func TestRetriesServerErrorsAndResendsBody(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), `"recipient_id":"5"`)
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(ts).SendDirectMessage(context.Background(), "5", "hi"))
	assert.Equal(t, 2, attempts)
}

func TestTooManyRequestsIsNotRetried(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts).FollowerIDs(context.Background(), "1", "")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, KindRateLimited, Classify(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CodeRateLimitExceeded, apiErr.Code)
	assert.Equal(t, "/followers/ids.json", apiErr.Endpoint)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("boom"), KindUnknown},
		{"code 88", &APIError{Status: 420, Code: 88}, KindRateLimited},
		{"status 429", &APIError{Status: 429}, KindRateLimited},
		{"read-only text", parseAPIError("/dm", 401, []byte("Read-only application cannot POST.")), KindReadOnly},
		{"read-only json", parseAPIError("/dm", 401, []byte(`{"error":"Read-only application cannot POST."}`)), KindReadOnly},
		{"dm permission", &APIError{Status: 403, Code: 93}, KindReadOnly},
		{"rejected", parseAPIError("/dm", 403, []byte(`{"errors":[{"code":349,"message":"You cannot send messages to this user."}]}`)), KindRecipientRejected},
		{"wrapped", errors.Join(errors.New("send"), &APIError{Status: 403, Code: 349}), KindRecipientRejected},
		{"other api", &APIError{Status: 404, Code: 50}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
