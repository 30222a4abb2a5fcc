package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"karmafeed/internal/config"
	"karmafeed/internal/featureflags"
	"karmafeed/internal/middleware"
	"karmafeed/internal/models"
	"karmafeed/internal/notifications"
	"karmafeed/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	cfg := &config.Config{
		Env:               "test",
		Port:              "0",
		JWTSecret:         testSecret,
		DBDriver:          "sqlite",
		LeaderboardWindow: 24 * time.Hour,
		LeaderboardLimit:  5,
		FeatureFlags:      "live_events=on",
	}
	s, err := NewServerWithDeps(cfg, testutil.NewTestDB(t), nil)
	require.NoError(t, err)
	return s, s.App()
}

func do(t *testing.T, app *fiber.App, method, path, actor string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(middleware.ActorHeader, actor)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func createPost(t *testing.T, app *fiber.App, actor, body string) models.Post {
	t.Helper()
	status, data := do(t, app, http.MethodPost, "/api/posts", actor, CreatePostRequest{Body: body})
	require.Equal(t, http.StatusCreated, status, string(data))
	return decode[models.Post](t, data)
}

func TestLikePostFlow(t *testing.T) {
	s, app := newTestServer(t)
	post := createPost(t, app, "alice", "hello")
	path := fmt.Sprintf("/api/posts/%d/like", post.ID)

	status, data := do(t, app, http.MethodPost, path, "bob", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1}, decode[models.LikeState](t, data))

	// Repeating the like is a no-op.
	status, data = do(t, app, http.MethodPost, path, "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1}, decode[models.LikeState](t, data))

	status, data = do(t, app, http.MethodDelete, path, "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.LikeState{Liked: false, LikeCount: 0}, decode[models.LikeState](t, data))

	var events []models.KarmaEvent
	require.NoError(t, s.db.Order("id").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, 5, events[0].Delta)
	assert.Equal(t, -5, events[1].Delta)
	assert.Equal(t, post.User.ID, events[0].BeneficiaryID)
}

func TestLikeComment(t *testing.T) {
	_, app := newTestServer(t)
	post := createPost(t, app, "alice", "hello")

	status, data := do(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), "carol",
		CreateCommentRequest{Body: "first"})
	require.Equal(t, http.StatusCreated, status, string(data))
	comment := decode[models.CommentNode](t, data)

	status, data = do(t, app, http.MethodPost, fmt.Sprintf("/api/comments/%d/like", comment.ID), "bob", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1}, decode[models.LikeState](t, data))

	status, data = do(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d/karma", comment.Author.ID), "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	karma := decode[models.ActorKarma](t, data)
	assert.Equal(t, int64(1), karma.AllTime)
	assert.Equal(t, int64(1), karma.Windowed)
	assert.Equal(t, "carol", karma.User.Username)
}

func TestLikeErrors(t *testing.T) {
	_, app := newTestServer(t)
	post := createPost(t, app, "alice", "hello")

	tests := []struct {
		name   string
		method string
		path   string
		actor  string
		status int
		code   string
	}{
		{"anonymous like", http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), "", http.StatusUnauthorized, models.CodeInvalidActor},
		{"missing post", http.MethodPost, "/api/posts/999/like", "bob", http.StatusNotFound, models.CodeNotFound},
		{"missing comment", http.MethodDelete, "/api/comments/999/like", "bob", http.StatusNotFound, models.CodeNotFound},
		{"bad id", http.MethodPost, "/api/posts/abc/like", "bob", http.StatusBadRequest, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := do(t, app, tt.method, tt.path, tt.actor, nil)
			assert.Equal(t, tt.status, status, string(data))
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, data).Code)
		})
	}
}

func TestBearerTokenActor(t *testing.T) {
	s, app := newTestServer(t)
	post := createPost(t, app, "alice", "hello")
	bob := testutil.CreateUser(t, s.db, "bob")

	token, err := middleware.IssueToken(testSecret, bob.ID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostDetailWithCommentTree(t *testing.T) {
	_, app := newTestServer(t)
	post := createPost(t, app, "alice", "hello")
	commentsPath := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	status, data := do(t, app, http.MethodPost, commentsPath, "bob", CreateCommentRequest{Body: "root"})
	require.Equal(t, http.StatusCreated, status, string(data))
	root := decode[models.CommentNode](t, data)

	status, data = do(t, app, http.MethodPost, commentsPath, "carol",
		CreateCommentRequest{Body: "reply", ParentID: &root.ID})
	require.Equal(t, http.StatusCreated, status, string(data))

	status, _ = do(t, app, http.MethodPost, commentsPath, "carol",
		CreateCommentRequest{Body: "dangling", ParentID: testutil.Ptr(uint(999))})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPost, commentsPath, "carol", CreateCommentRequest{Body: "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = do(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	detail := decode[models.PostDetail](t, data)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "root", detail.Comments[0].Body)
	require.Len(t, detail.Comments[0].Children, 1)
	assert.Equal(t, "reply", detail.Comments[0].Children[0].Body)
	assert.Equal(t, "carol", detail.Comments[0].Children[0].Author.Username)

	status, data = do(t, app, http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.CommentNode](t, data), 1)

	status, data = do(t, app, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, status)
	posts := decode[[]models.Post](t, data)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(2), posts[0].CommentCount)

	status, _ = do(t, app, http.MethodGet, "/api/posts/404", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLeaderboardEndpoint(t *testing.T) {
	_, app := newTestServer(t)
	alicePost := createPost(t, app, "alice", "a")
	bobPost := createPost(t, app, "bob", "b")

	do(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", alicePost.ID), "bob", nil)
	do(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", alicePost.ID), "carol", nil)
	do(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", bobPost.ID), "carol", nil)

	status, data := do(t, app, http.MethodGet, "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	entries := decode[[]models.LeaderboardEntry](t, data)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].User.Username)
	assert.Equal(t, int64(10), entries[0].Karma)
	assert.Equal(t, "bob", entries[1].User.Username)
	assert.Equal(t, int64(5), entries[1].Karma)

	status, data = do(t, app, http.MethodGet, "/api/leaderboard?limit=1&window=1h", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.LeaderboardEntry](t, data), 1)

	for _, q := range []string{"window=yesterday", "window=-1h", "limit=abc", "limit=-2"} {
		status, _ = do(t, app, http.MethodGet, "/api/leaderboard?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, status, q)
	}
}

func TestLikePublishesEvents(t *testing.T) {
	s, app := newTestServer(t)
	post := createPost(t, app, "alice", "hello")

	var (
		mu       sync.Mutex
		received = map[string][]notifications.Envelope{}
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		var env notifications.Envelope
		if err := json.Unmarshal([]byte(payload), &env); err == nil {
			mu.Lock()
			received[channel] = append(received[channel], env)
			mu.Unlock()
		}
	}))

	path := fmt.Sprintf("/api/posts/%d/like", post.ID)
	do(t, app, http.MethodPost, path, "bob", nil)
	do(t, app, http.MethodPost, path, "bob", nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received["feed:broadcast"], 1, "no-op like must not publish")
	assert.Equal(t, notifications.EventLikeUpdated, received["feed:broadcast"][0].Type)

	userEvents := received[notifications.UserChannel(post.User.ID)]
	require.Len(t, userEvents, 1)
	assert.Equal(t, notifications.EventKarmaChanged, userEvents[0].Type)
}

func TestLiveEventsFlagOff(t *testing.T) {
	s, app := newTestServer(t)
	s.featureFlags = featureflags.NewManager("live_events=off")
	post := createPost(t, app, "alice", "hello")

	var published atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.notifier.StartPatternSubscriber(ctx, func(string, string) { published.Add(1) }))

	status, _ := do(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, published.Load())

	status, data := do(t, app, http.MethodGet, "/api/features", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]bool{"live_events": false}, decode[map[string]bool](t, data))
}

func TestHealthAndRoot(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := do(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, data := do(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	ready := decode[map[string]interface{}](t, data)
	assert.Equal(t, "healthy", ready["status"])
	assert.Equal(t, "disabled", ready["checks"].(map[string]interface{})["redis"])

	status, data = do(t, app, http.MethodGet, "/api/", "", nil)
	require.Equal(t, http.StatusOK, status)
	root := decode[map[string]string](t, data)
	assert.True(t, strings.HasSuffix(root["posts"], "/api/posts/"))
	assert.True(t, strings.HasSuffix(root["leaderboard"], "/api/leaderboard/"))

	status, _ = do(t, app, http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "comment ID", humanizeParam("commentId"))
	assert.Equal(t, "parent comment ID", humanizeParam("parentCommentId"))
	assert.Equal(t, "slug", humanizeParam("slug"))
}

func TestErrorFrameEscapesMessage(t *testing.T) {
	msg := `hub "events" is shutting down` + "\n" + `\retry`
	frame := errorFrame(errors.New(msg))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, msg, decoded["error"])
}
