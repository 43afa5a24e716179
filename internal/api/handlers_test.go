package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Corphon/NovelBuilder/internal/auth"
	"github.com/Corphon/NovelBuilder/internal/gateway"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/services"
	"github.com/Corphon/NovelBuilder/internal/storage"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router  *gin.Engine
	auth    *Authenticator
	hub     *NovelHub
	metrics *utils.APIMetrics
}

func newTestServer(t *testing.T, debug bool, rateLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	locks := services.NewLockManager()
	metrics := utils.NewAPIMetrics(nil)
	hub := NewNovelHub(nil, metrics)
	t.Cleanup(func() {
		hub.Close()
		locks.Stop()
		_ = store.Close()
	})

	svc := services.NewNovelService(store, locks, hub, nil)
	authn := NewAuthenticator(&auth.TokenConfig{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Expiration: time.Hour,
	}, nil)
	handler := NewHandler(svc, hub, authn, metrics, nil, debug)

	return &testServer{
		router: NewRouter(RouterConfig{
			Handler:   handler,
			Auth:      authn,
			Metrics:   metrics,
			RateLimit: rateLimit,
		}),
		auth:    authn,
		hub:     hub,
		metrics: metrics,
	}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.auth.GenerateUserToken(userID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createNovel(t *testing.T, token, title string) int64 {
	t.Helper()
	w := s.do(http.MethodPost, "/api/novels", token, fmt.Sprintf(`{"title":%q}`, title))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data.ID
}

const twoScenePayload = `{
	"title": "Forest",
	"description": "a walk",
	"is_published": false,
	"scenes": [
		{"id": "a", "name": "Edge", "text": "You stand at the edge.", "order": 0,
		 "choices": [{"id": "c1", "text": "Enter", "nextScene": 2}], "sprites": []},
		{"id": "b", "name": "Clearing", "text": "A clearing.", "order": 1, "choices": [], "sprites": []}
	]
}`

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestAuthorSaveAndPublishFlow(t *testing.T) {
	s := newTestServer(t, false, 0)
	alice := s.token(t, "alice")
	id := s.createNovel(t, alice, "Forest")

	w := s.do(http.MethodPost, fmt.Sprintf("/api/save_novel/%d", id), alice, twoScenePayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/novel/%d", id), alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	novel := decode(t, w)
	assert.Equal(t, "Forest", novel["title"])
	assert.Len(t, novel["scenes"], 2)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/publish_novel/%d", id), alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/view/%d", id), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_published"])

	w = s.do(http.MethodGet, "/api/novels", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)
}

func TestPublishWithoutScenesFails(t *testing.T) {
	s := newTestServer(t, false, 0)
	alice := s.token(t, "alice")
	id := s.createNovel(t, alice, "Empty")

	w := s.do(http.MethodPost, fmt.Sprintf("/api/publish_novel/%d", id), alice, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestNovelEndpointErrors(t *testing.T) {
	s := newTestServer(t, false, 0)
	alice := s.token(t, "alice")
	id := s.createNovel(t, alice, "Forest")

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"guest", fmt.Sprintf("/api/novel/%d", id), "", http.StatusUnauthorized},
		{"other author", fmt.Sprintf("/api/novel/%d", id), s.token(t, "bob"), http.StatusForbidden},
		{"missing", "/api/novel/999", alice, http.StatusNotFound},
		{"bad id", "/api/novel/abc", alice, http.StatusBadRequest},
		{"unpublished view", fmt.Sprintf("/api/view/%d", id), "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, tt.path, tt.token, "")
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestSaveRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, false, 0)
	alice := s.token(t, "alice")
	id := s.createNovel(t, alice, "Forest")

	w := s.do(http.MethodPost, fmt.Sprintf("/api/save_novel/%d", id), alice, `{"scenes": "nope"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestCreateAndDeleteRequireAuthor(t *testing.T) {
	s := newTestServer(t, false, 0)

	w := s.do(http.MethodPost, "/api/novels", "", `{"title":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	alice := s.token(t, "alice")
	id := s.createNovel(t, alice, "Forest")

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/novel/%d", id), s.token(t, "bob"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/novel/%d", id), alice, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/novels?mine=true", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])
}

func TestIssueTokenOnlyInDebug(t *testing.T) {
	s := newTestServer(t, false, 0)
	w := s.do(http.MethodPost, "/api/auth/token", "", `{"user_id":"alice"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	s = newTestServer(t, true, 0)
	w = s.do(http.MethodPost, "/api/auth/token", "", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	token := data["token"].(string)

	w = s.do(http.MethodGet, "/api/novels?mine=true", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitRejectsExcessRequests(t *testing.T) {
	s := newTestServer(t, false, 2)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/novels", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/novels", "", "").Code)
	w := s.do(http.MethodGet, "/api/novels", "", "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("ip", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = rl.Allow("ip", 1, time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.Cleanup())
	ok, _ = rl.Allow("ip", 1, time.Minute)
	assert.True(t, ok)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	s := newTestServer(t, false, 0)
	s.do(http.MethodGet, "/api/novels", "", "")
	s.do(http.MethodGet, "/api/novel/1", "", "")

	w := s.do(http.MethodGet, "/api/metrics", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	c := s.metrics.Collector()
	assert.Equal(t, int64(3), c.GetCounterValue("api_requests_total"))
	assert.Equal(t, int64(1), c.GetCounterValue("api_requests_GET_/api/novels"))
	assert.Equal(t, int64(1), c.GetCounterValue("api_status_401"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGatewayClientAgainstRouter(t *testing.T) {
	s := newTestServer(t, false, 0)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	alice := s.token(t, "alice")
	id := s.createNovel(t, alice, "Forest")
	client := gateway.NewClient(srv.URL, gateway.WithToken(alice))
	ctx := context.Background()

	novel, err := client.GetNovel(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, novel.Scenes)

	payload := novel.Payload()
	payload.Scenes = append(payload.Scenes, scenesFromJSON(t)...)
	require.NoError(t, client.SaveNovel(ctx, id, payload))
	require.NoError(t, client.PublishNovel(ctx, id))

	viewed, err := gateway.NewClient(srv.URL).ViewNovel(ctx, id)
	require.NoError(t, err)
	assert.True(t, viewed.IsPublished)
	require.Len(t, viewed.Scenes, 2)
	assert.Equal(t, 2, viewed.Scenes[0].Choices[0].NextScene)

	_, err = gateway.NewClient(srv.URL).GetNovel(ctx, id)
	assert.Error(t, err)
}

func scenesFromJSON(t *testing.T) []models.Scene {
	t.Helper()
	var payload struct {
		Scenes []models.Scene `json:"scenes"`
	}
	require.NoError(t, json.Unmarshal([]byte(twoScenePayload), &payload))
	return payload.Scenes
}
