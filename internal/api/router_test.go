package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/ddoksori/internal/config"
	"github.com/Rrens/ddoksori/internal/llm/simulated"
	"github.com/Rrens/ddoksori/internal/repository/memory"
	"github.com/Rrens/ddoksori/internal/security"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

type client struct {
	t      *testing.T
	srv    *httptest.Server
	id     string
	bearer string
}

func (c *client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", c.id)
	req.Header.Set("User-Agent", "Mozilla/5.0 (test)")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func newServer(t *testing.T) *httptest.Server {
	cfg := &config.Config{
		Server: config.ServerConfig{
			MiddlewareTimeout: 5 * time.Second,
			AllowedOrigins:    []string{"http://localhost:3000"},
		},
		LLM: config.LLMConfig{DefaultProvider: simulated.Name},
	}

	root := storage.NewAdapter(memory.NewStore(), memory.NewStore())
	srv := httptest.NewServer(NewRouter(cfg, Dependencies{
		Registry:   workspace.NewRegistry(root),
		Storage:    okPinger{},
		LLMRouter:  NewLLMRouter(cfg.LLM),
		JWTManager: security.NewJWTManager("test-secret", time.Hour),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sessionsOf(t *testing.T, env envelope) []map[string]any {
	var data struct {
		Sessions []map[string]any `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Sessions
}

func TestRouter_GuestToMemberFlow(t *testing.T) {
	c := &client{t: t, srv: newServer(t), id: "browser-1"}

	status, env := c.do(http.MethodPost, "/api/v1/chat/general/messages", map[string]string{"content": "환불 받고 싶어요"})
	require.Equal(t, http.StatusOK, status)

	var exchange struct {
		SessionID string `json:"sessionId"`
		Answer    struct {
			Content string `json:"content"`
		} `json:"answer"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &exchange))
	assert.Contains(t, exchange.SessionID, "guest_")
	assert.Equal(t, simulated.GeneralReply, exchange.Answer.Content)

	status, env = c.do(http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	sessions := sessionsOf(t, env)
	require.Len(t, sessions, 1)
	assert.Equal(t, "환불 받고 싶어요", sessions[0]["title"])
	assert.Contains(t, sessions[0]["timeRemaining"], "시간")

	status, _ = c.do(http.MethodPost, "/api/v1/sessions/"+exchange.SessionID+"/refresh", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodPost, "/api/v1/sessions/unknown/refresh", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"provider": "kakao",
		"name":     "김소비",
		"email":    "kim@example.com",
	})
	require.Equal(t, http.StatusOK, status)

	var login struct {
		AccessToken   string `json:"access_token"`
		SessionsMoved int    `json:"sessions_moved"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, 1, login.SessionsMoved)
	c.bearer = login.AccessToken

	status, env = c.do(http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	sessions = sessionsOf(t, env)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0]["expiresAt"])
	assert.Nil(t, sessions[0]["timeRemaining"])

	status, _ = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_OpenAndDelete(t *testing.T) {
	c := &client{t: t, srv: newServer(t), id: "browser-2"}

	status, env := c.do(http.MethodPost, "/api/v1/chat/dispute/form", map[string]string{
		"purchase_date":   "2024-01-15",
		"purchase_place":  "온라인",
		"purchase_item":   "노트북",
		"purchase_amount": "1,200,000",
		"dispute_detail":  "화면 불량",
	})
	require.Equal(t, http.StatusOK, status)

	var exchange struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &exchange))

	status, _ = c.do(http.MethodPost, "/api/v1/chat/new", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = c.do(http.MethodPost, "/api/v1/sessions/"+exchange.SessionID+"/open", nil)
	require.Equal(t, http.StatusOK, status)

	var opened struct {
		Messages        []map[string]any `json:"messages"`
		IsFormSubmitted bool             `json:"isFormSubmitted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opened))
	assert.Len(t, opened.Messages, 3)
	assert.True(t, opened.IsFormSubmitted)

	status, _ = c.do(http.MethodDelete, "/api/v1/sessions/"+exchange.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = c.do(http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, sessionsOf(t, env))
}

func TestRouter_Validation(t *testing.T) {
	c := &client{t: t, srv: newServer(t), id: "browser-3"}

	status, _ := c.do(http.MethodPost, "/api/v1/chat/board/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = c.do(http.MethodPost, "/api/v1/chat/general/messages", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"provider": "github", "name": "x", "email": "bad"})
	assert.Equal(t, http.StatusBadRequest, status)
	errs, ok := env.Error.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "Provider")
	assert.Contains(t, errs, "Email")

	status, _ = c.do(http.MethodPost, "/api/v1/sessions/missing/open", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_ClientsAreIsolated(t *testing.T) {
	srv := newServer(t)
	a := &client{t: t, srv: srv, id: "browser-a"}
	b := &client{t: t, srv: srv, id: "browser-b"}

	status, _ := a.do(http.MethodPost, "/api/v1/chat/general/messages", map[string]string{"content": "질문"})
	require.Equal(t, http.StatusOK, status)

	_, env := b.do(http.MethodGet, "/api/v1/sessions", nil)
	assert.Empty(t, sessionsOf(t, env))

	_, env = a.do(http.MethodGet, "/api/v1/sessions", nil)
	assert.Len(t, sessionsOf(t, env), 1)
}
