package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/observability"
	"github.com/rentdesk/rentdesk/internal/rbac"
	"github.com/rentdesk/rentdesk/internal/shared"
)

const routerSecret = "router-secret"

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (c *client) do(method, path, body, csrf string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf != "" {
		req.Header.Set(shared.CSRFHeader, csrf)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == "rentdesk_session" {
			c.cookie = ck
		}
	}
	return rr
}

func newRouterClient(t *testing.T) *client {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	registry, err := auth.NewRegistry(routerSecret, auth.DemoIdentities()...)
	require.NoError(t, err)

	cfg := &Config{AppRequestTimeout: 5 * time.Second, AppRateLimit: 1000}
	sessions := shared.NewSessionManager(redisClient, "rentdesk_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")
	gate := auth.Middleware{Registry: registry, Table: rbac.DefaultTable(), Sessions: sessions}

	router := NewRouter(RouterParams{
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Gate:           gate,
		AuthHandler:    auth.NewHandler(nil, csrf, gate),
		Metrics:        observability.NewMetrics(),
	})
	return &client{t: t, handler: router}
}

func TestRouterHealthz(t *testing.T) {
	c := newRouterClient(t)
	rr := c.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Nil(t, c.cookie, "health probes do not open sessions")
}

func TestRouterLoginRequiresCSRF(t *testing.T) {
	c := newRouterClient(t)
	body := `{"email":"admin@rentdesk.local","secret":"` + routerSecret + `"}`

	rr := c.do(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = c.do(http.MethodGet, "/auth/csrf", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	var token map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))
	require.NotEmpty(t, token["csrf_token"])

	rr = c.do(http.MethodPost, "/auth/login", body, token["csrf_token"])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodGet, "/auth/me", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"admin"`)
}

func TestRouterMetricsAndNotFound(t *testing.T) {
	c := newRouterClient(t)
	c.do(http.MethodGet, "/auth/me", "", "")

	rr := c.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `rentdesk_http_requests_total{code="401",route="/auth/me"} 1`)

	rr = c.do(http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
