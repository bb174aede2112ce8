package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/cache"
	"ms-theatre/internal/config"
	"ms-theatre/internal/database/testdb"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/media"
	"ms-theatre/internal/models"
)

func newTestApp(t *testing.T) (*app, http.Handler) {
	t.Helper()
	cfg := config.Load()
	cfg.Media.Dir = t.TempDir()
	cfg.Media.BaseURL = "/media"

	bunDB := testdb.New(t)
	jwtManager := auth.NewJWTManager("secret", "ms-theatre", time.Hour)
	a := newApp(bunDB, cfg, cache.Noop{}, nil, &media.LocalStorage{Dir: cfg.Media.Dir, BaseURL: cfg.Media.BaseURL},
		jwtManager, jwtManager, logger.Discard())
	return a, a.router()
}

func call(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestHealthz(t *testing.T) {
	a, h := newTestApp(t)

	rec := call(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, a.db.Close())
	rec = call(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	a, h := newTestApp(t)
	perf := testdb.Performance(t, a.db, 20, 20)

	rec := call(t, h, http.MethodPost, "/api/user/register", "", `{"email":"viola@illyria.org","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/api/user/token", "", `{"email":"viola@illyria.org","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok models.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))

	rec = call(t, h, http.MethodGet, "/api/theatre/plays", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "catalog is readable anonymously")

	body := fmt.Sprintf(`{"tickets":[{"row":1,"seat":1,"performance":%d},{"row":1,"seat":2,"performance":%d}]}`, perf.ID, perf.ID)
	rec = call(t, h, http.MethodPost, "/api/theatre/reservations", tok.AccessToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, fmt.Sprintf("/api/theatre/performances/%d", perf.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.PerformanceDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 398, detail.TicketsAvailable)
	assert.Len(t, detail.TakenPlaces, 2)

	rec = call(t, h, http.MethodGet, "/api/theatre/tickets", tok.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []models.TicketView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Len(t, views, 2)

	rec = call(t, h, http.MethodPost, "/api/theatre/genres", tok.AccessToken, `{"name":"Drama"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	_, h := newTestApp(t)
	rec := call(t, h, http.MethodGet, "/api/user/me", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
