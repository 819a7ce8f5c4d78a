package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"portraitbot/internal/adapter/repo"
	"portraitbot/internal/domain"
	"portraitbot/internal/http/handlers"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, ping pingFunc, opts RouterOptions) (http.Handler, *repo.MemoryUserRepository) {
	t.Helper()
	users := repo.NewMemoryUserRepository()
	var db handlers.Pinger
	if ping != nil {
		db = ping
	}
	return NewRouter(handlers.NewApp(db, users, nil), opts), users
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, func(context.Context) error { return nil }, RouterOptions{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	router, _ = newTestRouter(t, func(context.Context) error { return errors.New("down") }, RouterOptions{})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetUser(t *testing.T) {
	router, users := newTestRouter(t, nil, RouterOptions{OpsToken: "ops"})
	ctx := context.Background()
	_, _ = users.Ensure(ctx, 42)
	_, _ = users.Transition(ctx, 42, domain.Transition{From: domain.StatusNew, To: domain.StatusCollecting})

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, get("/v1/users/42", "").Code)
	require.Equal(t, http.StatusBadRequest, get("/v1/users/abc", "ops").Code)
	require.Equal(t, http.StatusNotFound, get("/v1/users/7", "ops").Code)

	rec := get("/v1/users/42", "ops")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]any{"id": float64(42), "status": "collecting", "has_model": false}, body)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "datasets", "1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datasets", "1", "a.zip"), []byte("zip"), 0o644))

	router, _ := newTestRouter(t, nil, RouterOptions{StaticDir: dir})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/datasets/1/a.zip", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "zip", rec.Body.String())

	for _, path := range []string{"/static/", "/static/datasets/", "/static/datasets/1/", "/static/datasets"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		require.NotContains(t, rec.Body.String(), "a.zip", path)
	}
}
