package lifecycle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/wiggly/internal/observability"
)

func TestManager_DispatchBeforeServe(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, t.TempDir(), "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, request(m, http.MethodGet, "/").Code)
}

func TestManager_Dispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	routes := filepath.Join(dir, "routes")
	mws := filepath.Join(dir, "middleware")
	writeFiles(t, routes, map[string]string{
		"index.yaml":           "get: index\n",
		"user/[id].yaml":       "get: user\n",
		"user/settings.yaml":   "get: named\n",
		"files/[...path].yaml": "get: named\n",
		"broken.yaml":          "get: fail\n",
		"late.yaml":            "post: late\n",
	})
	writeFiles(t, mws, map[string]string{"_index.yaml": "_: mw\n"})

	logger, logs := observedLogger()
	metrics := observability.NewMetrics("")
	m, _ := newTestManager(t, routes, mws, nil, WithLogger(logger), WithMetrics(metrics))
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "index", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "index"},
		{name: "param", method: http.MethodGet, path: "/user/42", wantStatus: http.StatusOK, wantBody: "user 42"},
		{name: "literal wins", method: http.MethodGet, path: "/user/settings", wantStatus: http.StatusOK, wantBody: "/user/settings"},
		{name: "wildcard", method: http.MethodGet, path: "/files/a/b/c", wantStatus: http.StatusOK, wantBody: "/files/*path"},
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "unknown method", method: http.MethodPut, path: "/user/42", wantStatus: http.StatusNotFound},
		{name: "handler error", method: http.MethodGet, path: "/broken", wantStatus: http.StatusInternalServerError},
		{name: "error after write", method: http.MethodPost, path: "/late", wantStatus: http.StatusCreated, wantBody: "partial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(m, tt.method, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "yes", rec.Header().Get("X-Middleware"))
			}
		})
	}

	assert.Equal(t, 2, logs.FilterMessage("handler failed").Len())

	count, err := testutil.GatherAndCount(metrics.Registry(), "wiggly_dispatch_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestManager_DispatchKeepsRequestID(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	m, _ := newTestManager(t, routes, "", nil)
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestManager_DispatchBasePath(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{
		"index.yaml":     "get: index\n",
		"user/[id].yaml": "get: user\n",
	})

	m, _ := newTestManager(t, routes, "", nil)
	require.NoError(t, m.Serve(context.Background(), ServeConfig{BasePath: "api/"}))

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/api", wantStatus: http.StatusOK, wantBody: "index"},
		{path: "/api/", wantStatus: http.StatusOK, wantBody: "index"},
		{path: "/api/user/3", wantStatus: http.StatusOK, wantBody: "user 3"},
		{path: "/user/3", wantStatus: http.StatusNotFound},
		{path: "/apiuser/3", wantStatus: http.StatusNotFound},
		{path: "/", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := request(m, http.MethodGet, tt.path)
		assert.Equal(t, tt.wantStatus, rec.Code, tt.path)
		if tt.wantBody != "" {
			assert.Equal(t, tt.wantBody, rec.Body.String(), tt.path)
		}
	}
}

func TestNormalizeBasePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "/", want: ""},
		{in: " /api ", want: "/api"},
		{in: "api/", want: "/api"},
		{in: "/api/v1/", want: "/api/v1"},
		{in: "/api#x", wantErr: true},
	}

	for _, tt := range tests {
		got, err := normalizeBasePath(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStripBasePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base   string
		path   string
		want   string
		wantOK bool
	}{
		{base: "", path: "/x", want: "/x", wantOK: true},
		{base: "/api", path: "/api", want: "/", wantOK: true},
		{base: "/api", path: "/api/x/y", want: "/x/y", wantOK: true},
		{base: "/api", path: "/apix", wantOK: false},
		{base: "/api", path: "/", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := stripBasePath(tt.base, tt.path)
		assert.Equal(t, tt.wantOK, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
