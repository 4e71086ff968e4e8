package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"notepad-backend/application/services"
	"notepad-backend/infrastructure/persistence/memory"
	"notepad-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	handler   http.Handler
	store     *memory.KVStore
	migrate   *atomic.Bool
	collector *observability.Collector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewKVStore()
	logger := zap.NewNop()
	collector := observability.NewCollector("test")
	migrate := &atomic.Bool{}
	migrate.Store(true)

	router := NewRouter(
		services.NewNoteService(store, nil, logger),
		services.NewKeyMigrator(store, nil, logger, ""),
		store,
		collector,
		logger,
		Options{EnableCORS: true, MaxBodyBytes: 64, MigrateEnabled: migrate.Load},
	)
	handler, err := router.Setup()
	require.NoError(t, err)

	return &testServer{handler: handler, store: store, migrate: migrate, collector: collector}
}

func (s *testServer) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_WriteReadList(t *testing.T) {
	// Arrange
	srv := newTestServer(t)

	// Act
	saved := srv.do(http.MethodPost, "/abc", "application/json", `{"text":"hello"}`)
	raw := srv.do(http.MethodGet, "/abc?raw", "", "")
	list := srv.do(http.MethodGet, "/?list=1", "", "")

	// Assert
	require.Equal(t, http.StatusOK, saved.Code)
	body := decode(t, saved)
	assert.Equal(t, "hello", body["content"])
	assert.NotNil(t, body["created_at"])
	assert.Equal(t, body["created_at"], body["updated_at"])

	assert.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, "text/plain; charset=utf-8", raw.Header().Get("Content-Type"))
	assert.Equal(t, "hello", raw.Body.String())

	require.Equal(t, http.StatusOK, list.Code)
	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "abc", summaries[0]["name"])
	_, hasContent := summaries[0]["content"]
	assert.False(t, hasContent)
}

func TestRouter_BodyFormats(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{name: "json", contentType: "application/json; charset=utf-8", body: `{"text":"from json"}`, want: "from json"},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: url.Values{"text": {"from form"}}.Encode(), want: "from form"},
		{name: "raw", contentType: "text/plain", body: "from raw", want: "from raw"},
		{name: "no content type", body: "bare", want: "bare"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			rec := srv.do(http.MethodPost, "/n", tt.contentType, tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode(t, rec)["content"])
		})
	}
}

func TestRouter_BlankWriteDeletes(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodPost, "/abc", "application/json", `{"text":"hello"}`)

	rec := srv.do(http.MethodPost, "/abc", "application/json", `{"text":"  \n"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/abc?raw", "", "").Code)
	assert.Equal(t, 0, srv.store.Len())
}

func TestRouter_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "malformed json", method: http.MethodPost, target: "/a", contentType: "application/json", body: `{"text":`, wantStatus: http.StatusBadRequest},
		{name: "json without text", method: http.MethodPost, target: "/a", contentType: "application/json", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "form without text", method: http.MethodPost, target: "/a", contentType: "application/x-www-form-urlencoded", body: "other=1", wantStatus: http.StatusBadRequest},
		{name: "invalid utf8 name", method: http.MethodGet, target: "/%ff", wantStatus: http.StatusBadRequest},
		{name: "body too large", method: http.MethodPost, target: "/a", contentType: "text/plain", body: strings.Repeat("x", 65), wantStatus: http.StatusRequestEntityTooLarge},
		{name: "reserved name write", method: http.MethodPost, target: "/favicon.ico", contentType: "text/plain", body: "x", wantStatus: http.StatusBadRequest},
		{name: "reserved name read", method: http.MethodGet, target: "/favicon.ico", wantStatus: http.StatusNotFound},
		{name: "missing raw", method: http.MethodGet, target: "/nothing?raw", wantStatus: http.StatusNotFound},
		{name: "unsupported method", method: http.MethodPut, target: "/a", body: "x", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			rec := srv.do(tt.method, tt.target, tt.contentType, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, 0, srv.store.Len(), "failed requests never write")
		})
	}
}

func TestRouter_ErrorBodyShape(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/nothing?raw", "", "")

	body := decode(t, rec)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "NOT_FOUND", body["type"])
	assert.Equal(t, "note 'nothing' not found", body["message"])
	assert.NotEmpty(t, body["request_id"])
}

func TestRouter_NamesWithSlashesAndEscapes(t *testing.T) {
	srv := newTestServer(t)

	srv.do(http.MethodPost, "/a/b%20c", "text/plain", "nested")
	viaSlash := srv.do(http.MethodGet, "/a%2Fb%20c?raw", "", "")

	assert.Equal(t, "nested", viaSlash.Body.String())
	_, err := srv.store.Get(context.Background(), "a/b c")
	assert.NoError(t, err)
}

func TestRouter_EditorPage(t *testing.T) {
	// Arrange
	srv := newTestServer(t)
	srv.do(http.MethodPost, "/page", "text/plain", "<script>alert(1)</script>")

	// Act
	existing := srv.do(http.MethodGet, "/page", "", "")
	missing := srv.do(http.MethodGet, "/fresh", "", "")
	alias := srv.do(http.MethodGet, "/?note=page", "", "")

	// Assert
	require.Equal(t, http.StatusOK, existing.Code)
	assert.Equal(t, "text/html; charset=utf-8", existing.Header().Get("Content-Type"))
	assert.Contains(t, existing.Body.String(), "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, existing.Body.String(), "<script>alert(1)</script>")

	require.Equal(t, http.StatusOK, missing.Code)
	assert.Contains(t, missing.Body.String(), "not saved yet")
	_, err := srv.store.Get(context.Background(), "fresh")
	assert.Error(t, err, "viewing a missing note does not create it")

	assert.Equal(t, existing.Body.String(), alias.Body.String())
}

func TestRouter_ListingPage(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodPost, "/a&b", "text/plain", "x")

	rec := srv.do(http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "a&amp;b")
	assert.Contains(t, rec.Body.String(), `href="/a&amp;b"`)
}

func TestRouter_NewNoteRedirect(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/?new", "", "")

	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Regexp(t, `^/[0-9a-f]{8}$`, location)
}

func TestRouter_MigratesOnRequest(t *testing.T) {
	// Arrange
	srv := newTestServer(t)
	srv.store.Seed(map[string]string{"note:old": "legacy"})
	srv.migrate.Store(false)

	// Act
	before := srv.do(http.MethodGet, "/old?raw", "", "")
	srv.migrate.Store(true)
	after := srv.do(http.MethodGet, "/old?raw", "", "")

	// Assert
	assert.Equal(t, http.StatusNotFound, before.Code)
	assert.Equal(t, http.StatusOK, after.Code)
	assert.Equal(t, "legacy", after.Body.String())
}

func TestRouter_OperationalRoutes(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodGet, "/", "", "")

	health := srv.do(http.MethodGet, "/-/health", "", "")
	ready := srv.do(http.MethodGet, "/-/ready", "", "")
	metrics := srv.do(http.MethodGet, "/-/metrics", "", "")
	unknown := srv.do(http.MethodGet, "/-/unknown", "", "")

	assert.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, health.Body.String())
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `test_http_requests_total{method="GET",route="/",status="200"}`)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}
