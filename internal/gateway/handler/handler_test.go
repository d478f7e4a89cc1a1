package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/doozitravel/gateway/internal/backend"
)

// ── Stub backend ──────────────────────────────────────────────────────────

// upstream is an httptest backend that counts hits per route pattern and
// remembers the last request body and headers it saw.
type upstream struct {
	srv *httptest.Server
	mux *http.ServeMux

	mu       sync.Mutex
	hits     map[string]int
	lastBody map[string]map[string]any
	lastHdr  map[string]http.Header
	lastPath map[string]string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		mux:      http.NewServeMux(),
		hits:     map[string]int{},
		lastBody: map[string]map[string]any{},
		lastHdr:  map[string]http.Header{},
		lastPath: map[string]string{},
	}
	u.srv = httptest.NewServer(u.mux)
	t.Cleanup(u.srv.Close)
	return u
}

// handle registers fn under pattern and records every hit.
func (u *upstream) handle(pattern string, fn func(w http.ResponseWriter, body map[string]any, r *http.Request)) {
	u.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.hits[pattern]++
		u.lastBody[pattern] = body
		u.lastHdr[pattern] = r.Header.Clone()
		u.lastPath[pattern] = r.URL.Path
		u.mu.Unlock()
		fn(w, body, r)
	})
}

func (u *upstream) count(pattern string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[pattern]
}

func (u *upstream) body(pattern string) map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastBody[pattern]
}

func (u *upstream) header(pattern string) http.Header {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastHdr[pattern]
}

func (u *upstream) path(pattern string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastPath[pattern]
}

func (u *upstream) client(t *testing.T) *backend.Client {
	t.Helper()
	c, err := backend.New(u.srv.URL)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Service Unavailable</body></html>"))
}

// ── Request helpers ───────────────────────────────────────────────────────

func newRouter() (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, r.Group("/api")
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}
