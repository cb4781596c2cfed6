package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func keyRouter(t *testing.T, hash string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), APIKeyAuth(hash, quiet))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/health", ok)
	r.GET("/api/v1/statistics", ok)
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	r := keyRouter(t, string(hash))

	cases := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"public path", "/health", nil, http.StatusOK},
		{"missing key", "/api/v1/statistics", nil, http.StatusUnauthorized},
		{"wrong key", "/api/v1/statistics", map[string]string{APIKeyHeader: "nope"}, http.StatusUnauthorized},
		{"x-api-key", "/api/v1/statistics", map[string]string{APIKeyHeader: "s3cret"}, http.StatusOK},
		{"bearer", "/api/v1/statistics", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
		{"basic is ignored", "/api/v1/statistics", map[string]string{"Authorization": "Basic s3cret"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	r := keyRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHashAPIKey(t *testing.T) {
	h, err := HashAPIKey("k")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("k")) != nil {
		t.Fatal("hash does not match key")
	}
}

func TestRequestID(t *testing.T) {
	r := keyRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("generated id %q: %v", w.Header().Get(RequestIDHeader), err)
	}

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != given {
		t.Fatalf("id = %q, want %q", w.Header().Get(RequestIDHeader), given)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) == "<script>" {
		t.Fatal("non-uuid id echoed back")
	}
}

type httpRec struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (h *httpRec) ObserveHTTP(route, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.status = append(h.status, status)
}

func TestAccessLogUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &httpRec{}
	r := gin.New()
	r.Use(AccessLog(quiet, rec))
	r.GET("/api/v1/user/:chat_id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	for _, p := range []string{"/api/v1/user/1", "/api/v1/user/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	want := []string{"/api/v1/user/:chat_id", "/api/v1/user/:chat_id", "unmatched"}
	for i, w := range want {
		if rec.routes[i] != w {
			t.Fatalf("routes = %v", rec.routes)
		}
	}
	if rec.status[0] != http.StatusTeapot || rec.status[2] != http.StatusNotFound {
		t.Fatalf("status = %v", rec.status)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("status = %d headers = %v", w.Code, w.Header())
	}
}
