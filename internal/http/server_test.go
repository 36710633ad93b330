package httpapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/store/jsonfile"
)

type allowAllLimiter struct{}

func (a allowAllLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return true, 0
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	posts := jsonfile.NewPostStore(filepath.Join(dir, "blog_posts.json"))
	users := jsonfile.NewUserStore(filepath.Join(dir, "users.json"))
	authSvc := auth.NewService(users, auth.NewSessionMap(), auth.PlainVerifier{}, auth.LegacyIssuer{})

	cfg := config.Config{
		RateLimits: config.RateLimits{AuthPerMinute: 100, WritePerMinute: 100, LikePerMinute: 100},
		V1: config.APIVersion{
			Name:           "v1",
			SortFields:     []string{"title", "content"},
			SearchNotFound: true,
		},
		V2: config.APIVersion{
			Name:           "v2",
			SortFields:     []string{"title", "author", "content", "likes", "date", "updated"},
			OwnershipCheck: true,
		},
	}
	server, err := NewServer(posts, users, authSvc, allowAllLimiter{}, cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return server
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", payload)
	}
}

func TestListPostsEmpty(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/posts", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if payload["total_posts"] != float64(0) {
		t.Fatalf("expected total_posts 0, got %v", payload["total_posts"])
	}
	if _, ok := payload["posts"]; !ok {
		t.Fatalf("expected posts field")
	}
}

func TestCreatePostRequiresAuth(t *testing.T) {
	server := newTestServer(t)

	body := `{"title":"T","content":"C","category":"misc"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v2/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/nonsense", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestStatsIsV2Only(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/stats", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on v2, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	resp = httptest.NewRecorder()
	server.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on v1, got %d", resp.Code)
	}
}

func TestOpenAPIJSON(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi doc is not valid JSON: %v", err)
	}
	if doc["swagger"] != "2.0" {
		t.Fatalf("expected swagger 2.0 doc, got %v", doc["swagger"])
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"/", 0},
		{"", 0},
		{"/posts", 1},
		{"/posts/3", 2},
		{"/posts/3/like", 3},
		{"posts/3/", 2},
	}
	for _, c := range cases {
		if got := splitPath(c.in); len(got) != c.want {
			t.Fatalf("splitPath(%q) = %v, want %d segments", c.in, got, c.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
