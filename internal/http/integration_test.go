package httpapp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/client"
	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/model"
	"github.com/quillhq/quill/internal/rate"
	"github.com/quillhq/quill/internal/store/jsonfile"
)

type testClient struct {
	server *httptest.Server
	client *http.Client
	dir    string
}

func testConfig() config.Config {
	return config.Config{
		RateLimits: config.RateLimits{AuthPerMinute: 1000, WritePerMinute: 1000, LikePerMinute: 1000},
		V1: config.APIVersion{
			Name:           "v1",
			SortFields:     []string{"title", "content"},
			OwnershipCheck: false,
			SearchNotFound: true,
		},
		V2: config.APIVersion{
			Name:           "v2",
			SortFields:     []string{"title", "author", "content", "likes", "date", "updated"},
			OwnershipCheck: true,
			SearchNotFound: false,
		},
	}
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	return newTestClientWithConfig(t, testConfig())
}

func newTestClientWithConfig(t *testing.T, cfg config.Config) *testClient {
	t.Helper()
	dir := t.TempDir()
	posts := jsonfile.NewPostStore(filepath.Join(dir, "blog_posts.json"))
	users := jsonfile.NewUserStore(filepath.Join(dir, "users.json"))
	authSvc := auth.NewService(users, auth.NewSessionMap(), auth.PlainVerifier{}, auth.LegacyIssuer{})

	server, err := NewServer(posts, users, authSvc, rate.NewMemory(), cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(Chain(server, CORS))
	t.Cleanup(ts.Close)
	return &testClient{server: ts, client: ts.Client(), dir: dir}
}

func (c *testClient) postJSON(t *testing.T, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, c.server.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func (c *testClient) putJSON(t *testing.T, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPut, c.server.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("put %s: %v", path, err)
	}
	return resp
}

func (c *testClient) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	return resp
}

func (c *testClient) del(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, c.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("delete %s: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response, out *T) {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("json decode: %v (body %s)", err, string(body))
	}
}

// createTestUser registers a user and returns a valid bearer token.
func createTestUser(t *testing.T, tc *testClient, name string) string {
	t.Helper()
	helper := client.NewTestHelper(tc.server.URL)
	token, err := helper.GetToken(name, "pw-"+name)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return token
}

func createTestPost(t *testing.T, tc *testClient, token, title, content, category string) model.Post {
	t.Helper()
	resp := tc.postJSON(t, "/api/v2/posts", map[string]string{
		"title":    title,
		"content":  content,
		"category": category,
	}, map[string]string{"Authorization": "Bearer " + token})
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("create post status %d: %s", resp.StatusCode, string(b))
	}
	var post model.Post
	decodeJSON(t, resp, &post)
	return post
}

func TestPostLifecycle(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	headers := map[string]string{"Authorization": "Bearer " + token}

	post := createTestPost(t, tc, token, "Hello", "First post", "general")
	if post.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if post.Author != "alice" {
		t.Fatalf("expected author from token, got %q", post.Author)
	}
	if post.Date == "" {
		t.Fatalf("expected assigned date")
	}

	resp := tc.putJSON(t, "/api/v2/posts/1", map[string]string{
		"title":    "Hello again",
		"content":  "Edited",
		"category": "general",
	}, headers)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("update status %d: %s", resp.StatusCode, string(b))
	}
	var updated model.Post
	decodeJSON(t, resp, &updated)
	if updated.Title != "Hello again" || updated.Updated == "" {
		t.Fatalf("unexpected post after update: %+v", updated)
	}

	resp = tc.del(t, "/api/v2/posts/1", headers)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("delete status %d: %s", resp.StatusCode, string(b))
	}
	var msg map[string]string
	decodeJSON(t, resp, &msg)
	if msg["message"] != "Post 1 deleted" {
		t.Fatalf("unexpected delete message: %v", msg)
	}

	resp = tc.get(t, "/api/v2/posts/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreatePostValidationMessages(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	headers := map[string]string{"Authorization": "Bearer " + token}

	cases := []struct {
		body map[string]string
		want string
	}{
		{map[string]string{"content": "c", "category": "misc"}, "Enter a title"},
		{map[string]string{"title": "t", "category": "misc"}, "Enter content"},
		{map[string]string{"title": "t", "content": "c"}, "Enter a category"},
		{map[string]string{"title": "  ", "content": "c", "category": "misc"}, "Enter a title"},
	}
	for _, c := range cases {
		resp := tc.postJSON(t, "/api/v2/posts", c.body, headers)
		if resp.StatusCode != http.StatusBadRequest {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			t.Fatalf("expected 400 for %v, got %d: %s", c.body, resp.StatusCode, string(b))
		}
		var payload map[string]string
		decodeJSON(t, resp, &payload)
		if payload["error"] != c.want {
			t.Fatalf("expected %q, got %q", c.want, payload["error"])
		}
	}
}

func TestOwnershipEnforcedOnV2Only(t *testing.T) {
	tc := newTestClient(t)
	aliceToken := createTestUser(t, tc, "alice")
	bobToken := createTestUser(t, tc, "bob")
	bobHeaders := map[string]string{"Authorization": "Bearer " + bobToken}

	post := createTestPost(t, tc, aliceToken, "Mine", "Keep out", "general")

	// v2: bob may not edit or delete alice's post
	resp := tc.putJSON(t, "/api/v2/posts/1", map[string]string{
		"title": "Stolen", "content": "x", "category": "general",
	}, bobHeaders)
	if resp.StatusCode != http.StatusForbidden {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected 403 on v2 edit, got %d: %s", resp.StatusCode, string(b))
	}
	resp.Body.Close()

	resp = tc.del(t, "/api/v2/posts/1", bobHeaders)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 on v2 delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// v1 keeps the legacy behavior: any authenticated user may edit
	resp = tc.putJSON(t, "/api/v1/posts/1", map[string]string{
		"title": "Edited by bob", "content": "x", "category": "general",
	}, bobHeaders)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected 200 on v1 edit, got %d: %s", resp.StatusCode, string(b))
	}
	var edited model.Post
	decodeJSON(t, resp, &edited)
	if edited.Author != post.Author {
		t.Fatalf("edit must not change the author, got %q", edited.Author)
	}
}

func TestSearchVersionSemantics(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	createTestPost(t, tc, token, "Gopher news", "Generics landed", "tech")

	// match on both versions
	for _, path := range []string{"/api/v1/posts/search?q=gopher", "/api/v2/posts/search?q=gopher"} {
		resp := tc.get(t, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		var matches []model.Post
		decodeJSON(t, resp, &matches)
		if len(matches) != 1 {
			t.Fatalf("%s: expected 1 match, got %d", path, len(matches))
		}
	}

	// no match: v1 is a 404, v2 an empty list
	resp := tc.get(t, "/api/v1/posts/search?q=zzz", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on v1 no-match, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.get(t, "/api/v2/posts/search?q=zzz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on v2 no-match, got %d", resp.StatusCode)
	}
	var matches []model.Post
	decodeJSON(t, resp, &matches)
	if len(matches) != 0 {
		t.Fatalf("expected empty list, got %d", len(matches))
	}

	// missing term fails the same way on both
	resp = tc.get(t, "/api/v2/posts/search", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without term, got %d", resp.StatusCode)
	}
	var payload map[string]string
	decodeJSON(t, resp, &payload)
	if !strings.Contains(payload["error"], "?q=") {
		t.Fatalf("expected usage hint, got %q", payload["error"])
	}
}

func TestSortAllowListPerVersion(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	createTestPost(t, tc, token, "A", "c", "misc")

	// likes is a v2-only sort field
	resp := tc.get(t, "/api/v1/posts?sort=likes", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for v1 likes sort, got %d", resp.StatusCode)
	}
	var msg map[string]string
	decodeJSON(t, resp, &msg)
	if msg["error"] != "Invalid sort field. Use 'title' or 'content'." {
		t.Fatalf("unexpected v1 sort message: %v", msg)
	}

	resp = tc.get(t, "/api/v2/posts?sort=likes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for v2 likes sort, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.get(t, "/api/v2/posts?sort=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown v2 sort, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &msg)
	if msg["error"] != "Invalid sort field. Use 'title', 'author', 'content', 'likes', 'date' or 'updated'." {
		t.Fatalf("unexpected v2 sort message: %v", msg)
	}

	resp = tc.get(t, "/api/v1/posts?sort=title&direction=sideways", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad direction, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &msg)
	if msg["error"] != "Invalid direction. Use 'asc' or 'desc'." {
		t.Fatalf("unexpected direction message: %v", msg)
	}
}

func TestUnversionedPathsAreV1(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	createTestPost(t, tc, token, "Legacy", "c", "misc")

	resp := tc.get(t, "/api/posts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on unversioned list, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// v1 search semantics apply on the bare prefix
	resp = tc.get(t, "/api/posts/search?q=zzz", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected legacy 404 on unversioned search, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLikeIsPublic(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	createTestPost(t, tc, token, "Likeable", "c", "misc")

	for want := 1; want <= 2; want++ {
		resp := tc.postJSON(t, "/api/v2/posts/1/like", nil, nil)
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			t.Fatalf("like status %d: %s", resp.StatusCode, string(b))
		}
		var post model.Post
		decodeJSON(t, resp, &post)
		if post.Likes != want {
			t.Fatalf("expected %d likes, got %d", want, post.Likes)
		}
	}

	resp := tc.postJSON(t, "/api/v2/posts/99/like", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing post, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCategoriesEndpoint(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	createTestPost(t, tc, token, "A", "c", "Tech")
	createTestPost(t, tc, token, "B", "c", "tech")
	createTestPost(t, tc, token, "C", "c", "Food")

	resp := tc.get(t, "/api/v2/categories", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var categories []string
	decodeJSON(t, resp, &categories)
	if len(categories) != 2 || categories[0] != "Tech" || categories[1] != "Food" {
		t.Fatalf("expected [Tech Food], got %v", categories)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	tc := newTestClient(t)

	resp := tc.postJSON(t, "/api/v2/register", map[string]string{
		"username": "alice", "password": "wonderland",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("register status %d: %s", resp.StatusCode, string(b))
	}
	var msg map[string]string
	decodeJSON(t, resp, &msg)
	if msg["message"] != "User registered successfully" {
		t.Fatalf("unexpected register message: %v", msg)
	}

	resp = tc.postJSON(t, "/api/v2/register", map[string]string{
		"username": "alice", "password": "other",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &msg)
	if msg["error"] != "User already exists" {
		t.Fatalf("unexpected duplicate message: %v", msg)
	}

	resp = tc.postJSON(t, "/api/v2/register", map[string]string{"username": "bob"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.postJSON(t, "/api/v2/login", map[string]string{
		"username": "alice", "password": "wonderland",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("login status %d: %s", resp.StatusCode, string(b))
	}
	var loginResp map[string]string
	decodeJSON(t, resp, &loginResp)
	if loginResp["message"] != "Login successful" || loginResp["token"] == "" {
		t.Fatalf("unexpected login payload: %v", loginResp)
	}

	resp = tc.postJSON(t, "/api/v2/login", map[string]string{
		"username": "alice", "password": "wrong",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &msg)
	if msg["error"] != "Invalid username or password" {
		t.Fatalf("unexpected bad-password message: %v", msg)
	}

	resp = tc.get(t, "/api/v2/secret", map[string]string{"Authorization": "Bearer " + loginResp["token"]})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on secret with token, got %d", resp.StatusCode)
	}
	var secret map[string]string
	decodeJSON(t, resp, &secret)
	if !strings.Contains(secret["message"], "alice") {
		t.Fatalf("expected username echo, got %v", secret)
	}

	resp = tc.get(t, "/api/v2/secret", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on secret without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits.WritePerMinute = 1
	tc := newTestClientWithConfig(t, cfg)

	token := createTestUser(t, tc, "alice")
	headers := map[string]string{"Authorization": "Bearer " + token}

	resp := tc.postJSON(t, "/api/v2/posts", map[string]string{
		"title": "First", "content": "c", "category": "misc",
	}, headers)
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("first post status %d: %s", resp.StatusCode, string(b))
	}
	resp.Body.Close()

	resp = tc.postJSON(t, "/api/v2/posts", map[string]string{
		"title": "Second", "content": "c", "category": "misc",
	}, headers)
	if resp.StatusCode != http.StatusTooManyRequests {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected 429, got %d: %s", resp.StatusCode, string(b))
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	resp.Body.Close()

	// A different user has a separate budget
	otherToken := createTestUser(t, tc, "bob")
	resp = tc.postJSON(t, "/api/v2/posts", map[string]string{
		"title": "Bob post", "content": "c", "category": "misc",
	}, map[string]string{"Authorization": "Bearer " + otherToken})
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected separate budget per token, got %d: %s", resp.StatusCode, string(b))
	}
	resp.Body.Close()
}

func TestCorruptDataResponse(t *testing.T) {
	tc := newTestClient(t)
	if err := os.WriteFile(filepath.Join(tc.dir, "blog_posts.json"), []byte("{broken"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := tc.get(t, "/api/v2/posts", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var payload map[string]string
	decodeJSON(t, resp, &payload)
	if payload["error"] != "Server data is corrupted. Please contact support." {
		t.Fatalf("unexpected corrupt-data message: %q", payload["error"])
	}
	if strings.Contains(payload["error"], "json") {
		t.Fatalf("parse detail leaked to client: %q", payload["error"])
	}
}

func TestListPaginationAndFilter(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")
	for i := 0; i < 7; i++ {
		category := "food"
		if i%2 == 0 {
			category = "tech"
		}
		createTestPost(t, tc, token, "Post", "c", category)
	}

	resp := tc.get(t, "/api/v2/posts?page=2&limit=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var page struct {
		Page       int          `json:"page"`
		Limit      int          `json:"limit"`
		TotalPosts int          `json:"total_posts"`
		Posts      []model.Post `json:"posts"`
	}
	decodeJSON(t, resp, &page)
	if page.Page != 2 || page.Limit != 3 || page.TotalPosts != 7 || len(page.Posts) != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	resp = tc.get(t, "/api/v2/posts?category=TECH", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &page)
	if page.TotalPosts != 4 {
		t.Fatalf("expected 4 tech posts, got %d", page.TotalPosts)
	}

	// garbage paging input falls back to defaults instead of failing
	resp = tc.get(t, "/api/v2/posts?page=x&limit=-2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &page)
	if page.Page != 1 || page.Limit != 5 {
		t.Fatalf("expected clamped defaults, got page %d limit %d", page.Page, page.Limit)
	}
}

func TestStats(t *testing.T) {
	tc := newTestClient(t)

	resp := tc.get(t, "/api/v2/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats model.SiteStats
	decodeJSON(t, resp, &stats)
	if stats.TotalUsers != 0 || stats.TotalPosts != 0 {
		t.Fatalf("expected zeros, got %+v", stats)
	}

	token := createTestUser(t, tc, "alice")
	createTestPost(t, tc, token, "A", "c", "misc")
	createTestPost(t, tc, token, "B", "c", "misc")

	resp = tc.get(t, "/api/v2/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &stats)
	if stats.TotalUsers != 1 || stats.TotalPosts != 2 {
		t.Fatalf("expected 1 user 2 posts, got %+v", stats)
	}
}

func TestRejectsUnknownBodyFields(t *testing.T) {
	tc := newTestClient(t)
	token := createTestUser(t, tc, "alice")

	resp := tc.postJSON(t, "/api/v2/posts", map[string]string{
		"title": "T", "content": "C", "category": "misc", "author": "mallory",
	}, map[string]string{"Authorization": "Bearer " + token})
	if resp.StatusCode != http.StatusBadRequest {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected 400 for unknown field, got %d: %s", resp.StatusCode, string(b))
	}
	resp.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	tc := newTestClient(t)

	req, _ := http.NewRequest(http.MethodOptions, tc.server.URL+"/api/v2/posts", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := tc.client.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
