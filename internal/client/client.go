// Package client provides a Go client for the Quill API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quillhq/quill/internal/model"
	"github.com/quillhq/quill/internal/query"
)

// Errors
var (
	ErrAlreadyRegistered = errors.New("user already exists")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Client is a Quill API client. Version selects the API prefix; the
// zero value means v2.
type Client struct {
	BaseURL    string
	Version    string
	HTTPClient *http.Client
	Token      string
}

// New creates a new Quill client against the v2 API.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Version:    "v2",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) apiPath(path string) string {
	v := c.Version
	if v == "" {
		v = "v2"
	}
	return c.BaseURL + "/api/" + v + path
}

// Register creates a new user on the server.
func (c *Client) Register(username, password string) error {
	resp, err := c.doRequest(http.MethodPost, "/register", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "already exists") {
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("register failed (%d): %s", resp.StatusCode, string(body))
}

// Login exchanges credentials for a bearer token and stores it on the
// client for subsequent requests.
func (c *Client) Login(username, password string) error {
	resp, err := c.doRequest(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("login failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	c.Token = result.Token
	return nil
}

// RegisterAndLogin is a convenience method that registers (if needed)
// and logs in.
func (c *Client) RegisterAndLogin(username, password string) error {
	if err := c.Register(username, password); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return fmt.Errorf("register: %w", err)
	}
	return c.Login(username, password)
}

// IsAuthenticated returns true if the client holds a token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != ""
}

// ListOptions filters, sorts and paginates ListPosts.
type ListOptions struct {
	Category   string
	Categories []string
	Sort       string
	Direction  string
	Page       int
	Limit      int
}

// ListPosts fetches a page of posts.
func (c *Client) ListPosts(opts ListOptions) (*query.Result, error) {
	values := url.Values{}
	if opts.Category != "" {
		values.Set("category", opts.Category)
	}
	if len(opts.Categories) > 0 {
		values.Set("categories", strings.Join(opts.Categories, ","))
	}
	if opts.Sort != "" {
		values.Set("sort", opts.Sort)
	}
	if opts.Direction != "" {
		values.Set("direction", opts.Direction)
	}
	if opts.Page > 0 {
		values.Set("page", fmt.Sprint(opts.Page))
	}
	if opts.Limit > 0 {
		values.Set("limit", fmt.Sprint(opts.Limit))
	}
	path := "/posts"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	resp, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list posts failed (%d): %s", resp.StatusCode, string(body))
	}

	var result query.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(id int) (*model.Post, error) {
	resp, err := c.doRequest(http.MethodGet, fmt.Sprintf("/posts/%d", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get post failed (%d): %s", resp.StatusCode, string(body))
	}

	var post model.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost creates a new post authored by the logged-in user.
func (c *Client) CreatePost(title, content, category string) (*model.Post, error) {
	resp, err := c.doRequest(http.MethodPost, "/posts", map[string]string{
		"title":    title,
		"content":  content,
		"category": category,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create post failed (%d): %s", resp.StatusCode, string(body))
	}

	var post model.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost replaces a post's title, content and category.
func (c *Client) UpdatePost(id int, title, content, category string) (*model.Post, error) {
	resp, err := c.doRequest(http.MethodPut, fmt.Sprintf("/posts/%d", id), map[string]string{
		"title":    title,
		"content":  content,
		"category": category,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("update post failed (%d): %s", resp.StatusCode, string(body))
	}

	var post model.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post you own.
func (c *Client) DeletePost(id int) error {
	resp, err := c.doRequest(http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete post failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// LikePost increments a post's like counter and returns the updated post.
func (c *Client) LikePost(id int) (*model.Post, error) {
	resp, err := c.doRequest(http.MethodPost, fmt.Sprintf("/posts/%d/like", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("like post failed (%d): %s", resp.StatusCode, string(body))
	}

	var post model.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// SearchPosts searches posts by title, content or author.
func (c *Client) SearchPosts(q string) ([]model.Post, error) {
	resp, err := c.doRequest(http.MethodGet, "/posts/search?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search failed (%d): %s", resp.StatusCode, string(body))
	}

	var posts []model.Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetCategories fetches the distinct categories in use.
func (c *Client) GetCategories() ([]string, error) {
	resp, err := c.doRequest(http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get categories failed (%d): %s", resp.StatusCode, string(body))
	}

	var categories []string
	if err := json.NewDecoder(resp.Body).Decode(&categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetStats fetches site statistics. The stats route exists on v2 only.
func (c *Client) GetStats() (*model.SiteStats, error) {
	resp, err := c.doRequest(http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get stats failed (%d): %s", resp.StatusCode, string(body))
	}

	var stats model.SiteStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// doRequest performs an authenticated HTTP request against the
// versioned API prefix.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.apiPath(path), bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers the user (if needed), logs in and
// returns a ready client. This is a convenience method for tests.
func (h *TestHelper) CreateAuthenticatedClient(username, password string) (*Client, error) {
	c := New(h.BaseURL)
	if err := c.RegisterAndLogin(username, password); err != nil {
		return nil, err
	}
	return c, nil
}

// GetToken registers a user (if needed) and returns a bearer token.
// This is a convenience method for tests that need just the token string.
func (h *TestHelper) GetToken(username, password string) (string, error) {
	c, err := h.CreateAuthenticatedClient(username, password)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
