// Package query implements the read pipeline over the post collection:
// filter by category, then sort, then paginate. The functions are pure;
// callers hand in the full collection from the store.
package query

import (
	"errors"
	"sort"
	"strings"

	"github.com/quillhq/quill/internal/model"
)

var (
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptySearch      = errors.New("search term required")
)

const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// Params are the parsed query parameters of a list request. Category
// takes precedence over Categories when both are present.
type Params struct {
	Category   string
	Categories string // comma-separated
	Sort       string
	Direction  string
	Page       int
	Limit      int
}

type Result struct {
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPosts int          `json:"total_posts"`
	Posts      []model.Post `json:"posts"`
}

// Run applies filter, sort and pagination in that fixed order.
// allowedSort is the per-API-version sort field allow-list. TotalPosts
// reflects the post-filter, pre-pagination count.
func Run(posts []model.Post, p Params, allowedSort []string) (Result, error) {
	filtered := filterByCategory(posts, p.Category, p.Categories)

	if p.Sort != "" {
		if !contains(allowedSort, p.Sort) {
			return Result{}, ErrInvalidSortField
		}
		direction := p.Direction
		if direction == "" {
			direction = "asc"
		}
		if direction != "asc" && direction != "desc" {
			return Result{}, ErrInvalidDirection
		}
		sortPosts(filtered, p.Sort, direction == "desc")
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Result{
		Page:       page,
		Limit:      limit,
		TotalPosts: len(filtered),
		Posts:      filtered[start:end],
	}, nil
}

// Search returns every post whose title, content or author contains q
// as a case-insensitive substring, in insertion order. An empty q is a
// validation failure.
func Search(posts []model.Post, q string) ([]model.Post, error) {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil, ErrEmptySearch
	}
	matches := []model.Post{}
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) ||
			strings.Contains(strings.ToLower(p.Author), needle) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Categories returns the distinct categories across the collection,
// first-seen order, skipping blanks.
func Categories(posts []model.Post) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range posts {
		key := strings.ToLower(p.Category)
		if p.Category == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p.Category)
	}
	return out
}

func filterByCategory(posts []model.Post, category, categories string) []model.Post {
	if category != "" {
		want := strings.ToLower(category)
		out := []model.Post{}
		for _, p := range posts {
			if strings.ToLower(p.Category) == want {
				out = append(out, p)
			}
		}
		return out
	}
	if categories != "" {
		want := map[string]bool{}
		for _, c := range strings.Split(categories, ",") {
			c = strings.ToLower(strings.TrimSpace(c))
			if c != "" {
				want[c] = true
			}
		}
		out := []model.Post{}
		for _, p := range posts {
			if want[strings.ToLower(p.Category)] {
				out = append(out, p)
			}
		}
		return out
	}
	// No filter still copies: sorting must not reorder the caller's slice.
	out := make([]model.Post, len(posts))
	copy(out, posts)
	return out
}

// sortPosts stable-sorts in place. Likes compares numerically; every
// other allow-listed field compares as a lower-cased string with
// missing values ranking as empty.
func sortPosts(posts []model.Post, field string, desc bool) {
	less := func(a, b model.Post) bool {
		if field == "likes" {
			return a.Likes < b.Likes
		}
		return textKey(a, field) < textKey(b, field)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if desc {
			return less(posts[j], posts[i])
		}
		return less(posts[i], posts[j])
	})
}

func textKey(p model.Post, field string) string {
	var v string
	switch field {
	case "title":
		v = p.Title
	case "author":
		v = p.Author
	case "content":
		v = p.Content
	case "date":
		v = p.Date
	case "updated":
		v = p.Updated
	}
	return strings.ToLower(v)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
