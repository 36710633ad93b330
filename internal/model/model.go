package model

import "time"

// DateLayout is the human-readable timestamp format stored in the
// date and updated fields of a post.
const DateLayout = "2006-01-02 15:04:05"

// Post is a single blog entry. IDs are assigned by the post store as
// max(existing)+1; Updated stays empty until the post is first edited.
type Post struct {
	ID       int    `json:"id"`
	Author   string `json:"author"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Likes    int    `json:"likes"`
	Updated  string `json:"updated,omitempty"`
}

// User is a stored credential. Secret is whatever the configured
// verifier produced: the raw password in legacy mode, a bcrypt hash
// in hardened mode.
type User struct {
	Username string
	Secret   string
}

// Session ties an issued token to a username. A zero ExpiresAt means
// the token never expires (legacy scheme).
type Session struct {
	Username  string
	ExpiresAt time.Time
}

type SiteStats struct {
	TotalUsers int `json:"total_users"`
	TotalPosts int `json:"total_posts"`
}
