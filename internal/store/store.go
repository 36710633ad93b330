package store

import (
	"context"
	"errors"

	"github.com/quillhq/quill/internal/model"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
	ErrCorrupt    = errors.New("backing data corrupted")
)

// PostStore owns the ordered post collection. Implementations must be
// safe for concurrent use: a mutation spans a full load-modify-save
// cycle, so the store serializes writers internally.
type PostStore interface {
	All(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id int) (model.Post, error)
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, id int, title, content, category string) (model.Post, error)
	Delete(ctx context.Context, id int) error
	Like(ctx context.Context, id int) (model.Post, error)
}

// UserStore persists username/secret pairs. Secrets are opaque to the
// store; the auth layer decides whether they are plaintext or hashed.
type UserStore interface {
	Lookup(ctx context.Context, username string) (string, error)
	Insert(ctx context.Context, username, secret string) error
	Count(ctx context.Context) (int, error)
}

// NextID returns max(existing ids)+1, or 1 for an empty collection.
// Not transactional: callers must hold the store's write lock for the
// whole load-assign-save cycle or two writers can mint the same id.
func NextID(posts []model.Post) int {
	max := 0
	for _, p := range posts {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

// RemoveByID returns the sequence without the post carrying id, and
// whether anything was removed. Order of survivors is preserved.
func RemoveByID(posts []model.Post, id int) ([]model.Post, bool) {
	out := make([]model.Post, 0, len(posts))
	removed := false
	for _, p := range posts {
		if p.ID == id {
			removed = true
			continue
		}
		out = append(out, p)
	}
	return out, removed
}

// IndexByID returns the position of the post carrying id, or -1.
func IndexByID(posts []model.Post, id int) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}
