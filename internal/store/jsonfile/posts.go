package jsonfile

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/quillhq/quill/internal/model"
	"github.com/quillhq/quill/internal/store"
)

// PostStore keeps the full post collection in a single JSON array on
// disk. The mutex makes the store a monitor: mutations hold the write
// lock across the whole load-modify-save cycle, which is what prevents
// the lost-update race between two concurrent writers.
type PostStore struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

func NewPostStore(path string) *PostStore {
	return &PostStore{path: path, now: time.Now}
}

func (s *PostStore) load() ([]model.Post, error) {
	var posts []model.Post
	if err := readInto(s.path, &posts); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Post{}, nil
		}
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) save(posts []model.Post) error {
	return writeAtomic(s.path, posts)
}

func (s *PostStore) All(ctx context.Context) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *PostStore) Get(ctx context.Context, id int) (model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts, err := s.load()
	if err != nil {
		return model.Post{}, err
	}
	i := store.IndexByID(posts, id)
	if i < 0 {
		return model.Post{}, store.ErrNotFound
	}
	return posts[i], nil
}

// Create assigns the next id and creation date, appends the post and
// persists the collection. The assigned fields are written back into
// the caller's post.
func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts, err := s.load()
	if err != nil {
		return err
	}
	post.ID = store.NextID(posts)
	post.Date = s.now().Format(model.DateLayout)
	posts = append(posts, *post)
	return s.save(posts)
}

func (s *PostStore) Update(ctx context.Context, id int, title, content, category string) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts, err := s.load()
	if err != nil {
		return model.Post{}, err
	}
	i := store.IndexByID(posts, id)
	if i < 0 {
		return model.Post{}, store.ErrNotFound
	}
	posts[i].Title = title
	posts[i].Content = content
	posts[i].Category = category
	posts[i].Updated = s.now().Format(model.DateLayout)
	if err := s.save(posts); err != nil {
		return model.Post{}, err
	}
	return posts[i], nil
}

func (s *PostStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts, err := s.load()
	if err != nil {
		return err
	}
	posts, removed := store.RemoveByID(posts, id)
	if !removed {
		return store.ErrNotFound
	}
	return s.save(posts)
}

func (s *PostStore) Like(ctx context.Context, id int) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts, err := s.load()
	if err != nil {
		return model.Post{}, err
	}
	i := store.IndexByID(posts, id)
	if i < 0 {
		return model.Post{}, store.ErrNotFound
	}
	posts[i].Likes++
	if err := s.save(posts); err != nil {
		return model.Post{}, err
	}
	return posts[i], nil
}
