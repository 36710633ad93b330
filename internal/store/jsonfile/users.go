package jsonfile

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/quillhq/quill/internal/store"
)

// UserStore persists credentials as a JSON object mapping username to
// secret. Same monitor discipline as PostStore.
type UserStore struct {
	path string
	mu   sync.RWMutex
}

func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

func (s *UserStore) load() (map[string]string, error) {
	users := map[string]string{}
	if err := readInto(s.path, &users); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return users, nil
}

func (s *UserStore) Lookup(ctx context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users, err := s.load()
	if err != nil {
		return "", err
	}
	secret, ok := users[username]
	if !ok {
		return "", store.ErrNotFound
	}
	return secret, nil
}

func (s *UserStore) Insert(ctx context.Context, username, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; ok {
		return store.ErrUserExists
	}
	users[username] = secret
	return writeAtomic(s.path, users)
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}
