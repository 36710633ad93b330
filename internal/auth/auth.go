// Package auth implements username/password registration and login with
// bearer-token sessions. The credential scheme and the token scheme are
// both pluggable: the legacy pair (plaintext compare, token==username)
// reproduces the historical behavior, while bcrypt secrets and opaque
// random tokens with a TTL can be swapped in from config without
// touching any caller.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/quillhq/quill/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthRequired       = errors.New("authentication required")
)

// CredentialVerifier decides how passwords are stored and checked.
type CredentialVerifier interface {
	// Encode turns a password into the secret persisted by the user store.
	Encode(password string) (string, error)
	// Verify checks a login password against a stored secret.
	Verify(secret, password string) bool
}

// PlainVerifier stores and compares passwords verbatim. This is the
// legacy scheme; it is the default only because the system reproduces
// the original's behavior.
type PlainVerifier struct{}

func (PlainVerifier) Encode(password string) (string, error) { return password, nil }
func (PlainVerifier) Verify(secret, password string) bool    { return secret == password }

// BcryptVerifier stores bcrypt hashes.
type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Encode(password string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (v BcryptVerifier) Verify(secret, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
}

// TokenIssuer mints token values for a freshly logged-in user.
type TokenIssuer interface {
	Issue(username string) (token string, expiresAt time.Time, err error)
}

// LegacyIssuer issues the username itself as the token, never expiring.
type LegacyIssuer struct{}

func (LegacyIssuer) Issue(username string) (string, time.Time, error) {
	return username, time.Time{}, nil
}

// RandomIssuer issues an opaque URL-safe random token with a TTL.
type RandomIssuer struct {
	TTL time.Duration
}

func (r RandomIssuer) Issue(username string) (string, time.Time, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	return base64.RawURLEncoding.EncodeToString(b), time.Now().Add(r.TTL), nil
}

// Service is the authentication gate in front of the protected routes.
type Service struct {
	users    store.UserStore
	sessions *SessionMap
	verifier CredentialVerifier
	issuer   TokenIssuer
}

func NewService(users store.UserStore, sessions *SessionMap, verifier CredentialVerifier, issuer TokenIssuer) *Service {
	return &Service{users: users, sessions: sessions, verifier: verifier, issuer: issuer}
}

// Register inserts a new credential. store.ErrUserExists comes back
// untouched so the handler can map it to a 400.
func (s *Service) Register(ctx context.Context, username, password string) error {
	secret, err := s.verifier.Encode(password)
	if err != nil {
		return err
	}
	return s.users.Insert(ctx, username, secret)
}

// Login checks the credential and, on success, issues a token and
// records the live session. Absent user and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	secret, err := s.users.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !s.verifier.Verify(secret, password) {
		return "", ErrInvalidCredentials
	}
	token, expiresAt, err := s.issuer.Issue(username)
	if err != nil {
		return "", err
	}
	s.sessions.Put(token, username, expiresAt)
	return token, nil
}

// Authenticate resolves an Authorization header value to a username.
// Both "Bearer <token>" and a bare token are accepted; the bare form is
// legacy compatibility, the prefixed form is canonical.
func (s *Service) Authenticate(ctx context.Context, header string) (string, error) {
	token := TrimBearer(header)
	if token == "" {
		return "", ErrAuthRequired
	}
	username, ok := s.sessions.Get(token)
	if !ok {
		return "", ErrAuthRequired
	}
	return username, nil
}

// TrimBearer strips an optional "Bearer " prefix from an Authorization
// header value.
func TrimBearer(header string) string {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return header
}
