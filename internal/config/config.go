package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string
	PostsPath string
	UsersPath string

	// HashPasswords and OpaqueTokens switch the auth layer off the
	// legacy scheme (plaintext secrets, token==username) onto bcrypt
	// and random tokens with TokenTTL.
	HashPasswords bool
	OpaqueTokens  bool
	TokenTTL      time.Duration

	RateLimits RateLimits
	V1, V2     APIVersion
}

type RateLimits struct {
	AuthPerMinute  int
	WritePerMinute int
	LikePerMinute  int
}

// APIVersion captures what differs between /api/v1 and /api/v2: the
// sort-field allow-list, whether mutations check post ownership, and
// whether an empty search result is reported as 404 (legacy) or as an
// empty 200 list.
type APIVersion struct {
	Name           string
	SortFields     []string
	OwnershipCheck bool
	SearchNotFound bool
}

func Load() Config {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	addr := envString("QUILL_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}

	return Config{
		Addr:          addr,
		PostsPath:     envString("QUILL_POSTS", "blog_posts.json"),
		UsersPath:     envString("QUILL_USERS", "users.json"),
		HashPasswords: envBool("QUILL_HASH_PASSWORDS", false),
		OpaqueTokens:  envBool("QUILL_OPAQUE_TOKENS", false),
		TokenTTL:      envDuration("QUILL_TOKEN_TTL", 24*time.Hour),
		RateLimits: RateLimits{
			AuthPerMinute:  envInt("QUILL_RL_AUTH_PER_MIN", 5),
			WritePerMinute: envInt("QUILL_RL_WRITE_PER_MIN", 30),
			LikePerMinute:  envInt("QUILL_RL_LIKE_PER_MIN", 60),
		},
		V1: APIVersion{
			Name:           "v1",
			SortFields:     []string{"title", "content"},
			OwnershipCheck: false,
			SearchNotFound: true,
		},
		V2: APIVersion{
			Name:           "v2",
			SortFields:     []string{"title", "author", "content", "likes", "date", "updated"},
			OwnershipCheck: true,
			SearchNotFound: false,
		},
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
