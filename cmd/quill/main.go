package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/client"
	"github.com/quillhq/quill/internal/config"
	httpapp "github.com/quillhq/quill/internal/http"
	"github.com/quillhq/quill/internal/model"
	"github.com/quillhq/quill/internal/rate"
	"github.com/quillhq/quill/internal/store/jsonfile"
)

// CLIConfig holds the CLI client configuration persisted to disk.
type CLIConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func main() {
	if len(os.Args) < 2 {
		runServer()
		return
	}

	cmd := os.Args[1]

	// Handle --help and -h before defaulting to server
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println("quill v0.1.0")
		return
	}

	if strings.HasPrefix(cmd, "-") {
		runServer()
		return
	}

	args := os.Args[2:]

	switch cmd {
	case "server", "serve":
		runServer()
	case "register":
		cmdRegister(args)
	case "login", "auth":
		cmdLogin(args)
	case "post", "submit":
		cmdPost(args)
	case "update", "edit":
		cmdUpdate(args)
	case "delete", "rm":
		cmdDelete(args)
	case "like":
		cmdLike(args)
	case "read", "list":
		cmdRead(args)
	case "search":
		cmdSearch(args)
	case "categories":
		cmdCategories(args)
	case "status", "whoami":
		cmdStatus(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`quill - Blog platform with a versioned JSON API

Usage: quill <command> [options]

Quick Start:
  quill register --user alice --pass secret         # Register + login
  quill post --title "Hello" --content "First post" --category general

Client Commands:
  register            Create a user and log in (one command)
  login               Log in (when token expires)
  post                Publish a new post
  update              Edit one of your posts
  delete              Delete one of your posts
  like                Like a post
  read                Read posts (filtered, sorted, paginated)
  search              Search posts by title, content or author
  categories          List categories in use
  status              Show current config and token status

Server:
  server              Start the Quill server (default if no command)

Examples:
  quill register --user alice --pass secret
  quill post --title "Go tips" --content "Use gofmt." --category programming
  quill read --sort date --direction desc --limit 10
  quill read --post 3                               # View one post
  quill search --q gofmt
  quill like --post 3

Environment Variables (server):
  QUILL_ADDR            Listen address (default: :8080)
  QUILL_POSTS           Posts file path (default: blog_posts.json)
  QUILL_USERS           Users file path (default: users.json)
  QUILL_HASH_PASSWORDS  Store bcrypt hashes instead of plaintext
  QUILL_OPAQUE_TOKENS   Issue random expiring tokens instead of legacy ones
  QUILL_TOKEN_TTL       Opaque token lifetime (default: 24h)`)
}

// ============================================================================
// SERVER
// ============================================================================

func runServer() {
	cfg := config.Load()

	posts := jsonfile.NewPostStore(cfg.PostsPath)
	users := jsonfile.NewUserStore(cfg.UsersPath)

	var verifier auth.CredentialVerifier = auth.PlainVerifier{}
	if cfg.HashPasswords {
		verifier = auth.BcryptVerifier{}
	}
	var issuer auth.TokenIssuer = auth.LegacyIssuer{}
	if cfg.OpaqueTokens {
		issuer = auth.RandomIssuer{TTL: cfg.TokenTTL}
	}
	authSvc := auth.NewService(users, auth.NewSessionMap(), verifier, issuer)

	limiter := rate.NewMemory()
	server, err := httpapp.NewServer(posts, users, authSvc, limiter, cfg)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}
	handler := httpapp.Chain(server, httpapp.RequestLogger, httpapp.CORS)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("quill listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

// ============================================================================
// CLIENT COMMANDS
// ============================================================================

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	user := fs.String("user", "", "Username (required)")
	pass := fs.String("pass", "", "Password (required)")
	url := fs.String("url", "http://localhost:8080", "Quill server URL")
	fs.Parse(args)

	if *user == "" || *pass == "" {
		fmt.Fprintln(os.Stderr, "Error: --user and --pass are required")
		fmt.Fprintln(os.Stderr, "Usage: quill register --user <name> --pass <password>")
		os.Exit(1)
	}

	c := client.New(*url)

	err := c.Register(*user, *pass)
	alreadyRegistered := errors.Is(err, client.ErrAlreadyRegistered)
	if err != nil && !alreadyRegistered {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if alreadyRegistered {
		fmt.Printf("✓ Already registered as '%s'\n", *user)
	} else {
		fmt.Printf("✓ Registered '%s'\n", *user)
	}

	if err := c.Login(*user, *pass); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: auto-login failed: %v\n", err)
		fmt.Println("Run 'quill login' to authenticate")
		return
	}

	cfg := CLIConfig{
		BaseURL:  strings.TrimSuffix(*url, "/"),
		Username: *user,
		Token:    c.Token,
	}
	if err := saveCLIConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Logged in as '%s'\n", *user)
	fmt.Println("\nReady to post! Example:")
	fmt.Println("  quill post --title \"Hello Quill\" --content \"My first post\" --category general")
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "Username (defaults to saved username)")
	pass := fs.String("pass", "", "Password (required)")
	url := fs.String("url", "", "Quill server URL (defaults to saved URL)")
	fs.Parse(args)

	cfg, _ := loadCLIConfig()
	if *user == "" {
		*user = cfg.Username
	}
	if *url == "" {
		*url = cfg.BaseURL
	}
	if *url == "" {
		*url = "http://localhost:8080"
	}

	if *user == "" || *pass == "" {
		fmt.Fprintln(os.Stderr, "Error: --user and --pass are required")
		fmt.Fprintln(os.Stderr, "Usage: quill login --user <name> --pass <password>")
		os.Exit(1)
	}

	c := client.New(*url)
	if err := c.Login(*user, *pass); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg = CLIConfig{
		BaseURL:  strings.TrimSuffix(*url, "/"),
		Username: *user,
		Token:    c.Token,
	}
	if err := saveCLIConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Logged in as '%s'\n", *user)
}

func cmdPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	title := fs.String("title", "", "Post title (required)")
	content := fs.String("content", "", "Post content (required)")
	category := fs.String("category", "", "Post category (required)")
	fs.Parse(args)

	if *title == "" || *content == "" || *category == "" {
		fmt.Fprintln(os.Stderr, "Error: --title, --content and --category are required")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	post, err := c.CreatePost(*title, *content, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Posted: %s\n", post.Title)
	fmt.Printf("  ID: %d\n", post.ID)
}

func cmdUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.Int("post", 0, "Post ID (required)")
	title := fs.String("title", "", "New title (required)")
	content := fs.String("content", "", "New content (required)")
	category := fs.String("category", "", "New category (required)")
	fs.Parse(args)

	if *id == 0 || *title == "" || *content == "" || *category == "" {
		fmt.Fprintln(os.Stderr, "Error: --post, --title, --content and --category are required")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	post, err := c.UpdatePost(*id, *title, *content, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Updated post %d\n", post.ID)
	fmt.Printf("  Updated: %s\n", post.Updated)
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int("post", 0, "Post ID to delete")
	fs.Parse(args)

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "Error: --post is required")
		fmt.Fprintln(os.Stderr, "Usage: quill delete --post <id>")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := c.DeletePost(*id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted post %d\n", *id)
}

func cmdLike(args []string) {
	fs := flag.NewFlagSet("like", flag.ExitOnError)
	id := fs.Int("post", 0, "Post ID to like")
	fs.Parse(args)

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "Error: --post is required")
		fmt.Fprintln(os.Stderr, "Usage: quill like --post <id>")
		os.Exit(1)
	}

	c := client.New(loadBaseURL())
	post, err := c.LikePost(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Liked post %d (%d likes)\n", post.ID, post.Likes)
}

func cmdRead(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	sort := fs.String("sort", "", "Sort: title, author, content, likes, date, updated")
	direction := fs.String("direction", "", "Direction: asc, desc")
	category := fs.String("category", "", "Filter by category")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", 5, "Posts per page")
	postID := fs.Int("post", 0, "Get a specific post")
	fs.Parse(args)

	c := client.New(loadBaseURL())

	if *postID != 0 {
		post, err := c.GetPost(*postID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printPost(*post)
		return
	}

	result, err := c.ListPosts(client.ListOptions{
		Sort:      *sort,
		Direction: *direction,
		Category:  *category,
		Page:      *page,
		Limit:     *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nQuill — page %d of %d posts\n\n", result.Page, result.TotalPosts)
	for _, p := range result.Posts {
		fmt.Printf("%d. %s [%s]\n", p.ID, p.Title, p.Category)
		fmt.Printf("   by %s | %d likes | %s\n\n", p.Author, p.Likes, p.Date)
	}
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q := fs.String("q", "", "Search term (required)")
	fs.Parse(args)

	if *q == "" {
		fmt.Fprintln(os.Stderr, "Error: --q is required")
		fmt.Fprintln(os.Stderr, "Usage: quill search --q <term>")
		os.Exit(1)
	}

	c := client.New(loadBaseURL())
	posts, err := c.SearchPosts(*q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(posts) == 0 {
		fmt.Printf("No posts found matching '%s'\n", *q)
		return
	}
	fmt.Printf("\n%d posts matching '%s':\n\n", len(posts), *q)
	for _, p := range posts {
		fmt.Printf("%d. %s [%s] by %s\n", p.ID, p.Title, p.Category, p.Author)
	}
}

func cmdCategories(args []string) {
	c := client.New(loadBaseURL())
	categories, err := c.GetCategories()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(categories) == 0 {
		fmt.Println("No categories yet")
		return
	}
	for _, cat := range categories {
		fmt.Println(cat)
	}
}

func cmdStatus(args []string) {
	cfg, err := loadCLIConfig()
	if err != nil {
		fmt.Println("Status: Not logged in")
		fmt.Println("\nRun: quill register --user <name> --pass <password>")
		return
	}

	fmt.Printf("User:   %s\n", cfg.Username)
	fmt.Printf("Server: %s\n", cfg.BaseURL)

	if cfg.Token == "" {
		fmt.Println("Token:  Not authenticated")
		fmt.Println("\nRun: quill login --pass <password>")
		return
	}

	c := client.New(cfg.BaseURL)
	c.Token = cfg.Token
	if _, err := c.GetStats(); err != nil {
		fmt.Println("Token:  Present (server unreachable or token stale)")
		return
	}
	fmt.Println("Token:  Present")
}

// ============================================================================
// HELPERS
// ============================================================================

func printPost(p model.Post) {
	fmt.Printf("\n%s\n", p.Title)
	fmt.Printf("  by %s | %s | %d likes | %s\n", p.Author, p.Category, p.Likes, p.Date)
	if p.Updated != "" {
		fmt.Printf("  updated %s\n", p.Updated)
	}
	fmt.Printf("\n  %s\n", p.Content)
}

func quillDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quill")
}

func cliConfigPath() string {
	return filepath.Join(quillDir(), "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return CLIConfig{}, errors.New("not logged in")
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	if err := os.MkdirAll(quillDir(), 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(cliConfigPath(), data, 0600)
}

func loadBaseURL() string {
	cfg, _ := loadCLIConfig()
	if cfg.BaseURL == "" {
		return "http://localhost:8080"
	}
	return cfg.BaseURL
}

func loadAuthenticatedClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, errors.New("not authenticated - run 'quill login'")
	}

	c := client.New(cfg.BaseURL)
	c.Token = cfg.Token
	return c, nil
}
