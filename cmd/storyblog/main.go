package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"storyblog/internal/auth"
	"storyblog/internal/client"
	"storyblog/internal/config"
	httpapp "storyblog/internal/http"
	"storyblog/internal/store/sqlite"
)

// CLIConfig holds the CLI client configuration persisted to disk.
type CLIConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func main() {
	if len(os.Args) < 2 {
		runServer()
		return
	}

	cmd := os.Args[1]

	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println("storyblog v0.1.0")
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
	case "whoami", "status":
		cmdWhoami(args)
	case "post", "submit":
		cmdPost(args)
	case "read", "list":
		cmdRead(args)
	case "edit":
		cmdEdit(args)
	case "delete", "rm":
		cmdDelete(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`storyblog - blog post API server and client

Usage: storyblog <command> [options]

Client Commands:
  register            Create an account and save credentials
  whoami              Verify saved credentials against the server
  post                Publish a new post
  read                Read posts (or one post with --id)
  edit                Update a post's title, content, or author
  delete              Delete a post

Server:
  server              Start the Storyblog server (default if no command)

Examples:
  storyblog register --username alice --password s3cret --first Alice --last Ames
  storyblog post --title "Hello" --content "First post"
  storyblog read --id 4f8a...
  storyblog edit --id 4f8a... --title "Hello again"

Environment Variables (server):
  STORYBLOG_ADDR      Listen address (default: :8080)
  STORYBLOG_DB        Database path (default: storyblog.db)`)
}

// ============================================================================
// SERVER
// ============================================================================

func runServer() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open db", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	authSvc := auth.NewService(st)
	server := httpapp.NewServer(st, authSvc, cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("storyblog listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

// ============================================================================
// CLIENT COMMANDS
// ============================================================================

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "Password (required)")
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	url := fs.String("url", "http://localhost:8080", "Storyblog server URL")
	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Error: --username and --password are required")
		os.Exit(1)
	}

	c := client.New(strings.TrimSuffix(*url, "/"))
	user, err := c.Register(*username, *password, *first, *last)
	if errors.Is(err, client.ErrUsernameTaken) {
		// Existing account; keep the credentials if they still verify.
		c.SetCredentials(*username, *password)
		if user, err = c.Login(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: username taken and credentials do not verify\n")
			os.Exit(1)
		}
		fmt.Printf("Already registered as '%s'\n", user.Username)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	} else {
		fmt.Printf("Registered '%s'\n", user.Username)
	}

	cfg := CLIConfig{BaseURL: c.BaseURL, Username: *username, Password: *password}
	if err := saveCLIConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Credentials saved to %s\n", cliConfigPath())
}

func cmdWhoami(args []string) {
	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	user, err := c.Login()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	fmt.Printf("Authenticated as %s (%s)\n", user.Username, name)
}

func cmdPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	title := fs.String("title", "", "Post title (required)")
	content := fs.String("content", "", "Post content")
	first := fs.String("first", "", "Author first name (defaults to your account's)")
	last := fs.String("last", "", "Author last name (defaults to your account's)")
	fs.Parse(args)

	if *title == "" {
		fmt.Fprintln(os.Stderr, "Error: --title is required")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	author := client.Author{FirstName: *first, LastName: *last}
	if author.FirstName == "" && author.LastName == "" {
		if user, err := c.Login(); err == nil {
			author.FirstName = user.FirstName
			author.LastName = user.LastName
		}
	}

	post, err := c.CreatePost(*title, *content, author)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Posted: %s\n", post.Title)
	fmt.Printf("  ID: %s\n", post.ID)
}

func cmdRead(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	id := fs.String("id", "", "Read a single post by id")
	url := fs.String("url", "", "Storyblog server URL (defaults to saved config)")
	fs.Parse(args)

	baseURL := *url
	if baseURL == "" {
		if cfg, err := loadCLIConfig(); err == nil {
			baseURL = cfg.BaseURL
		} else {
			baseURL = "http://localhost:8080"
		}
	}
	c := client.New(baseURL)

	if *id != "" {
		post, err := c.GetPost(*id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s\n", post.Title)
		fmt.Printf("  by %s on %s\n\n", post.Author, post.Created.Format("2006-01-02"))
		if post.Content != "" {
			fmt.Printf("  %s\n", post.Content)
		}
		return
	}

	posts, err := c.ListPosts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(posts) == 0 {
		fmt.Println("No posts yet")
		return
	}
	for i, p := range posts {
		fmt.Printf("%d. %s\n", i+1, p.Title)
		fmt.Printf("   by %s | %s | %s\n\n", p.Author, p.Created.Format("2006-01-02"), p.ID)
	}
}

func cmdEdit(args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "Post id (required)")
	title := fs.String("title", "", "New title")
	content := fs.String("content", "", "New content")
	first := fs.String("first", "", "New author first name")
	last := fs.String("last", "", "New author last name")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}

	var upd client.PostUpdate
	if flagPassed(fs, "title") {
		upd.Title = title
	}
	if flagPassed(fs, "content") {
		upd.Content = content
	}
	if flagPassed(fs, "first") || flagPassed(fs, "last") {
		upd.Author = &client.Author{FirstName: *first, LastName: *last}
	}
	if upd.Title == nil && upd.Content == nil && upd.Author == nil {
		fmt.Fprintln(os.Stderr, "Error: nothing to update")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := c.UpdatePost(*id, upd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated post %s\n", *id)
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Post id to delete (required)")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
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
	fmt.Printf("Deleted post %s\n", *id)
}

// ============================================================================
// HELPERS
// ============================================================================

func flagPassed(fs *flag.FlagSet, name string) bool {
	passed := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

func cliConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".storyblog", "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return CLIConfig{}, errors.New("not registered - run 'storyblog register' first")
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	path := cliConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(path, data, 0600)
}

func loadAuthenticatedClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	c := client.New(cfg.BaseURL)
	c.SetCredentials(cfg.Username, cfg.Password)
	return c, nil
}
