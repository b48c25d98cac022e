// Command seed populates a Storyblog database with demo data for local
// development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"storyblog/internal/auth"
	"storyblog/internal/model"
	"storyblog/internal/store"
	"storyblog/internal/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "storyblog.db", "Path to the sqlite database")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := sqlite.Open(*dbPath)
	if err != nil {
		logger.Error("failed to open db", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	if err := seed(ctx, st); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("Seeded demo user 'demo' (password 'demo1234') and sample posts.")
}

func seed(ctx context.Context, st store.Store) error {
	authSvc := auth.NewService(st)
	if _, err := authSvc.Register(ctx, "demo", "demo1234", "Demo", "Author"); err != nil && !errors.Is(err, store.ErrDuplicateUsername) {
		return err
	}

	author := model.Author{FirstName: "Demo", LastName: "Author"}
	posts := []model.Post{
		{
			Author:  author,
			Title:   "Welcome to Storyblog",
			Content: "This post was created by the seed tool. Delete it when you are done exploring.",
			Created: time.Now().Add(-48 * time.Hour),
		},
		{
			Author:  author,
			Title:   "Writing your first post",
			Content: "POST /posts with your credentials, a title, content, and an author block.",
			Created: time.Now().Add(-24 * time.Hour),
		},
		{
			Author:  author,
			Title:   "Editing and deleting",
			Content: "PUT and DELETE on /posts/{id} both require credentials in the request body.",
			Created: time.Now(),
		},
	}
	for i := range posts {
		if err := st.CreatePost(ctx, &posts[i]); err != nil {
			return err
		}
	}
	return nil
}
