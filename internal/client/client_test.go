package client_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"storyblog/internal/auth"
	"storyblog/internal/client"
	"storyblog/internal/config"
	httpapp "storyblog/internal/http"
	"storyblog/internal/store/sqlite"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(httpapp.NewServer(st, auth.NewService(st), config.Config{}, logger))
	t.Cleanup(srv.Close)

	return client.New(srv.URL)
}

func TestClientRoundtrip(t *testing.T) {
	c := newTestClient(t)

	user, err := c.Register("alice", "s3cret", "Alice", "Ames")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" || user.FirstName != "Alice" {
		t.Errorf("unexpected user: %+v", user)
	}

	// Register adopted the credentials; Login should now succeed.
	if _, err := c.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}

	post, err := c.CreatePost("Hello", "First post", client.Author{FirstName: "Alice", LastName: "Ames"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID == "" {
		t.Fatal("create post: empty id")
	}
	if post.Author != "Alice Ames" {
		t.Errorf("author = %q, want Alice Ames", post.Author)
	}

	posts, err := c.ListPosts()
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != post.ID {
		t.Errorf("unexpected post list: %+v", posts)
	}

	newTitle := "Hello again"
	if err := c.UpdatePost(post.ID, client.PostUpdate{Title: &newTitle}); err != nil {
		t.Fatalf("update post: %v", err)
	}
	got, err := c.GetPost(post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != "Hello again" {
		t.Errorf("title = %q, want Hello again", got.Title)
	}
	if got.Content != "First post" {
		t.Errorf("content = %q, want untouched", got.Content)
	}

	if err := c.DeletePost(post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := c.GetPost(post.ID); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestClientSentinelErrors(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.Register("alice", "s3cret", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.Register("alice", "other", "", ""); !errors.Is(err, client.ErrUsernameTaken) {
		t.Errorf("duplicate register: err = %v, want ErrUsernameTaken", err)
	}

	c.SetCredentials("alice", "wrong")
	if _, err := c.Login(); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("bad login: err = %v, want ErrUnauthorized", err)
	}
	if _, err := c.CreatePost("t", "c", client.Author{}); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("bad create: err = %v, want ErrUnauthorized", err)
	}

	c.SetCredentials("alice", "s3cret")
	if err := c.DeletePost("no-such-id"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("delete missing: err = %v, want ErrNotFound", err)
	}
}
