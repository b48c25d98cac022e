package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyblog/internal/auth"
	"storyblog/internal/config"
	"storyblog/internal/store"
	"storyblog/internal/store/sqlite"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(st, auth.NewService(st), config.Config{}, logger), st
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerUser(t *testing.T, srv *Server, username, password, first, last string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/users", map[string]string{
		"username":  username,
		"password":  password,
		"firstName": first,
		"lastName":  last,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
}

func TestRegisterUser(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/users", map[string]string{
		"username":  "alice",
		"password":  "s3cret",
		"firstName": "Alice",
		"lastName":  "Ames",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body = %s", rec.Code, rec.Body.String())
	}

	var got map[string]any
	decodeBody(t, rec, &got)
	if got["username"] != "alice" || got["firstName"] != "Alice" || got["lastName"] != "Ames" {
		t.Errorf("unexpected user payload: %v", got)
	}
	// The hash must never leave the server.
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response leaks password material: %s", rec.Body.String())
	}
}

func TestRegisterUserValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing username", map[string]string{"password": "s3cret"}},
		{"blank username", map[string]string{"username": "   ", "password": "s3cret"}},
		{"missing password", map[string]string{"username": "alice"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/users", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	rec := doJSON(t, srv, http.MethodPost, "/api/users", map[string]string{
		"username": "alice",
		"password": "other",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}
}

func TestProtected(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	rec := doJSON(t, srv, http.MethodPost, "/api/protected", map[string]string{
		"username": "alice",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	decodeBody(t, rec, &got)
	if got["username"] != "alice" {
		t.Errorf("username = %v, want alice", got["username"])
	}

	for _, tc := range []struct {
		name string
		body map[string]string
	}{
		{"wrong password", map[string]string{"username": "alice", "password": "wrong"}},
		{"unknown user", map[string]string{"username": "nobody", "password": "s3cret"}},
		{"empty credentials", map[string]string{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/protected", tc.body)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreatePostRequiresAuth(t *testing.T) {
	srv, st := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]any{
		"username": "alice",
		"password": "wrong",
		"title":    "Sneaky",
		"content":  "should not persist",
		"author":   map[string]string{"firstName": "Alice", "lastName": "Ames"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body = %s", rec.Code, rec.Body.String())
	}

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("rejected request persisted %d post(s)", len(posts))
	}
}

func TestCreatePostValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	author := map[string]string{"firstName": "Alice", "lastName": "Ames"}
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"username": "alice", "password": "s3cret", "content": "c", "author": author}},
		{"missing content", map[string]any{"username": "alice", "password": "s3cret", "title": "t", "author": author}},
		{"missing author", map[string]any{"username": "alice", "password": "s3cret", "title": "t", "content": "c"}},
		{"blank title", map[string]any{"username": "alice", "password": "s3cret", "title": "  ", "content": "c", "author": author}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/posts", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPostCRUDFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	// Create.
	rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]any{
		"username": "alice",
		"password": "s3cret",
		"title":    "First post",
		"content":  "Hello world",
		"author":   map[string]string{"firstName": "Alice", "lastName": "Ames"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	decodeBody(t, rec, &created)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("create: no id in response %v", created)
	}
	if created["author"] != "Alice Ames" {
		t.Errorf("author = %v, want flattened display name", created["author"])
	}

	// Read back.
	rec = doJSON(t, srv, http.MethodGet, "/posts/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	var fetched map[string]any
	decodeBody(t, rec, &fetched)
	if fetched["title"] != "First post" || fetched["content"] != "Hello world" {
		t.Errorf("unexpected post payload: %v", fetched)
	}

	// List.
	rec = doJSON(t, srv, http.MethodGet, "/posts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var list []map[string]any
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("list: got %d posts, want 1", len(list))
	}

	// Partial update: only the title changes.
	rec = doJSON(t, srv, http.MethodPut, "/posts/"+id, map[string]any{
		"username": "alice",
		"password": "s3cret",
		"id":       id,
		"title":    "Updated title",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodGet, "/posts/"+id, nil)
	decodeBody(t, rec, &fetched)
	if fetched["title"] != "Updated title" {
		t.Errorf("title = %v, want Updated title", fetched["title"])
	}
	if fetched["content"] != "Hello world" {
		t.Errorf("content = %v, want untouched", fetched["content"])
	}

	// Delete.
	rec = doJSON(t, srv, http.MethodDelete, "/posts/"+id, map[string]string{
		"username": "alice",
		"password": "s3cret",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodGet, "/posts/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestListPostsEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/posts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list = %q, want []", got)
	}
}

func TestUpdatePostIDMismatch(t *testing.T) {
	srv, st := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]any{
		"username": "alice",
		"password": "s3cret",
		"title":    "Original",
		"content":  "body",
		"author":   map[string]string{"firstName": "Alice", "lastName": "Ames"},
	})
	var created map[string]any
	decodeBody(t, rec, &created)
	id := created["id"].(string)

	for _, tc := range []struct {
		name   string
		bodyID string
	}{
		{"different id", "some-other-id"},
		{"missing id", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			body := map[string]any{
				"username": "alice",
				"password": "s3cret",
				"title":    "Hijacked",
			}
			if tc.bodyID != "" {
				body["id"] = tc.bodyID
			}
			rec := doJSON(t, srv, http.MethodPut, "/posts/"+id, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
		})
	}

	// The stored post must be unchanged.
	post, err := st.GetPost(context.Background(), id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post.Title != "Original" {
		t.Errorf("title = %q, want Original", post.Title)
	}
}

func TestUpdateAndDeleteMissingPost(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice", "s3cret", "Alice", "Ames")

	rec := doJSON(t, srv, http.MethodPut, "/posts/no-such-id", map[string]any{
		"username": "alice",
		"password": "s3cret",
		"id":       "no-such-id",
		"title":    "whatever",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing: status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/posts/no-such-id", map[string]string{
		"username": "alice",
		"password": "s3cret",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: status = %d, want 404", rec.Code)
	}
}

func TestDeletePostEmptyBodyUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/posts/some-id", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/users", map[string]any{
		"username": "alice",
		"password": "s3cret",
		"isAdmin":  true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUnmatchedRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/api/users"},
		{http.MethodDelete, "/api/protected"},
		{http.MethodGet, "/posts/some-id/extra"},
		{http.MethodPatch, "/posts/some-id"},
	} {
		rec := doJSON(t, srv, tc.method, tc.path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, rec.Code)
		}
		var got map[string]any
		decodeBody(t, rec, &got)
		if got["message"] != "Not Found" {
			t.Errorf("%s %s: body = %v, want Not Found message", tc.method, tc.path, got)
		}
	}
}

func TestOpenAPIJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/openapi.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var doc map[string]any
	decodeBody(t, rec, &doc)
	if doc["swagger"] != "2.0" {
		t.Errorf("swagger version = %v, want 2.0", doc["swagger"])
	}
	if _, ok := doc["paths"].(map[string]any)["/posts"]; !ok {
		t.Errorf("spec is missing the /posts path")
	}
}
