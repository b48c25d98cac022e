// Package client provides a Go client for the Storyblog API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
)

// Client is a Storyblog API client. Credentials ride along in the body of
// every mutating request; the server holds no session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Username   string
	Password   string
}

// User mirrors the serialized user the server returns.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Author is the name snapshot embedded in a post.
type Author struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Post mirrors the serialized post the server returns; Author is already
// flattened to a display name.
type Post struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// PostUpdate carries the fields of a partial update. Nil fields are left
// out of the request entirely.
type PostUpdate struct {
	Title   *string
	Content *string
	Author  *Author
}

// New creates a new Storyblog client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetCredentials sets the username/password sent with mutating requests.
func (c *Client) SetCredentials(username, password string) {
	c.Username = username
	c.Password = password
}

// Register creates an account and adopts its credentials on success.
func (c *Client) Register(username, password, firstName, lastName string) (User, error) {
	body := map[string]string{
		"username":  username,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
	}
	var user User
	status, err := c.do(http.MethodPost, "/api/users", body, &user)
	if err != nil {
		return User{}, err
	}
	switch status {
	case http.StatusCreated:
		c.SetCredentials(username, password)
		return user, nil
	case http.StatusUnprocessableEntity:
		return User{}, ErrUsernameTaken
	default:
		return User{}, fmt.Errorf("register failed (%d)", status)
	}
}

// Login probes the credentials without side effect and returns the user.
func (c *Client) Login() (User, error) {
	body := map[string]string{"username": c.Username, "password": c.Password}
	var user User
	status, err := c.do(http.MethodPost, "/api/protected", body, &user)
	if err != nil {
		return User{}, err
	}
	if status == http.StatusUnauthorized {
		return User{}, ErrUnauthorized
	}
	if status != http.StatusOK {
		return User{}, fmt.Errorf("login failed (%d)", status)
	}
	return user, nil
}

// ListPosts fetches every post.
func (c *Client) ListPosts() ([]Post, error) {
	var posts []Post
	status, err := c.do(http.MethodGet, "/posts", nil, &posts)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list posts failed (%d)", status)
	}
	return posts, nil
}

// GetPost fetches a single post by id.
func (c *Client) GetPost(id string) (Post, error) {
	var post Post
	status, err := c.do(http.MethodGet, "/posts/"+id, nil, &post)
	if err != nil {
		return Post{}, err
	}
	if status == http.StatusNotFound {
		return Post{}, ErrNotFound
	}
	if status != http.StatusOK {
		return Post{}, fmt.Errorf("get post failed (%d)", status)
	}
	return post, nil
}

// CreatePost creates a post under the client's credentials.
func (c *Client) CreatePost(title, content string, author Author) (Post, error) {
	body := map[string]any{
		"username": c.Username,
		"password": c.Password,
		"title":    title,
		"content":  content,
		"author":   author,
	}
	var post Post
	status, err := c.do(http.MethodPost, "/posts", body, &post)
	if err != nil {
		return Post{}, err
	}
	switch status {
	case http.StatusCreated:
		return post, nil
	case http.StatusUnauthorized:
		return Post{}, ErrUnauthorized
	default:
		return Post{}, fmt.Errorf("create post failed (%d)", status)
	}
}

// UpdatePost partially updates a post; absent fields stay untouched.
func (c *Client) UpdatePost(id string, upd PostUpdate) error {
	body := map[string]any{
		"username": c.Username,
		"password": c.Password,
		"id":       id,
	}
	if upd.Title != nil {
		body["title"] = *upd.Title
	}
	if upd.Content != nil {
		body["content"] = *upd.Content
	}
	if upd.Author != nil {
		body["author"] = *upd.Author
	}
	status, err := c.do(http.MethodPut, "/posts/"+id, body, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("update post failed (%d)", status)
	}
}

// DeletePost deletes a post by id.
func (c *Client) DeletePost(id string) error {
	body := map[string]string{"username": c.Username, "password": c.Password}
	status, err := c.do(http.MethodDelete, "/posts/"+id, body, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("delete post failed (%d)", status)
	}
}

// do performs a request and decodes a JSON response body into dest when the
// status carries one. The status code is always returned so callers can map
// it to sentinel errors.
func (c *Client) do(method, path string, body, dest any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if dest != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
