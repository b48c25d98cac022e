package model

import (
	"strings"
	"time"
)

// User is a registered account. PasswordHash holds a bcrypt hash, never a
// plaintext password, and is excluded from every serialized form.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// SerializedUser is the externally visible projection of a User.
type SerializedUser struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (u User) Serialize() SerializedUser {
	return SerializedUser{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// Author is the denormalized name snapshot embedded in a Post. It is not a
// reference to a User account.
type Author struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName flattens the author to a single display string.
func (a Author) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Post is a stored blog post.
type Post struct {
	ID      string
	Author  Author
	Title   string
	Content string
	Created time.Time
}

// SerializedPost is the externally visible projection of a Post, with the
// embedded author flattened to its display name.
type SerializedPost struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

func (p Post) Serialize() SerializedPost {
	return SerializedPost{
		ID:      p.ID,
		Author:  p.Author.DisplayName(),
		Title:   p.Title,
		Content: p.Content,
		Created: p.Created,
	}
}
