package store

import (
	"context"
	"errors"

	"storyblog/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("duplicate username")
)

// PostUpdate is a partial update. Nil fields are left untouched.
type PostUpdate struct {
	Title   *string
	Content *string
	Author  *model.Author
}

type Store interface {
	UserStore
	PostStore
	Close() error
}

type UserStore interface {
	// CreateUser inserts a user and assigns its ID. A username collision
	// returns ErrDuplicateUsername; uniqueness is enforced by the store in
	// a single insert, not by a separate existence check.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

type PostStore interface {
	// CreatePost inserts a post, assigning its id and created time when
	// they are unset.
	CreatePost(ctx context.Context, post *model.Post) error
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id string) (model.Post, error)
	// UpdatePost overwrites only the fields present in upd. Updating an
	// absent id returns ErrNotFound.
	UpdatePost(ctx context.Context, id string, upd PostUpdate) error
	// DeletePost removes a post. Deleting an absent id returns ErrNotFound.
	DeletePost(ctx context.Context, id string) error
}
