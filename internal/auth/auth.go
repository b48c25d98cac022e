// Package auth implements the credential flow: registration with one-way
// password hashing, and per-request verification against the stored hash.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyblog/internal/model"
	"storyblog/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownUser   = errors.New("unknown username")
	ErrWrongPassword = errors.New("wrong password")
)

const bcryptCost = 10

type Service struct {
	store store.Store
}

func NewService(store store.Store) *Service {
	return &Service{store: store}
}

// Register hashes the raw password and persists the user. Username
// collisions surface as store.ErrDuplicateUsername; the insert itself is
// the uniqueness check.
func (s *Service) Register(ctx context.Context, username, rawPassword, firstName, lastName string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Verify resolves the username and compares the supplied password against
// the stored hash. It distinguishes ErrUnknownUser from ErrWrongPassword so
// the caller can log the reason; the gateway must not disclose it.
func (s *Service) Verify(ctx context.Context, username, rawPassword string) (model.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrUnknownUser
		}
		return model.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(rawPassword)) != nil {
		return model.User{}, ErrWrongPassword
	}
	return user, nil
}
