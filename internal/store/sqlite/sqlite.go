package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyblog/internal/model"
	"storyblog/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	first_name TEXT,
	last_name TEXT,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_first TEXT,
	author_last TEXT,
	title TEXT NOT NULL,
	content TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (username, password_hash, first_name, last_name, created_at)
VALUES (?, ?, ?, ?, ?)
`, user.Username, user.PasswordHash, nullIfEmpty(user.FirstName), nullIfEmpty(user.LastName), user.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateUsername
		}
		return err
	}
	user.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, first_name, last_name, created_at
FROM users
WHERE username = ?
LIMIT 1
`, username)
	var u model.User
	var first sql.NullString
	var last sql.NullString
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &first, &last, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	if first.Valid {
		u.FirstName = first.String
	}
	if last.Valid {
		u.LastName = last.String
	}
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Created.IsZero() {
		post.Created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (id, author_first, author_last, title, content, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, post.ID, nullIfEmpty(post.Author.FirstName), nullIfEmpty(post.Author.LastName), post.Title, nullIfEmpty(post.Content), post.Created.Unix())
	return err
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, author_first, author_last, title, content, created_at
FROM posts
ORDER BY created_at DESC, id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, author_first, author_last, title, content, created_at
FROM posts
WHERE id = ?
LIMIT 1
`, id)
	return scanPost(row)
}

func (s *Store) UpdatePost(ctx context.Context, id string, upd store.PostUpdate) error {
	var sets []string
	var args []any
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, nullIfEmpty(*upd.Content))
	}
	if upd.Author != nil {
		sets = append(sets, "author_first = ?", "author_last = ?")
		args = append(args, nullIfEmpty(upd.Author.FirstName), nullIfEmpty(upd.Author.LastName))
	}
	if len(sets) == 0 {
		// Nothing to overwrite; still report a missing target.
		_, err := s.GetPost(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var first sql.NullString
	var last sql.NullString
	var content sql.NullString
	var created int64
	if err := scanner.Scan(&p.ID, &first, &last, &p.Title, &content, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if first.Valid {
		p.Author.FirstName = first.String
	}
	if last.Valid {
		p.Author.LastName = last.String
	}
	if content.Valid {
		p.Content = content.String
	}
	p.Created = time.Unix(created, 0)
	return p, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
