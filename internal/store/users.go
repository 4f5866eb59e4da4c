package store

import (
	"context"
	"strings"
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

const userColumns = `id, email, username, first_name, last_name, created_at`

func scanUser(row interface{ Scan(...any) error }, u *models.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt)
}

// CreateUser inserts a user. Email and username are stored lower-cased so the
// unique indexes are case-insensitive.
func (s *Store) CreateUser(ctx context.Context, u *models.User, passwordHash string) (*models.User, error) {
	out := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(u.Email)),
		Username:  strings.ToLower(strings.TrimSpace(u.Username)),
		FirstName: strings.TrimSpace(u.FirstName),
		LastName:  strings.TrimSpace(u.LastName),
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO users (email, username, first_name, last_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		out.Email, out.Username, out.FirstName, out.LastName, passwordHash, out.CreatedAt,
	).Scan(&out.ID)
	if err != nil {
		return nil, wrap("create user", err)
	}
	return out, nil
}

// GetUserByEmail returns the user including its password hash.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, email, username, first_name, last_name, created_at, password_hash
		 FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.Password)
	if err != nil {
		return nil, wrap("get user by email", err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err := scanUser(row, &u); err != nil {
		return nil, wrap("get user", err)
	}
	return &u, nil
}

// SearchUsers returns users whose username starts with prefix.
func (s *Store) SearchUsers(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error) {
	limit, _ = clampPage(limit, 0)
	pattern := escapeLike(strings.ToLower(strings.TrimSpace(prefix))) + "%"
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, username, first_name, last_name FROM users
		 WHERE username LIKE ? ESCAPE '\'
		 ORDER BY username LIMIT ?`),
		pattern, limit,
	)
	if err != nil {
		return nil, wrap("search users", err)
	}
	return collectSummaries(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func updateUserNames(ctx context.Context, db queryer, q func(string) string, u *models.User) error {
	res, err := db.ExecContext(ctx, q(
		`UPDATE users SET first_name = ?, last_name = ?, username = ? WHERE id = ?`),
		strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName),
		strings.ToLower(strings.TrimSpace(u.Username)), u.ID,
	)
	if err != nil {
		return wrap("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrap("update user", ErrNotFound)
	}
	return nil
}
