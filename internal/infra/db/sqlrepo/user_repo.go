package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/newsgate/internal/domain/users"
)

type UserRepository struct {
	db *sql.DB
	d  Dialect
}

func NewUserRepository(db *sql.DB, d Dialect) *UserRepository {
	return &UserRepository{db: db, d: d}
}

// Create inserts an account; a taken email yields users.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *users.User) error {
	const q = `
INSERT INTO users (id, email, password_hash, created_at)
VALUES (?,?,?,?);`
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q), u.ID, u.Email, u.PasswordHash, created.UTC().Truncate(time.Microsecond))
	if err != nil {
		if r.d.uniqueViolation(err) {
			return users.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	const q = `
SELECT id, email, password_hash, created_at, last_login_at
FROM users
WHERE email=? LIMIT 1;`
	var (
		u       users.User
		created time.Time
		last    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), email).Scan(&u.ID, &u.Email, &u.PasswordHash, &created, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = created.UTC()
	if last.Valid {
		t := last.Time.UTC()
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users SET last_login_at=? WHERE id=?;`
	if _, err := r.db.ExecContext(ctx, r.d.Rebind(q), at.UTC().Truncate(time.Microsecond), id); err != nil {
		return fmt.Errorf("touch user login: %w", err)
	}
	return nil
}
