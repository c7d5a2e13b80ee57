package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// Role values stored in users.role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Seed credentials for the bootstrap administrator.
const (
	SeedAdminUsername = "admin"
	SeedAdminPassword = "admin123"
)

// pgErrUniqueViolation is the PostgreSQL SQLSTATE for unique constraint hits.
const pgErrUniqueViolation = "23505"

// User is a stored account. PasswordHash is a bcrypt hash; plaintext
// passwords are never persisted or logged.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time

	// DisplayID is a sequential position for UI listings only. It is
	// recomputed per query and must never be used to address a user.
	DisplayID int64
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// hashPassword generates a bcrypt hash of the password.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a candidate password with a stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GetUserByUsername returns the user with the exact username, or (nil, nil)
// when no such user exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at
		 FROM users
		 WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListAllUsers returns every user in creation order. DisplayID is a
// gap-free sequence for the UI; ID stays stable for operations.
func (s *Store) ListAllUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,
		        ROW_NUMBER() OVER (ORDER BY id) AS display_id,
		        username, role, created_at
		 FROM users
		 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.DisplayID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser hashes the password and inserts a new account. Returns
// ErrDuplicateUsername when the username is already taken.
func (s *Store) CreateUser(ctx context.Context, username, password, role string) (int64, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		username, hash, role,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	return id, nil
}

// DeleteUser removes a user. Owned file rows go with it via the foreign-key
// cascade. Deleting a missing id is a no-op, not an error.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// EnsureSeedAdmin creates the bootstrap admin account when no admin user
// exists yet. Idempotent; called on every startup.
func (s *Store) EnsureSeedAdmin(ctx context.Context) (created bool, err error) {
	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, RoleAdmin,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.CreateUser(ctx, SeedAdminUsername, SeedAdminPassword, RoleAdmin); err != nil {
		// Lost a race with another process seeding concurrently.
		if errors.Is(err, ErrDuplicateUsername) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
