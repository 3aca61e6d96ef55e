package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	krishi "github.com/krishihq/krishi/internal"
)

// CreateUser inserts an account and fills in its ID. Duplicate usernames or
// emails return krishi.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *krishi.User) error {
	u.CreatedAt = time.Now().UTC()
	u.Active = true
	result, err := s.write.ExecContext(ctx,
		`INSERT INTO users (username, email, full_name, password_hash, active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		u.Username, u.Email, nullStr(u.FullName), u.PasswordHash, timeToStr(u.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user exists: %w", krishi.ErrConflict)
		}
		return err
	}
	u.ID, err = lastInsertID(result)
	return err
}

// GetUser retrieves an account by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*krishi.User, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, username, email, full_name, password_hash, active, created_at
		 FROM users WHERE id = ?`, id,
	)
	return scanUser(row)
}

// GetUserByUsername retrieves an account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*krishi.User, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, username, email, full_name, password_hash, active, created_at
		 FROM users WHERE username = ?`, username,
	)
	return scanUser(row)
}

func scanUser(s scanner) (*krishi.User, error) {
	var u krishi.User
	var fullName sql.NullString
	var active int
	var createdAt string

	err := s.Scan(&u.ID, &u.Username, &u.Email, &fullName, &u.PasswordHash, &active, &createdAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	u.FullName = fullName.String
	u.Active = active != 0
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// CreateSession inserts a login session.
func (s *Store) CreateSession(ctx context.Context, sess *krishi.Session) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		sess.TokenHash, sess.UserID, timeToStr(sess.ExpiresAt), timeToStr(sess.CreatedAt),
	)
	return err
}

// GetSession retrieves a session by the SHA-256 hash of its token.
func (s *Store) GetSession(ctx context.Context, tokenHash string) (*krishi.Session, error) {
	var sess krishi.Session
	var expiresAt, createdAt string
	err := s.read.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, created_at
		 FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&sess.TokenHash, &sess.UserID, &expiresAt, &createdAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	sess.ExpiresAt = parseTime(expiresAt)
	sess.CreatedAt = parseTime(createdAt)
	return &sess, nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	result, err := s.write.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = ?`, tokenHash,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "session")
}

// DeleteExpiredSessions removes all sessions past their expiry and returns
// the number deleted.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.write.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, timeToStr(time.Now()),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
