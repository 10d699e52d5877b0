package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"weighttracking/internal/domain"
)

const userColumns = "id, username, password_hash, created_at"

// queryUser runs a single-user query. A miss is (nil, nil), which the auth
// service treats as an unknown login.
func (d *DB) queryUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case isUniqueViolation(err):
		return nil, domain.ErrAlreadyExists
	case err != nil:
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.queryUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return d.queryUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

// Create inserts a login identity. An empty hash marks an SSO-only user.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	return d.queryUser(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING "+userColumns,
		username, passwordHash, time.Now().UTC())
}

// GetEmployeeByUserID returns the employee linked to a login identity.
func (d *DB) GetEmployeeByUserID(ctx context.Context, userID int64) (*domain.Employee, error) {
	var e domain.Employee
	err := d.sql.QueryRowContext(ctx,
		`SELECT e.id, e.role, u.id, u.username, u.created_at
		FROM employees e JOIN users u ON u.id = e.user_id
		WHERE e.user_id = $1`,
		userID,
	).Scan(&e.ID, &e.Role, &e.User.ID, &e.User.Username, &e.User.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEmployee inserts the employee record of a login identity.
func (d *DB) CreateEmployee(ctx context.Context, userID int64, role string) (*domain.Employee, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO employees (user_id, role) VALUES ($1, $2) RETURNING id",
		userID, role,
	).Scan(&id)
	if isUniqueViolation(err) {
		return nil, domain.ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	return d.GetEmployeeByUserID(ctx, userID)
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, user_agent, ip, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		userID, token, userAgent, ip, expiresAt, time.Now(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, user_agent, ip, expires_at, created_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now())
	return err
}
