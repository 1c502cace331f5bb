package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/taskboard/backend/internal/apperr"
	"github.com/ayush/taskboard/backend/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique-index violations.
const uniqueViolation = "23505"

// PostgresStore handles user credential persistence in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist. Emails are stored
// lowercased, so the plain unique index is case-insensitive in effect.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(30)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// CreateUser inserts a new user. A unique-index violation — including one
// raced in by a concurrent registration after any pre-check — is remapped to
// DUPLICATE_IDENTITY, naming the conflicting field.
func (s *PostgresStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at, updated_at`,
		username, strings.ToLower(email), passwordHash,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			field := "username or email"
			if strings.Contains(pgErr.ConstraintName, "email") {
				field = "email"
			} else if strings.Contains(pgErr.ConstraintName, "username") {
				field = "username"
			}
			return nil, apperr.Wrap(apperr.CodeDuplicateIdentity, field+" is already taken", err)
		}
		return nil, apperr.Wrap(apperr.CodeServer, "create user", err)
	}
	u.Password = passwordHash
	return &u, nil
}

// GetUserByEmail looks a user up by case-normalized email. The returned
// record includes the password hash for credential verification.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at, updated_at
		 FROM users WHERE email = $1`, strings.ToLower(email),
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "user not found", err)
		}
		return nil, apperr.Wrap(apperr.CodeServer, "get user by email", err)
	}
	return &u, nil
}

// GetUserByID resolves an id to a user record without the password hash.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "user not found", err)
		}
		return nil, apperr.Wrap(apperr.CodeServer, "get user by id", err)
	}
	return &u, nil
}
