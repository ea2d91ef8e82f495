package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/jason-s-yu/cambia-lobby/internal/models"
)

// ErrUsernameTaken is returned by InsertUser when the username already exists.
var ErrUsernameTaken = errors.New("username already exists")

// UserStore is the Postgres-backed account store used by the lobby registry.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore wraps pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ lobby.Gateway = (*UserStore)(nil)

// LookupCredentials fetches the account row for username.
func (s *UserStore) LookupCredentials(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, username, password_hash, email, avatar
	FROM users
	WHERE username=$1
	`
	err := s.pool.QueryRow(ctx, q, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Avatar,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lobby.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	return &u, nil
}

// InsertUser creates the account row, assigning an id if the user has none.
func (s *UserStore) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	q := `INSERT INTO users (id, username, password_hash, email, avatar)
	      VALUES ($1, $2, $3, $4, $5)`

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Username, user.PasswordHash, user.Email, user.Avatar,
		)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetProfile returns the free-form JSON data stored with username.
func (s *UserStore) GetProfile(ctx context.Context, username string) (map[string]interface{}, error) {
	var data map[string]interface{}
	err := s.pool.QueryRow(ctx, `SELECT data FROM users WHERE username=$1`, username).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lobby.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select profile of %q: %w", username, err)
	}
	return data, nil
}

// SetProfile replaces the free-form JSON data stored with username.
func (s *UserStore) SetProfile(ctx context.Context, username string, data map[string]interface{}) error {
	js, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	q := `UPDATE users SET data = $1, updated_at = NOW() WHERE username = $2`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, e := tx.Exec(ctx, q, js, username)
		if e != nil {
			return e
		}
		if ct.RowsAffected() == 0 {
			return lobby.ErrUserNotFound
		}
		return nil
	})
}
