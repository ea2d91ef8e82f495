package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/jason-s-yu/cambia-lobby/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to DATABASE_URL; the test is skipped without one.
func newTestStore(t *testing.T) *UserStore {
	t.Helper()
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := ConnectDB(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))
	return NewUserStore(pool)
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestUserStoreInsertAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name := uniqueName("alice")

	u := &models.User{Username: name, PasswordHash: "hash", Email: "a@example.com", Avatar: "cat"}
	require.NoError(t, s.InsertUser(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)

	got, err := s.LookupCredentials(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "cat", got.Avatar)

	err = s.InsertUser(ctx, &models.User{Username: name, PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserStoreUnknownUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name := uniqueName("ghost")

	_, err := s.LookupCredentials(ctx, name)
	assert.ErrorIs(t, err, lobby.ErrUserNotFound)
	_, err = s.GetProfile(ctx, name)
	assert.ErrorIs(t, err, lobby.ErrUserNotFound)
	err = s.SetProfile(ctx, name, map[string]interface{}{"a": 1})
	assert.ErrorIs(t, err, lobby.ErrUserNotFound)
}

func TestUserStoreProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name := uniqueName("bob")
	require.NoError(t, s.InsertUser(ctx, &models.User{Username: name, PasswordHash: "hash"}))

	data, err := s.GetProfile(ctx, name)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, s.SetProfile(ctx, name, map[string]interface{}{"wins": 3, "title": "champ"}))
	data, err = s.GetProfile(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, float64(3), data["wins"])
	assert.Equal(t, "champ", data["title"])
}
