package lobby

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndFetchUser(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.False(t, r.IsUserRegistered(ctx, "alice"))
	require.True(t, r.RegisterUser(ctx, "alice", "hash", "alice@example.com", "cat.png"))
	assert.False(t, r.RegisterUser(ctx, "alice", "hash2", "", ""), "duplicate")
	assert.True(t, r.IsUserRegistered(ctx, "alice"))

	u, ok := r.FetchUser(ctx, "alice")
	require.True(t, ok)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "cat.png", u.Avatar)

	_, ok = r.FetchUser(ctx, "bob")
	assert.False(t, ok)
}

func TestProfileRoundTrip(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	require.True(t, r.RegisterUser(ctx, "alice", "hash", "", ""))

	require.True(t, r.StoreProfile(ctx, "alice", map[string]interface{}{"level": 3}))
	data, ok := r.FetchProfile(ctx, "alice")
	require.True(t, ok)
	assert.Equal(t, 3, data["level"])

	assert.False(t, r.StoreProfile(ctx, "bob", map[string]interface{}{}))
	_, ok = r.FetchProfile(ctx, "bob")
	assert.False(t, ok)
}

func TestAccountUpstreamFailure(t *testing.T) {
	r, gw, hook := newTestRegistry(t)
	ctx := context.Background()
	gw.fail = errors.New("db down")

	assert.False(t, r.IsUserRegistered(ctx, "alice"))
	assert.False(t, r.RegisterUser(ctx, "alice", "hash", "", ""))
	_, ok := r.FetchProfile(ctx, "alice")
	assert.False(t, ok)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "profile lookup failed", hook.LastEntry().Message)
}
