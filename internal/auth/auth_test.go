package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, salt, saltLength*2)

	answer, err := ChallengeDigest("stored-hash", salt)
	require.NoError(t, err)

	assert.True(t, VerifyChallenge("stored-hash", salt, answer))
	assert.False(t, VerifyChallenge("other-hash", salt, answer))
	assert.False(t, VerifyChallenge("stored-hash", salt+"x", answer))
	assert.False(t, VerifyChallenge("stored-hash", "", answer))
}

func TestSaltsDiffer(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestChallengeDigestEmptySalt(t *testing.T) {
	_, err := ChallengeDigest("stored-hash", "")
	assert.ErrorIs(t, err, ErrEmptySalt)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	token, err := CreateSessionToken("alice", 4242)
	require.NoError(t, err)

	user, sid, err := AuthenticateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, 4242, sid)
}

func TestSessionTokenRejectsGarbage(t *testing.T) {
	require.NoError(t, Init(0))

	_, _, err := AuthenticateSessionToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenRejectsForeignKey(t *testing.T) {
	require.NoError(t, Init(0))
	token, err := CreateSessionToken("alice", 1)
	require.NoError(t, err)

	// rotate keys; the old token must no longer verify
	require.NoError(t, Init(0))
	_, _, err = AuthenticateSessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenRequiresSid(t *testing.T) {
	require.NoError(t, Init(0))
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "alice"}).SignedString(privateKey)
	require.NoError(t, err)

	_, _, err = AuthenticateSessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
