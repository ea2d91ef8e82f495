package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jason-s-yu/cambia-lobby/internal/auth"
	"github.com/jason-s-yu/cambia-lobby/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway is an in-memory account store.
type fakeGateway struct {
	mu       sync.Mutex
	users    map[string]models.User
	profiles map[string]map[string]interface{}
	fail     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:    make(map[string]models.User),
		profiles: make(map[string]map[string]interface{}),
	}
}

func (f *fakeGateway) add(username, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = models.User{Username: username, PasswordHash: hash}
}

func (f *fakeGateway) LookupCredentials(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	u, ok := f.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeGateway) InsertUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.users[u.Username]; ok {
		return fmt.Errorf("username %q taken", u.Username)
	}
	f.users[u.Username] = *u
	return nil
}

func (f *fakeGateway) GetProfile(_ context.Context, username string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if _, ok := f.users[username]; !ok {
		return nil, ErrUserNotFound
	}
	return f.profiles[username], nil
}

func (f *fakeGateway) SetProfile(_ context.Context, username string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.users[username]; !ok {
		return ErrUserNotFound
	}
	f.profiles[username] = data
	return nil
}

// recordingConn collects whatever the registry delivers to it.
type recordingConn struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *recordingConn) Deliver(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *recordingConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *fakeGateway, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	gw := newFakeGateway()
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewRegistry(gw, opts...), gw, hook
}

// signIn registers username with the fake store and runs the full handshake.
func signIn(t *testing.T, r *Registry, gw *fakeGateway, username string) int {
	t.Helper()
	ctx := context.Background()
	hash := "hash-" + username
	gw.add(username, hash)

	res, err := r.ProcessUser(ctx, username, "", 0)
	require.NoError(t, err)
	require.Equal(t, ActionSendSalt, res.Action)

	answer, err := auth.ChallengeDigest(hash, res.Session.Salt)
	require.NoError(t, err)

	res, err = r.ProcessUser(ctx, username, answer, res.Session.SessionID)
	require.NoError(t, err)
	require.Equal(t, ActionLoginSuccess, res.Action)
	return res.Session.SessionID
}

// assertInvariants checks the registry-wide invariants under the lock.
func assertInvariants(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Len(t, r.sessions, len(r.clients), "one live id per client")
	for name, cs := range r.clients {
		assert.Equal(t, name, r.sessions[cs.SessionID], "session id owned by %s", name)
		assert.Greater(t, cs.SessionID, 0)
		assert.GreaterOrEqual(t, cs.LastSeen, 0)
		assert.LessOrEqual(t, cs.LastSeen, r.reload)
		if cs.conn != nil {
			assert.Zero(t, cs.queue.Len(), "%s has a parked connection and queued messages", name)
		}
	}
}

func TestSessionIDsUniqueWithConstantRandom(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	r.rand = func(int) int { return 0 }

	seen := make(map[int]bool)
	for i := 0; i < 50; i++ {
		sid := signIn(t, r, gw, fmt.Sprintf("user%d", i))
		assert.Greater(t, sid, 0)
		assert.False(t, seen[sid], "duplicate session id %d", sid)
		seen[sid] = true
	}
	assertInvariants(t, r)
}

func TestGameIDsSkipLiveIDs(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	signIn(t, r, gw, "alice")

	first, ok := r.CreateGame("alice", "deathmatch", 4)
	require.True(t, ok)
	assert.Equal(t, 1, first)

	r.mu.Lock()
	r.nextGameID = 0 // force the counter back onto a live id
	r.mu.Unlock()

	second, ok := r.CreateGame("alice", "deathmatch", 4)
	require.True(t, ok)
	assert.Equal(t, 2, second)
}

func TestConcurrentAccessKeepsInvariants(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	users := []string{"alice", "bob", "carol", "dave"}
	for _, u := range users {
		signIn(t, r, gw, u)
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.PostMessageToClient(u, Message{"type": "chat", "n": i})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.SetWaitingConnection(u, &recordingConn{})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.ProcessWaitingConnections()
				if q := r.MessageQueue(u); q != nil {
					q.Pop()
				}
			}
		}()
	}
	wg.Wait()
	assertInvariants(t, r)
}

func TestGatewayFailureLeavesStateUntouched(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	gw.fail = errors.New("db down")

	_, err := r.ProcessUser(context.Background(), "alice", "", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, gw.fail)
	assert.Empty(t, r.UserList())
}
