package federation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRegistry records what a node feeds into it.
type stubRegistry struct {
	games   []lobby.GameInfo
	servers []lobby.ServerInfo
	remote  map[string][]lobby.GameInfo
}

func newStubRegistry(games ...lobby.GameInfo) *stubRegistry {
	return &stubRegistry{games: games, remote: make(map[string][]lobby.GameInfo)}
}

func (s *stubRegistry) GamesList() []lobby.GameInfo { return s.games }
func (s *stubRegistry) AddServer(si lobby.ServerInfo) { s.servers = append(s.servers, si) }
func (s *stubRegistry) ReplaceRemoteGames(server string, g []lobby.GameInfo) {
	s.remote[server] = g
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestAnnouncePublishesInfoAndGames(t *testing.T) {
	mr, rdb := newTestRedis(t)
	logger, _ := test.NewNullLogger()
	reg := newStubRegistry(lobby.GameInfo{ID: 1, Name: "duel", MaxPlayers: 2, Clients: []string{"alice"}})
	n := NewNode(rdb, reg, lobby.ServerInfo{Name: "east", DisplayName: "East"}, time.Minute, logger)

	require.NoError(t, n.Announce(context.Background()))

	raw := mr.HGet(ServersKey, "east")
	var si lobby.ServerInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &si))
	assert.Equal(t, "East", si.DisplayName)

	gamesRaw, err := mr.Get(GamesKey("east"))
	require.NoError(t, err)
	var games []lobby.GameInfo
	require.NoError(t, json.Unmarshal([]byte(gamesRaw), &games))
	require.Len(t, games, 1)
	assert.Equal(t, []string{"alice"}, games[0].Clients)
	assert.Equal(t, time.Minute, mr.TTL(GamesKey("east")))
}

func TestSyncMirrorsPeersButNotSelf(t *testing.T) {
	_, rdb := newTestRedis(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	west := NewNode(rdb, newStubRegistry(lobby.GameInfo{ID: 4, Name: "ffa"}), lobby.ServerInfo{Name: "west"}, time.Minute, logger)
	require.NoError(t, west.Announce(ctx))

	eastReg := newStubRegistry()
	east := NewNode(rdb, eastReg, lobby.ServerInfo{Name: "east"}, time.Minute, logger)
	require.NoError(t, east.Announce(ctx))
	require.NoError(t, east.Sync(ctx))

	require.Len(t, eastReg.servers, 1)
	assert.Equal(t, "west", eastReg.servers[0].Name)
	require.Len(t, eastReg.remote["west"], 1)
	assert.Equal(t, 4, eastReg.remote["west"][0].ID)
	_, mirroredSelf := eastReg.remote["east"]
	assert.False(t, mirroredSelf)
}

func TestSyncExpiredGamesBecomeEmpty(t *testing.T) {
	mr, rdb := newTestRedis(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	west := NewNode(rdb, newStubRegistry(lobby.GameInfo{ID: 4}), lobby.ServerInfo{Name: "west"}, time.Second, logger)
	require.NoError(t, west.Announce(ctx))
	mr.FastForward(2 * time.Second)

	reg := newStubRegistry()
	reg.remote["west"] = []lobby.GameInfo{{ID: 4}}
	east := NewNode(rdb, reg, lobby.ServerInfo{Name: "east"}, time.Minute, logger)
	require.NoError(t, east.Sync(ctx))

	games, ok := reg.remote["west"]
	assert.True(t, ok)
	assert.Empty(t, games)
}

func TestSyncSkipsMalformedPeer(t *testing.T) {
	mr, rdb := newTestRedis(t)
	logger, hook := test.NewNullLogger()
	mr.HSet(ServersKey, "broken", "{not json")

	reg := newStubRegistry()
	n := NewNode(rdb, reg, lobby.ServerInfo{Name: "east"}, time.Minute, logger)
	require.NoError(t, n.Sync(context.Background()))

	assert.Empty(t, reg.servers)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "skipping malformed server info", hook.LastEntry().Message)
}

func TestSyncIntoRealRegistry(t *testing.T) {
	_, rdb := newTestRedis(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	peer := NewNode(rdb, newStubRegistry(lobby.GameInfo{ID: 9, Name: "ctf", MaxPlayers: 8}), lobby.ServerInfo{Name: "west"}, time.Minute, logger)
	require.NoError(t, peer.Announce(ctx))

	reg := lobby.NewRegistry(nil, lobby.WithLogger(logger))
	n := NewNode(rdb, reg, lobby.ServerInfo{Name: "east"}, time.Minute, logger)
	require.NoError(t, n.Sync(ctx))

	games := reg.RemoteGames()
	require.Len(t, games, 1)
	assert.Equal(t, "west", games[0].Server)
	assert.Equal(t, "ctf", games[0].Name)
	require.Len(t, reg.Servers(), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	mr, rdb := newTestRedis(t)
	logger, _ := test.NewNullLogger()
	n := NewNode(rdb, newStubRegistry(), lobby.ServerInfo{Name: "east"}, time.Minute, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return mr.Exists(GamesKey("east")) }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
