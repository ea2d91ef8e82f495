// internal/federation/federation.go
package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// ServersKey is the Redis hash of server name -> ServerInfo JSON.
	ServersKey = "lobby:servers"
	// gamesKeyPrefix prefixes the per-server key holding its game list JSON.
	gamesKeyPrefix = "lobby:games:"
)

// GamesKey returns the key under which server publishes its games.
func GamesKey(server string) string {
	return gamesKeyPrefix + server
}

// Registry is the part of the lobby a federation node reads and feeds.
type Registry interface {
	GamesList() []lobby.GameInfo
	AddServer(si lobby.ServerInfo)
	ReplaceRemoteGames(server string, games []lobby.GameInfo)
}

// Node announces this lobby to its peers through Redis and mirrors the
// peers' games into the local registry.
type Node struct {
	rdb  *redis.Client
	reg  Registry
	self lobby.ServerInfo
	ttl  time.Duration
	log  logrus.FieldLogger
}

// NewNode creates a node publishing self. Published game lists expire after
// ttl so a server that goes away stops showing games.
func NewNode(rdb *redis.Client, reg Registry, self lobby.ServerInfo, ttl time.Duration, log logrus.FieldLogger) *Node {
	return &Node{rdb: rdb, reg: reg, self: self, ttl: ttl, log: log}
}

// ConnectRedis creates a client for addr and checks it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Announce publishes this server's info and its current local games.
func (n *Node) Announce(ctx context.Context) error {
	info, err := json.Marshal(n.self)
	if err != nil {
		return fmt.Errorf("failed to marshal server info: %w", err)
	}
	games, err := json.Marshal(n.reg.GamesList())
	if err != nil {
		return fmt.Errorf("failed to marshal games: %w", err)
	}

	_, err = n.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ServersKey, n.self.Name, info)
		pipe.Set(ctx, GamesKey(n.self.Name), games, n.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to announce %s: %w", n.self.Name, err)
	}
	return nil
}

// Sync mirrors every peer's server info and games into the registry. A peer
// whose game list has expired is mirrored with no games.
func (n *Node) Sync(ctx context.Context) error {
	servers, err := n.rdb.HGetAll(ctx, ServersKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ServersKey, err)
	}
	for name, raw := range servers {
		if name == n.self.Name {
			continue
		}
		var si lobby.ServerInfo
		if err := json.Unmarshal([]byte(raw), &si); err != nil {
			n.log.WithError(err).WithField("server", name).Warn("skipping malformed server info")
			continue
		}
		n.reg.AddServer(si)

		games, err := n.peerGames(ctx, name)
		if err != nil {
			n.log.WithError(err).WithField("server", name).Warn("failed to read peer games")
			continue
		}
		n.reg.ReplaceRemoteGames(name, games)
	}
	return nil
}

func (n *Node) peerGames(ctx context.Context, server string) ([]lobby.GameInfo, error) {
	raw, err := n.rdb.Get(ctx, GamesKey(server)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var games []lobby.GameInfo
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("malformed game list: %w", err)
	}
	return games, nil
}

// Run announces and syncs every interval until ctx is done.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := n.Announce(ctx); err != nil {
			n.log.WithError(err).Warn("federation announce failed")
		}
		if err := n.Sync(ctx); err != nil {
			n.log.WithError(err).Warn("federation sync failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
