// internal/lobby/registry.go
package lobby

import (
	"math/rand/v2"
	"sync"

	"github.com/sirupsen/logrus"
)

// LastSeenReload is the idle budget, in sweep ticks, a session gets whenever
// it shows activity. At one tick per second this is five minutes.
const LastSeenReload = 5 * 60

// Message is an opaque JSON-like payload delivered to clients.
type Message = map[string]interface{}

// WaitingConn is a parked connection waiting for the next message of a client.
// The registry calls Deliver at most once per parking and then drops the
// handle. Deliver is invoked with the registry lock held and must not block.
type WaitingConn interface {
	Deliver(msg Message)
}

// Registry is the lobby's shared state: signed-in clients, their message
// queues and parked connections, locally created games, and what peer lobby
// servers have told us about themselves.
//
// All state sits behind a single mutex. Exported methods take the lock for
// their whole duration; the ...Unsafe helpers assume it is already held and
// are what composite operations call into.
type Registry struct {
	mu sync.Mutex

	gateway Gateway
	log     logrus.FieldLogger
	reload  int

	clients  map[string]*ClientSession
	sessions map[int]string // live session id -> username

	games      map[int]*GameInfo
	nextGameID int

	servers     []ServerInfo
	remoteGames map[string][]GameInfo // server name -> mirrored games

	sessionCounter int
	rand           func(n int) int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registry events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Registry) { r.log = l }
}

// WithLastSeenReload overrides the idle budget handed to active sessions.
func WithLastSeenReload(ticks int) Option {
	return func(r *Registry) {
		if ticks > 0 {
			r.reload = ticks
		}
	}
}

// NewRegistry creates an empty registry backed by the given account store.
func NewRegistry(gw Gateway, opts ...Option) *Registry {
	r := &Registry{
		gateway:     gw,
		log:         logrus.StandardLogger(),
		reload:      LastSeenReload,
		clients:     make(map[string]*ClientSession),
		sessions:    make(map[int]string),
		games:       make(map[int]*GameInfo),
		remoteGames: make(map[string][]GameInfo),
		rand:        rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// makeSessionIDUnsafe returns a positive id not held by any live session.
// The high bits come from a counter and the low bits are random so that ids
// are hard to guess in sequence.
func (r *Registry) makeSessionIDUnsafe() int {
	for {
		r.sessionCounter++
		if r.sessionCounter >= 1<<20 {
			r.sessionCounter = 1
		}
		id := r.sessionCounter<<10 | r.rand(1<<10)
		if id <= 0 {
			continue
		}
		if _, live := r.sessions[id]; !live {
			return id
		}
	}
}

// makeGameIDUnsafe returns the next positive game id not used by a live game.
func (r *Registry) makeGameIDUnsafe() int {
	for {
		r.nextGameID++
		if r.nextGameID <= 0 {
			r.nextGameID = 1
		}
		if _, live := r.games[r.nextGameID]; !live {
			return r.nextGameID
		}
	}
}
