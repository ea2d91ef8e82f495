// internal/lobby/games.go
package lobby

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// GameInfo describes one game room.
type GameInfo struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Started    bool     `json:"started"`
	MaxPlayers int      `json:"max_players"`
	BotCount   int      `json:"bot_count"`
	Clients    []string `json:"clients"`
	BotTypes   []string `json:"bot_types"`
}

func (g *GameInfo) clone() GameInfo {
	c := *g
	c.Clients = append([]string(nil), g.Clients...)
	c.BotTypes = append([]string(nil), g.BotTypes...)
	return c
}

func (g *GameInfo) hasClient(username string) bool {
	for _, c := range g.Clients {
		if c == username {
			return true
		}
	}
	return false
}

func (g *GameInfo) removeClient(username string) bool {
	for i, c := range g.Clients {
		if c == username {
			g.Clients = append(g.Clients[:i], g.Clients[i+1:]...)
			return true
		}
	}
	return false
}

// occupancy counts seats taken by players and bots. Self-joins and new bots
// are limited by it.
func (g *GameInfo) occupancy() int {
	return len(g.Clients) + g.BotCount
}

// CreateGame opens a game with username as its first member and returns its
// id. Fails if username is not signed in or maxPlayers is not positive.
func (r *Registry) CreateGame(username, gameType string, maxPlayers int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.signedInUnsafe(username)
	if !ok || maxPlayers <= 0 {
		return 0, false
	}
	id := r.makeGameIDUnsafe()
	r.games[id] = &GameInfo{
		ID:         id,
		Name:       gameType,
		MaxPlayers: maxPlayers,
		Clients:    []string{username},
	}
	cs.LastSeen = r.reload
	r.log.WithFields(logrus.Fields{"user": username, "game_id": id, "type": gameType}).Info("game created")
	return id, true
}

// RemoveGame tears down gameID. Only a member may do so; returns false if the
// game does not exist or username is not in it.
func (r *Registry) RemoveGame(username string, gameID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok || !g.hasClient(username) {
		return false
	}
	delete(r.games, gameID)
	r.log.WithFields(logrus.Fields{"user": username, "game_id": gameID}).Info("game removed")
	return true
}

// CheckGameAndClient reports whether user, already in gameID, may bring
// userToAdd into it: the game exists, user is a member, userToAdd is not, and
// the member list is below MaxPlayers. Bots are not members and do not count
// here; JoinGame and AddBot count them as taking seats.
func (r *Registry) CheckGameAndClient(gameID int, user, userToAdd string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkGameAndClientUnsafe(gameID, user, userToAdd)
}

func (r *Registry) checkGameAndClientUnsafe(gameID int, user, userToAdd string) bool {
	g, ok := r.games[gameID]
	if !ok {
		return false
	}
	return g.hasClient(user) && !g.hasClient(userToAdd) && len(g.Clients) < g.MaxPlayers
}

// AddClientToGame runs the CheckGameAndClient test and, if it passes, seats
// userToAdd. userToAdd must be a signed-in client.
func (r *Registry) AddClientToGame(gameID int, user, userToAdd string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.signedInUnsafe(userToAdd); !ok {
		return false
	}
	if !r.checkGameAndClientUnsafe(gameID, user, userToAdd) {
		return false
	}
	g := r.games[gameID]
	g.Clients = append(g.Clients, userToAdd)
	r.touchUnsafe(user)
	return true
}

// JoinGame seats username in a game that has not started and has a free seat.
func (r *Registry) JoinGame(username string, gameID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.signedInUnsafe(username)
	if !ok {
		return false
	}
	g, ok := r.games[gameID]
	if !ok || g.Started || g.hasClient(username) || g.occupancy() >= g.MaxPlayers {
		return false
	}
	g.Clients = append(g.Clients, username)
	cs.LastSeen = r.reload
	return true
}

// LeaveGame removes username from gameID. A game left with no members is
// removed.
func (r *Registry) LeaveGame(username string, gameID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok || !g.removeClient(username) {
		return false
	}
	if len(g.Clients) == 0 {
		delete(r.games, gameID)
	}
	return true
}

// StartGame marks gameID as started. username must be a member.
func (r *Registry) StartGame(username string, gameID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok || g.Started || !g.hasClient(username) {
		return false
	}
	g.Started = true
	return true
}

// AddBot fills a free seat of gameID with a bot of the given type.
func (r *Registry) AddBot(username string, gameID int, botType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok || g.Started || !g.hasClient(username) || g.occupancy() >= g.MaxPlayers {
		return false
	}
	g.BotCount++
	g.BotTypes = append(g.BotTypes, botType)
	return true
}

// IsUserInGame reports whether username is a member of gameID.
func (r *Registry) IsUserInGame(username string, gameID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	return ok && g.hasClient(username)
}

// IsUserInAnyGames returns a game username is a member of. If, through misuse,
// there are several, the lowest id is reported.
func (r *Registry) IsUserInAnyGames(username string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstGameOfUnsafe(username)
}

// CheckClientInGames is IsUserInAnyGames for a client that is asking about
// itself; the query also counts as activity.
func (r *Registry) CheckClientInGames(username string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchUnsafe(username)
	return r.firstGameOfUnsafe(username)
}

func (r *Registry) firstGameOfUnsafe(username string) (int, bool) {
	for _, id := range r.sortedGameIDsUnsafe() {
		if r.games[id].hasClient(username) {
			return id, true
		}
	}
	return 0, false
}

func (r *Registry) sortedGameIDsUnsafe() []int {
	ids := make([]int, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// removeFromGamesUnsafe takes username out of every game, dropping games that
// end up empty.
func (r *Registry) removeFromGamesUnsafe(username string) {
	for id, g := range r.games {
		if g.removeClient(username) && len(g.Clients) == 0 {
			delete(r.games, id)
		}
	}
}

// GetGameInfo returns a copy of gameID's record.
func (r *Registry) GetGameInfo(gameID int) (GameInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok {
		return GameInfo{}, false
	}
	return g.clone(), true
}

// GamesList returns copies of all local games ordered by id.
func (r *Registry) GamesList() []GameInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GameInfo, 0, len(r.games))
	for _, id := range r.sortedGameIDsUnsafe() {
		out = append(out, r.games[id].clone())
	}
	return out
}
