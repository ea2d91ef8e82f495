// internal/lobby/servers.go
package lobby

import "sort"

// ServerInfo describes a lobby server taking part in the federation. Peers
// push these verbatim; nothing here is validated.
type ServerInfo struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name"`
	MinPlayers  int                    `json:"min_players"`
	MinHumans   int                    `json:"min_humans"`
	MaxPlayers  int                    `json:"max_players"`
	HasBots     bool                   `json:"has_bots"`
	Address     string                 `json:"server_address"`
	Port        string                 `json:"server_port"`
	Other       map[string]interface{} `json:"other,omitempty"`
}

// RemoteGame is a game mirrored from a peer server.
type RemoteGame struct {
	Server string `json:"server"`
	GameInfo
}

// AddServer records si, replacing an earlier entry with the same name.
func (r *Registry) AddServer(si ServerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.servers {
		if r.servers[i].Name == si.Name {
			r.servers[i] = si
			return
		}
	}
	r.servers = append(r.servers, si)
	r.log.WithField("server", si.Name).Info("peer server added")
}

// Servers returns the known peer servers in the order they were first added.
func (r *Registry) Servers() []ServerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServerInfo(nil), r.servers...)
}

// ReplaceRemoteGames swaps the mirrored game list of server for games.
func (r *Registry) ReplaceRemoteGames(server string, games []GameInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mirror := make([]GameInfo, len(games))
	for i := range games {
		mirror[i] = games[i].clone()
	}
	r.remoteGames[server] = mirror
}

// RemoteGames returns every mirrored game, ordered by server then id.
func (r *Registry) RemoteGames() []RemoteGame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RemoteGame
	for server, games := range r.remoteGames {
		for i := range games {
			out = append(out, RemoteGame{Server: server, GameInfo: games[i].clone()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Server != out[j].Server {
			return out[i].Server < out[j].Server
		}
		return out[i].ID < out[j].ID
	})
	return out
}
