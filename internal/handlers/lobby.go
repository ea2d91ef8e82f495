// internal/handlers/lobby.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/sirupsen/logrus"
)

type gameRequest struct {
	GameID     int    `json:"game_id"`
	GameType   string `json:"game_type"`
	MaxPlayers int    `json:"max_players"`
	User       string `json:"user"`
	BotType    string `json:"bot_type"`
}

func (s *LobbyServer) listGames(w http.ResponseWriter, r *http.Request, _ string, _ int) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":         "games",
		"games":        s.Registry.GamesList(),
		"remote_games": s.Registry.RemoteGames(),
	})
}

func (s *LobbyServer) listUsers(w http.ResponseWriter, r *http.Request, _ string, _ int) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":  "users",
		"users": s.Registry.UserList(),
	})
}

func (s *LobbyServer) listServers(w http.ResponseWriter, r *http.Request, _ string, _ int) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    "servers",
		"servers": s.Registry.Servers(),
	})
}

func (s *LobbyServer) createGame(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req gameRequest
	if err := decodeBody(r, &req); err != nil || req.GameType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "game_type and max_players are required")
		return
	}
	id, ok := s.Registry.CreateGame(user, req.GameType, req.MaxPlayers)
	if !ok {
		writeError(w, http.StatusBadRequest, "create_failed", "could not create game")
		return
	}
	s.Registry.PostMessageToAll(lobby.Message{
		"type":      "game_created",
		"game_id":   id,
		"game_type": req.GameType,
		"user":      user,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "game_created", "game_id": id})
}

// joinGame seats the caller, or with "user" set, seats another signed-in
// client in a game the caller already belongs to.
func (s *LobbyServer) joinGame(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req gameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	joiner := user
	var ok bool
	if req.User != "" && req.User != user {
		joiner = req.User
		ok = s.Registry.AddClientToGame(req.GameID, user, req.User)
	} else {
		ok = s.Registry.JoinGame(user, req.GameID)
	}
	if !ok {
		writeError(w, http.StatusConflict, "join_failed", "cannot join game")
		return
	}
	s.Registry.PostMessageToGameClients(req.GameID, lobby.Message{
		"type":    "player_joined",
		"game_id": req.GameID,
		"user":    joiner,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "joined", "game_id": req.GameID})
}

func (s *LobbyServer) leaveGame(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req gameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if !s.Registry.LeaveGame(user, req.GameID) {
		writeError(w, http.StatusConflict, "leave_failed", "not in game")
		return
	}
	s.Registry.PostMessageToGameClients(req.GameID, lobby.Message{
		"type":    "player_left",
		"game_id": req.GameID,
		"user":    user,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "left", "game_id": req.GameID})
}

func (s *LobbyServer) removeGame(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req gameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	info, ok := s.Registry.GetGameInfo(req.GameID)
	if !ok || !s.Registry.RemoveGame(user, req.GameID) {
		writeError(w, http.StatusConflict, "remove_failed", "cannot remove game")
		return
	}
	for _, member := range info.Clients {
		if member == user {
			continue
		}
		s.Registry.PostMessageToClient(member, lobby.Message{
			"type":    "game_removed",
			"game_id": req.GameID,
			"user":    user,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "game_removed", "game_id": req.GameID})
}

func (s *LobbyServer) startGame(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req gameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if !s.Registry.StartGame(user, req.GameID) {
		writeError(w, http.StatusConflict, "start_failed", "cannot start game")
		return
	}
	s.Logger.WithFields(logrus.Fields{"user": user, "game_id": req.GameID}).Info("game started")
	s.Registry.PostMessageToGameClients(req.GameID, lobby.Message{
		"type":    "game_started",
		"game_id": req.GameID,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "game_started", "game_id": req.GameID})
}

func (s *LobbyServer) addBot(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req gameRequest
	if err := decodeBody(r, &req); err != nil || req.BotType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "game_id and bot_type are required")
		return
	}
	if !s.Registry.AddBot(user, req.GameID, req.BotType) {
		writeError(w, http.StatusConflict, "bot_failed", "cannot add bot")
		return
	}
	s.Registry.PostMessageToGameClients(req.GameID, lobby.Message{
		"type":     "bot_added",
		"game_id":  req.GameID,
		"bot_type": req.BotType,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "bot_added", "game_id": req.GameID})
}

type chatRequest struct {
	To     string `json:"to"`
	GameID int    `json:"game_id"`
	Msg    string `json:"msg"`
}

// chat relays a message to one user (to), a game (game_id), or everyone.
func (s *LobbyServer) chat(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil || req.Msg == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "msg is required")
		return
	}
	msg := lobby.Message{
		"type": "chat",
		"from": user,
		"msg":  req.Msg,
		"ts":   time.Now().Unix(),
	}

	switch {
	case req.To != "":
		if !s.Registry.PostMessageToClient(req.To, msg) {
			writeError(w, http.StatusNotFound, "unknown_user", "recipient is not online")
			return
		}
	case req.GameID != 0:
		if !s.Registry.IsUserInGame(user, req.GameID) {
			writeError(w, http.StatusForbidden, "not_in_game", "not a member of that game")
			return
		}
		msg["game_id"] = req.GameID
		s.Registry.PostMessageToGameClients(req.GameID, msg)
	default:
		s.Registry.PostMessageToAll(msg)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "sent"})
}
