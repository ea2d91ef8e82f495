// internal/handlers/user.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/cambia-lobby/internal/auth"
	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
)

type createUserRequest struct {
	Username     string `json:"user"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
	Avatar       string `json:"avatar"`
}

// CreateUserHandler registers a new account. The password hash is computed by
// the client and later proven through the login challenge.
func CreateUserHandler(s *LobbyServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
		if req.Username == "" || req.PasswordHash == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "user and password_hash are required")
			return
		}

		if s.Registry.IsUserRegistered(r.Context(), req.Username) {
			writeError(w, http.StatusConflict, "user_exists", "username is taken")
			return
		}
		if !s.Registry.RegisterUser(r.Context(), req.Username, req.PasswordHash, req.Email, req.Avatar) {
			writeError(w, http.StatusInternalServerError, "register_failed", "could not create user")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"type": "user_created",
			"user": req.Username,
		})
	}
}

type loginRequest struct {
	Username  string `json:"user"`
	Password  string `json:"passwd"`
	SessionID int    `json:"session_id"`
}

// LoginHandler drives the two-step login handshake. The first call (no
// session id) returns a salt; the second answers it with the challenge digest.
func LoginHandler(s *LobbyServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeBody(r, &req); err != nil || req.Username == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}

		res, err := s.Registry.ProcessUser(r.Context(), req.Username, req.Password, req.SessionID)
		if err != nil {
			s.Logger.WithError(err).WithField("user", req.Username).Error("login failed")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "account store unavailable")
			return
		}

		switch res.Action {
		case lobby.ActionSendSalt:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"type":       "password_request",
				"salt":       res.Session.Salt,
				"session_id": res.Session.SessionID,
			})
		case lobby.ActionUserNotFound:
			writeError(w, http.StatusNotFound, "unknown_user", "no such user")
		case lobby.ActionPasswordFailed:
			writeError(w, http.StatusForbidden, "password_failed", "wrong password")
		case lobby.ActionBadSessionID:
			writeError(w, http.StatusConflict, "bad_session_id", "session id does not match")
		case lobby.ActionLoginSuccess:
			token, err := auth.CreateSessionToken(req.Username, res.Session.SessionID)
			if err != nil {
				s.Logger.WithError(err).WithField("user", req.Username).Error("failed to sign session token")
				writeError(w, http.StatusInternalServerError, "token_failed", "could not create token")
				return
			}
			cookie := &http.Cookie{
				Name:     "auth_token",
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			if exp := auth.TokenExpiry(); exp > 0 {
				cookie.Expires = time.Now().Add(exp)
			}
			http.SetCookie(w, cookie)

			s.Registry.PostMessageToAll(lobby.Message{"type": "user_signed_in", "user": req.Username})
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"type":       "login_success",
				"session_id": res.Session.SessionID,
				"token":      token,
			})
		}
	}
}

func (s *LobbyServer) logout(w http.ResponseWriter, r *http.Request, user string, sid int) {
	if !s.Registry.SignOff(user, sid) {
		writeError(w, http.StatusForbidden, "invalid_session", "session already closed")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "", Path: "/", MaxAge: -1})
	s.Registry.PostMessageToAll(lobby.Message{"type": "user_signed_off", "user": user})
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "signed_off"})
}

func (s *LobbyServer) getProfile(w http.ResponseWriter, r *http.Request, user string, _ int) {
	profile, ok := s.Registry.FetchProfile(r.Context(), user)
	if !ok {
		writeError(w, http.StatusNotFound, "no_profile", "profile unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    "profile",
		"user":    user,
		"profile": profile,
	})
}

func (s *LobbyServer) putProfile(w http.ResponseWriter, r *http.Request, user string, _ int) {
	var data map[string]interface{}
	if err := decodeBody(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "profile must be a JSON object")
		return
	}
	if !s.Registry.StoreProfile(r.Context(), user, data) {
		writeError(w, http.StatusInternalServerError, "store_failed", "could not save profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "profile_saved"})
}
