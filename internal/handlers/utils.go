package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/cambia-lobby/internal/auth"
)

var (
	errMissingToken = errors.New("missing auth_token")
	errStaleSession = errors.New("session is no longer valid")
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken finds the session token on r: the auth_token cookie, a bearer
// Authorization header, or a "token" query parameter (for websocket clients
// that cannot set headers).
func requestToken(r *http.Request) string {
	if tok := extractCookieToken(r.Header.Get("Cookie"), "auth_token"); tok != "" {
		return tok
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// authenticate resolves the caller to a live lobby session and marks it active.
func (s *LobbyServer) authenticate(r *http.Request) (string, int, error) {
	tok := requestToken(r)
	if tok == "" {
		return "", 0, errMissingToken
	}
	user, sid, err := auth.AuthenticateSessionToken(tok)
	if err != nil {
		return "", 0, err
	}
	if !s.Registry.CheckUserAndSession(user, sid) {
		return "", 0, errStaleSession
	}
	s.Registry.UpdateLastSeen(user)
	return user, sid, nil
}

// requireSession wraps a handler that needs a signed-in caller.
func (s *LobbyServer) requireSession(next func(w http.ResponseWriter, r *http.Request, user string, sid int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, sid, err := s.authenticate(r)
		if err != nil {
			status := http.StatusForbidden
			if errors.Is(err, errMissingToken) {
				status = http.StatusUnauthorized
			}
			writeError(w, status, "invalid_session", err.Error())
			return
		}
		next(w, r, user, sid)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"type":    typ,
		"message": msg,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
