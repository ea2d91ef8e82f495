// internal/lobby/session.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jason-s-yu/cambia-lobby/internal/auth"
	"github.com/sirupsen/logrus"
)

// LoginAction is the outcome of a ProcessUser call.
type LoginAction int

const (
	// ActionSendSalt asks the client to hash its credentials with the returned salt.
	ActionSendSalt LoginAction = iota
	// ActionUserNotFound means the account store has no such user.
	ActionUserNotFound
	// ActionPasswordFailed means the challenge answer did not match.
	ActionPasswordFailed
	// ActionLoginSuccess means the client is now signed in.
	ActionLoginSuccess
	// ActionBadSessionID means the presented session id is not the one we issued.
	ActionBadSessionID
)

func (a LoginAction) String() string {
	switch a {
	case ActionSendSalt:
		return "send_salt"
	case ActionUserNotFound:
		return "user_not_found"
	case ActionPasswordFailed:
		return "password_failed"
	case ActionLoginSuccess:
		return "login_success"
	case ActionBadSessionID:
		return "bad_session_id"
	}
	return fmt.Sprintf("LoginAction(%d)", int(a))
}

// ClientSession is the registry's record of one client.
type ClientSession struct {
	SessionID int
	Salt      string
	IsHuman   bool
	SignedIn  bool

	// Counter correlates deferred replies; the registry only stores it.
	Counter int
	// LastSeen counts sweep ticks left before the session expires.
	LastSeen int

	queue *MessageQueue
	conn  WaitingConn
}

func (r *Registry) newClientSession(isHuman bool, salt string) *ClientSession {
	return &ClientSession{
		SessionID: r.makeSessionIDUnsafe(),
		Salt:      salt,
		IsHuman:   isHuman,
		LastSeen:  r.reload,
		queue:     newMessageQueue(),
	}
}

// SessionInfo is the caller-visible part of a ClientSession.
type SessionInfo struct {
	SessionID int    `json:"session_id"`
	Salt      string `json:"salt,omitempty"`
	IsHuman   bool   `json:"is_human"`
	SignedIn  bool   `json:"signed_in"`
}

func (cs *ClientSession) info() SessionInfo {
	return SessionInfo{
		SessionID: cs.SessionID,
		Salt:      cs.Salt,
		IsHuman:   cs.IsHuman,
		SignedIn:  cs.SignedIn,
	}
}

// LoginResult pairs a LoginAction with the session it concerns. Session is
// zero for ActionUserNotFound, ActionPasswordFailed and ActionBadSessionID.
type LoginResult struct {
	Action  LoginAction
	Session SessionInfo
}

// UserSummary is one row of the lobby's user list.
type UserSummary struct {
	Name     string `json:"name"`
	IsHuman  bool   `json:"is_human"`
	SignedIn bool   `json:"signed_in"`
	GameID   int    `json:"game_id,omitempty"`
}

// ProcessUser runs one step of the salted login handshake for username.
//
// A client without a session (sessionID <= 0, or nothing on record) is handed
// a fresh session id and salt; a pending challenge for the name is replaced.
// The client then answers with the challenge digest of its stored hash and the
// session id it was given. A signed-in session is never replaced by a new
// challenge: any attempt that does not present its id is bad_session_id, and
// a correct answer under that id moves the session to a fresh id. A non-nil
// error means the account store failed and no state was changed.
func (r *Registry) ProcessUser(ctx context.Context, username, passwordHash string, sessionID int) (LoginResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.gateway.LookupCredentials(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{Action: ActionUserNotFound}, nil
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup credentials for %q: %w", username, err)
	}

	cs, exists := r.clients[username]
	signedIn := exists && cs.SignedIn
	if !signedIn && (!exists || sessionID <= 0) {
		salt, err := auth.NewSalt()
		if err != nil {
			return LoginResult{}, fmt.Errorf("generate salt: %w", err)
		}
		if exists {
			r.replaceClientUnsafe(username)
		}
		cs = r.newClientSession(true, salt)
		r.clients[username] = cs
		r.sessions[cs.SessionID] = username
		r.log.WithFields(logrus.Fields{"user": username, "session_id": cs.SessionID}).Debug("issued login challenge")
		return LoginResult{Action: ActionSendSalt, Session: cs.info()}, nil
	}

	if cs.SessionID != sessionID {
		return LoginResult{Action: ActionBadSessionID}, nil
	}
	if !auth.VerifyChallenge(user.PasswordHash, cs.Salt, passwordHash) {
		return LoginResult{Action: ActionPasswordFailed}, nil
	}

	delete(r.sessions, cs.SessionID)
	cs.SessionID = r.makeSessionIDUnsafe()
	r.sessions[cs.SessionID] = username
	cs.SignedIn = true
	cs.LastSeen = r.reload
	r.log.WithFields(logrus.Fields{"user": username, "session_id": cs.SessionID}).Info("user signed in")
	return LoginResult{Action: ActionLoginSuccess, Session: cs.info()}, nil
}

// CheckAddClient registers username as an already signed-in client if the
// name is free. Server-side clients such as bots use this instead of the
// login handshake.
func (r *Registry) CheckAddClient(username string, isHuman bool) (SessionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[username]; exists {
		return SessionInfo{}, false
	}
	cs := r.newClientSession(isHuman, "")
	cs.SignedIn = true
	r.clients[username] = cs
	r.sessions[cs.SessionID] = username
	return cs.info(), true
}

// SignOff ends the signed-in session of username if sessionID matches.
// Queued messages are discarded and the user leaves every game it was in. A
// pending challenge cannot be signed off; it is replaced or expires.
func (r *Registry) SignOff(username string, sessionID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.signedInUnsafe(username)
	if !ok || cs.SessionID != sessionID {
		return false
	}
	r.removeClientUnsafe(username)
	r.log.WithField("user", username).Info("user signed off")
	return true
}

// CheckUserAndSession reports whether username is signed in under sessionID.
func (r *Registry) CheckUserAndSession(username string, sessionID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkUserAndSessionUnsafe(username, sessionID)
}

func (r *Registry) checkUserAndSessionUnsafe(username string, sessionID int) bool {
	cs, ok := r.clients[username]
	return ok && cs.SignedIn && cs.SessionID == sessionID
}

func (r *Registry) signedInUnsafe(username string) (*ClientSession, bool) {
	cs, ok := r.clients[username]
	if !ok || !cs.SignedIn {
		return nil, false
	}
	return cs, true
}

// UpdateLastSeen resets the idle budget of username.
func (r *Registry) UpdateLastSeen(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchUnsafe(username)
}

func (r *Registry) touchUnsafe(username string) {
	if cs, ok := r.clients[username]; ok {
		cs.LastSeen = r.reload
	}
}

// SweepIdle ages every session by one tick and expires those that reach
// zero, exactly as if they had signed off. It returns the expired usernames.
// Call it once per second.
func (r *Registry) SweepIdle() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for name, cs := range r.clients {
		if cs.LastSeen > 0 {
			cs.LastSeen--
		}
		if cs.LastSeen == 0 {
			expired = append(expired, name)
		}
	}
	sort.Strings(expired)
	for _, name := range expired {
		r.removeClientUnsafe(name)
		r.log.WithField("user", name).Info("session expired")
	}
	return expired
}

// SessionID returns the current session id of username.
func (r *Registry) SessionID(username string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.clients[username]
	if !ok {
		return 0, false
	}
	return cs.SessionID, true
}

// NextCounter increments and returns the deferred-reply counter of username.
func (r *Registry) NextCounter(username string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.clients[username]
	if !ok {
		return 0, false
	}
	cs.Counter++
	return cs.Counter, true
}

// UserList returns every known client ordered by name.
func (r *Registry) UserList() []UserSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UserSummary, 0, len(r.clients))
	for name, cs := range r.clients {
		u := UserSummary{Name: name, IsHuman: cs.IsHuman, SignedIn: cs.SignedIn}
		if gid, ok := r.firstGameOfUnsafe(name); ok {
			u.GameID = gid
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// removeClientUnsafe forgets username entirely, including game memberships.
func (r *Registry) removeClientUnsafe(username string) {
	r.replaceClientUnsafe(username)
	r.removeFromGamesUnsafe(username)
}

// replaceClientUnsafe drops the session record of username but leaves its
// game memberships alone, so a re-login keeps the player seated.
func (r *Registry) replaceClientUnsafe(username string) {
	cs, ok := r.clients[username]
	if !ok {
		return
	}
	delete(r.sessions, cs.SessionID)
	delete(r.clients, username)
	cs.conn = nil
}
