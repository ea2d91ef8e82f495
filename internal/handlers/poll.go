// internal/handlers/poll.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/sirupsen/logrus"
)

// parkedConn is the handle a request parks with the registry while it waits.
// The registry delivers at most one message to it, so a single slot suffices.
type parkedConn struct {
	ch chan lobby.Message
}

func newParkedConn() *parkedConn {
	return &parkedConn{ch: make(chan lobby.Message, 1)}
}

// Deliver implements lobby.WaitingConn. It never blocks.
func (p *parkedConn) Deliver(msg lobby.Message) {
	select {
	case p.ch <- msg:
	default:
	}
}

// take returns a message that was delivered before the slot was cleared.
func (p *parkedConn) take() (lobby.Message, bool) {
	select {
	case msg := <-p.ch:
		return msg, true
	default:
		return nil, false
	}
}

// unpark clears conn's slot. A message that raced in before the slot was
// cleared is returned so the caller can still hand it out.
func (s *LobbyServer) unpark(user string, conn *parkedConn) (lobby.Message, bool) {
	s.Registry.ClearWaitingConnection(user, conn)
	return conn.take()
}

// poll answers with everything queued for the caller, or parks the request
// until a message arrives or PollTimeout passes.
func (s *LobbyServer) poll(w http.ResponseWriter, r *http.Request, user string, _ int) {
	if msgs := s.Registry.MessageQueue(user).Drain(); len(msgs) > 0 {
		s.writeMessages(w, user, msgs)
		return
	}

	conn := newParkedConn()
	if !s.Registry.SetWaitingConnection(user, conn) {
		writeError(w, http.StatusForbidden, "invalid_session", "session is no longer valid")
		return
	}

	timer := time.NewTimer(s.PollTimeout)
	defer timer.Stop()

	select {
	case msg := <-conn.ch:
		s.writeMessages(w, user, []lobby.Message{msg})
	case <-timer.C:
		if msg, ok := s.unpark(user, conn); ok {
			s.writeMessages(w, user, []lobby.Message{msg})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "heartbeat"})
	case <-r.Context().Done():
		if msg, ok := s.unpark(user, conn); ok {
			// The client is gone; put the message back at the head of the queue.
			s.Registry.RequeueMessage(user, msg)
		}
		s.Logger.WithField("user", user).Debug("poll abandoned by client")
	}
}

func (s *LobbyServer) writeMessages(w http.ResponseWriter, user string, msgs []lobby.Message) {
	counter, _ := s.Registry.NextCounter(user)
	s.Logger.WithFields(logrus.Fields{"user": user, "count": len(msgs), "counter": counter}).Debug("delivering messages")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":     "messages",
		"counter":  counter,
		"messages": msgs,
	})
}
