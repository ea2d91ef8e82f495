// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/jason-s-yu/cambia-lobby/internal/middleware"
)

// LobbyWSHandler streams the caller's messages over a websocket. The handler
// parks with the registry, writes whatever is delivered, and parks again.
// Client frames are not read; actions go through the HTTP endpoints.
func LobbyWSHandler(s *LobbyServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		user, _, err := s.authenticate(r)
		if err != nil {
			code := websocket.StatusCode(InvalidAuthTokenError)
			if errors.Is(err, errStaleSession) {
				code = InvalidSessionError
			}
			c.Close(code, err.Error())
			return
		}

		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path, user)
		ctx := c.CloseRead(r.Context())
		err = s.streamMessages(ctx, c, user)
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, user, err)

		if errors.Is(err, errStaleSession) {
			c.Close(InvalidSessionError, "session ended")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// streamMessages runs until the client goes away or the session ends. Every
// PollTimeout without traffic it re-parks, which keeps the session alive for
// as long as the socket is open.
func (s *LobbyServer) streamMessages(ctx context.Context, c *websocket.Conn, user string) error {
	if err := s.flushQueue(ctx, c, user); err != nil {
		return err
	}
	for {
		conn := newParkedConn()
		if !s.Registry.SetWaitingConnection(user, conn) {
			return errStaleSession
		}

		timer := time.NewTimer(s.PollTimeout)
		select {
		case msg := <-conn.ch:
			timer.Stop()
			if err := s.writeWS(ctx, c, msg); err != nil {
				return err
			}
		case <-timer.C:
			if msg, ok := s.unpark(user, conn); ok {
				if err := s.writeWS(ctx, c, msg); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			timer.Stop()
			if msg, ok := s.unpark(user, conn); ok {
				s.Registry.RequeueMessage(user, msg)
			}
			return ctx.Err()
		}
	}
}

// flushQueue sends anything that piled up before the socket was opened.
func (s *LobbyServer) flushQueue(ctx context.Context, c *websocket.Conn, user string) error {
	for _, msg := range s.Registry.MessageQueue(user).Drain() {
		if err := s.writeWS(ctx, c, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *LobbyServer) writeWS(ctx context.Context, c *websocket.Conn, msg lobby.Message) error {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(wctx, c, msg)
}
