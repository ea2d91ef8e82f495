// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby stream.
const (
	BadSubprotocolError   = 3000 // Client didn't negotiate the "lobby" subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	InvalidSessionError   = 3002 // Token was fine but the lobby session behind it is gone.
)
