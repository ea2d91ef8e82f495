package models

import "github.com/google/uuid"

// User is an account record held by the persistence gateway.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar"`

	// PasswordHash is the client-side hash supplied at registration. Logins
	// prove knowledge of it by answering a salted challenge.
	PasswordHash string `json:"-"`
}
