// internal/lobby/accounts.go
package lobby

import (
	"context"
	"errors"

	"github.com/jason-s-yu/cambia-lobby/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrUserNotFound is returned by a Gateway when no account exists for a username.
var ErrUserNotFound = errors.New("user not found")

// Gateway is the persistent account store behind the lobby.
type Gateway interface {
	// LookupCredentials returns the account for username or ErrUserNotFound.
	LookupCredentials(ctx context.Context, username string) (*models.User, error)
	// InsertUser creates a new account.
	InsertUser(ctx context.Context, user *models.User) error
	// GetProfile returns the free-form data stored for username, or ErrUserNotFound.
	GetProfile(ctx context.Context, username string) (map[string]interface{}, error)
	// SetProfile replaces the free-form data stored for username.
	SetProfile(ctx context.Context, username string, data map[string]interface{}) error
}

// IsUserRegistered reports whether the account store knows username.
func (r *Registry) IsUserRegistered(ctx context.Context, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.gateway.LookupCredentials(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		r.log.WithError(err).WithField("user", username).Warn("account lookup failed")
	}
	return err == nil
}

// RegisterUser creates an account. It returns false if the store rejects the
// insert, including when the username is already taken.
func (r *Registry) RegisterUser(ctx context.Context, username, passwordHash, email, avatar string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Avatar:       avatar,
	}
	if err := r.gateway.InsertUser(ctx, u); err != nil {
		r.log.WithError(err).WithField("user", username).Warn("account insert failed")
		return false
	}
	r.log.WithField("user", username).Info("registered new account")
	return true
}

// FetchUser returns the stored account record for username.
func (r *Registry) FetchUser(ctx context.Context, username string) (*models.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.gateway.LookupCredentials(ctx, username)
	if err != nil {
		r.logGatewayError(err, username, "account lookup failed")
		return nil, false
	}
	return u, true
}

// FetchProfile returns the free-form data stored for username.
func (r *Registry) FetchProfile(ctx context.Context, username string) (map[string]interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.gateway.GetProfile(ctx, username)
	if err != nil {
		r.logGatewayError(err, username, "profile lookup failed")
		return nil, false
	}
	return data, true
}

// StoreProfile replaces the free-form data stored for username.
func (r *Registry) StoreProfile(ctx context.Context, username string, data map[string]interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.gateway.SetProfile(ctx, username, data); err != nil {
		r.logGatewayError(err, username, "profile store failed")
		return false
	}
	return true
}

func (r *Registry) logGatewayError(err error, username, msg string) {
	if errors.Is(err, ErrUserNotFound) {
		return
	}
	r.log.WithError(err).WithFields(logrus.Fields{"user": username}).Warn(msg)
}
