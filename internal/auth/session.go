// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpiry is how long an issued token stays valid (0 => never).
	tokenExpiry time.Duration
)

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init(expiry time.Duration) error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	tokenExpiry = expiry
	return nil
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string, expiry time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("unexpected ed25519 key size")
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenExpiry = expiry
	return nil
}

// TokenExpiry returns the configured lifetime of issued tokens.
func TokenExpiry() time.Duration {
	return tokenExpiry
}

// CreateSessionToken signs a token binding username ("sub") to the lobby
// session id ("sid"). The registry remains the authority on whether the
// session is still live; the token only carries the pair between requests.
func CreateSessionToken(username string, sessionID int) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"sid": sessionID,
		"iat": time.Now().Unix(),
	}
	if tokenExpiry > 0 {
		claims["exp"] = time.Now().Add(tokenExpiry).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateSessionToken verifies a token and returns the username and session id it carries.
func AuthenticateSessionToken(tokenString string) (string, int, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", 0, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", 0, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}

	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", 0, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	// numeric claims decode as float64
	sid, ok := claims["sid"].(float64)
	if !ok {
		return "", 0, fmt.Errorf("%w: missing sid", ErrInvalidToken)
	}

	return username, int(sid), nil
}
