// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a token stays valid; 0 means no exp claim.
	tokenTTL time.Duration
)

// ErrNotInitialised is returned when tokens are used before Init.
var ErrNotInitialised = errors.New("auth: signing keys not initialised")

// Claims is what a session token asserts about its bearer.
type Claims struct {
	SessionID uuid.UUID
	Nick      string
}

// Init generates a fresh ed25519 key pair at runtime and sets the token lifetime.
// Tokens therefore do not survive a restart, which matches the lifetime of the
// sessions they describe.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey = pub, priv
	tokenTTL = ttl
	return nil
}

// CreateJWT signs a token with "sub" = sessionID and the nick chosen at login.
func CreateJWT(sessionID uuid.UUID, nick string) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialised
	}
	claims := jwt.MapClaims{
		"sub":  sessionID.String(),
		"nick": nick,
		"iat":  time.Now().Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token string and returns its claims.
func AuthenticateJWT(tokenString string) (Claims, error) {
	if publicKey == nil {
		return Claims{}, ErrNotInitialised
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}

	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid jwt claims")
	}
	sub, ok := mc["sub"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("missing sub in jwt")
	}
	sid, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, fmt.Errorf("malformed sub in jwt: %w", err)
	}
	nick, _ := mc["nick"].(string)

	return Claims{SessionID: sid, Nick: nick}, nil
}
