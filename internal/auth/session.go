// Package auth issues and validates the session tokens the API hands out
// after a successful upstream login. The upstream bearer token rides inside
// the signed session token so every later request can be relayed without the
// server keeping per-user state.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserSession is the request-scoped identity decoded from a session token.
type UserSession struct {
	UserLogin     string
	UpstreamToken string
}

// SessionManager signs and validates session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager creates a manager with the given signing secret and
// token lifetime.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed session token for the user.
func (m *SessionManager) Issue(userLogin, upstreamToken string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userLogin,
		"upstream": upstreamToken,
		"iat":      now.Unix(),
		"exp":      now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a session token and returns the session it carries.
func (m *SessionManager) Validate(tokenString string) (*UserSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userLogin, ok := claims["sub"].(string)
	if !ok || userLogin == "" {
		return nil, fmt.Errorf("missing subject in token")
	}
	upstream, ok := claims["upstream"].(string)
	if !ok || upstream == "" {
		return nil, fmt.Errorf("missing upstream token")
	}

	return &UserSession{UserLogin: userLogin, UpstreamToken: upstream}, nil
}
