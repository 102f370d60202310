// Package auth issues and verifies JWT bearer tokens and defines the
// caller identity threaded through every lifecycle operation.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rideway/internal/types"
)

const (
	RoleUser   = "user"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

// Identity is the authenticated caller. Core services trust it for
// ownership checks.
type Identity struct {
	UserID types.ID
	Role   string
}

var ErrInvalidToken = errors.New("invalid or expired token")

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

func (m *Manager) Issue(userID types.ID, role string) (string, error) {
	now := time.Now()
	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

func (m *Manager) Verify(token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: types.ID(c.Subject), Role: c.Role}, nil
}
