package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionTTL is how long a session token stays valid
	SessionTTL = 24 * time.Hour

	RoleSuperAdmin = "super_admin"
	SuperAdminID   = "admin"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type SessionClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	Role    string `json:"role,omitempty"`
}

// IsSuperAdmin reports whether the token was issued to the environment
// configured administrator rather than to a stored account
func (c *SessionClaims) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin && c.UserID == SuperAdminID
}

type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
	}
}

// Issue signs a session token for a stored user
func (s *Sessions) Issue(userID, email string, isAdmin bool) (string, error) {
	if userID == "" {
		return "", errors.New("no user ID provided")
	}

	return s.sign(&SessionClaims{
		UserID:  userID,
		Email:   email,
		IsAdmin: isAdmin,
	})
}

// IssueSuperAdmin signs a token for the environment configured administrator
func (s *Sessions) IssueSuperAdmin(email string) (string, error) {
	return s.sign(&SessionClaims{
		UserID:  SuperAdminID,
		Email:   email,
		IsAdmin: true,
		Role:    RoleSuperAdmin,
	})
}

func (s *Sessions) sign(c *SessionClaims) (string, error) {
	now := s.now()

	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	c.Subject = c.UserID

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)

	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token, %w", err)
	}

	return signed, nil
}

// Parse validates a token and returns its claims. Expired tokens return
// ErrTokenExpired, everything else that fails returns ErrTokenInvalid.
func (s *Sessions) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
