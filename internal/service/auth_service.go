package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var nowFunc = time.Now

// Common auth errors.
var (
	ErrMissingUserID = errors.New("token carries no user id")
)

// Role is the platform role carried in a backend-issued token.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

// UserID accepts a numeric or string id claim.
type UserID string

func (u *UserID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*u = UserID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*u = UserID(s)
	return nil
}

// Claims is the subset of the backend's token claims this service reads.
type Claims struct {
	jwt.RegisteredClaims
	UserID UserID `json:"userId,omitempty"`
	Role   Role   `json:"role,omitempty"`
	Email  string `json:"email,omitempty"`
}

// ID returns the user id, falling back to the subject claim.
func (c *Claims) ID() string {
	if c.UserID != "" {
		return string(c.UserID)
	}
	return c.Subject
}

// HasRole reports whether the token allows role. Tokens that carry no role
// are accepted for any role; the backend still authorizes every call.
func (c *Claims) HasRole(roles ...Role) bool {
	if c.Role == "" {
		return true
	}
	for _, r := range roles {
		if strings.EqualFold(string(c.Role), string(r)) {
			return true
		}
	}
	return false
}

// AuthService decodes bearer tokens issued by the quiz backend. The token
// itself is forwarded unchanged on every backend call.
type AuthService struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuthService creates an AuthService. With an empty secret, signatures
// are not checked and only the claims are decoded.
func NewAuthService(secret string) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})),
	}
}

// Verifies reports whether signatures are checked.
func (s *AuthService) Verifies() bool { return len(s.secret) > 0 }

// ValidateToken decodes tokenStr into Claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	if s.Verifies() {
		token, err := s.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return nil, errors.New("invalid token claims")
		}
	} else {
		if _, _, err := s.parser.ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		if exp := claims.ExpiresAt; exp != nil && exp.Before(nowFunc()) {
			return nil, fmt.Errorf("decode token: %w", jwt.ErrTokenExpired)
		}
	}

	if claims.ID() == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}
