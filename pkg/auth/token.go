package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "nightgate"

	ScopeRunsRead   = "runs:read"
	ScopeEventsRead = "events:read"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSigningKey = errors.New("no signing key configured")
)

type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

func (c *Claims) HasScope(required string) bool {
	for _, scope := range strings.Split(c.Scope, ",") {
		if strings.TrimSpace(scope) == required {
			return true
		}
	}
	return false
}

// TokenManager issues and validates HS256 API tokens for the run history
// API.
type TokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenManager(signingKey []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{signingKey: signingKey, ttl: ttl}
}

func (m *TokenManager) Generate(subject string, scopes ...string) (string, error) {
	if len(m.signingKey) == 0 {
		return "", ErrNoSigningKey
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeRunsRead, ScopeEventsRead}
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  subject,
			Issuer:   issuer,
		},
		Scope: strings.Join(scopes, ","),
	}
	if m.ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	if len(m.signingKey) == 0 {
		return nil, ErrNoSigningKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
