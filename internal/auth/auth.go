package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"metadesk-backend/internal/metadata"
)

// Claims represents the JWT claims. Tokens are issued by an external
// identity service; Organization scopes persisted preferences.
type Claims struct {
	jwt.RegisteredClaims
	Organization string   `json:"org,omitempty"`
	Roles        []string `json:"roles"`
}

const AccessTokenTTL = 15 * time.Minute

// User converts the claims to the request's user context.
func (c *Claims) User() *metadata.UserContext {
	return &metadata.UserContext{
		ID:             c.Subject,
		OrganizationID: c.Organization,
		Roles:          c.Roles,
	}
}

// GenerateAccessToken creates a signed JWT for user. A zero ttl uses
// AccessTokenTTL.
func GenerateAccessToken(user metadata.UserContext, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = AccessTokenTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Organization: user.OrganizationID,
		Roles:        user.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates and parses a JWT, returning the claims.
func ParseAccessToken(tokenStr string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// HashAPIKey hashes an agent API key for the agent.api_key_hash setting.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// CheckAPIKey compares a plaintext API key against a bcrypt hash.
func CheckAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
