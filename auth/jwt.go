package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

type Claims struct {
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token carried an exp claim that is before now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// ParseClaims reads the token claims without verifying the signature; the server does that.
func ParseClaims(tokenString string) (Claims, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("invalid JWT format")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid JWT claims")
	}

	var out Claims
	if sub, ok := claims["sub"].(string); ok {
		out.Subject = sub
	}
	if exp, ok := claims["exp"].(float64); ok {
		t := time.Unix(int64(exp), 0)
		out.ExpiresAt = &t
	}
	return out, nil
}

// UserID returns the sub claim of the stored token.
func UserID(p Provider) (string, error) {
	token := p.Token()
	if token == "" {
		return "", fmt.Errorf("not signed in")
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("missing sub in token")
	}
	return claims.Subject, nil
}
