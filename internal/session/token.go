package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a backend token without verifying the
// signature; only the backend can verify it. Opaque tokens report no expiry.
func TokenExpiry(token string) (*time.Time, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing session token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading token expiry: %w", err)
	}
	if exp == nil {
		return nil, nil
	}
	t := exp.Time
	return &t, nil
}
