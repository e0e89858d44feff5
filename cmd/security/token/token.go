package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// A token is renewed after renewalNum/renewalDen of its remaining lifetime.
const (
	renewalNum = 7
	renewalDen = 10
)

// ExpiresAt returns the "exp" claim of raw without verifying its signature.
func ExpiresAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMalformedToken
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMissingExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// RefreshAt returns the instant at which a token expiring at exp should be renewed,
// given that it was received at now. An already expired token yields an instant
// at or before now.
func RefreshAt(now, exp time.Time) time.Time {
	// Divide first: Sub saturates, so the product cannot overflow.
	period := exp.Sub(now) / renewalDen * renewalNum
	// Whole milliseconds, matching the platform's clock resolution.
	return now.Add(period.Truncate(time.Millisecond))
}

// RefreshTimeFor decodes raw and computes its renewal instant relative to now.
func RefreshTimeFor(raw string, now time.Time) (time.Time, error) {
	exp, err := ExpiresAt(raw)
	if err != nil {
		return time.Time{}, err
	}
	return RefreshAt(now, exp), nil
}
