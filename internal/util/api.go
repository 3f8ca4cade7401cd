package util

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func parseClaims(jwtString string) (*jwt.RegisteredClaims, error) {
	p := jwt.NewParser(jwt.WithoutClaimsValidation())
	var claims jwt.RegisteredClaims
	if _, _, err := p.ParseUnverified(jwtString, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse jwt: %w", err)
	}
	return &claims, nil
}

// GetExpiryFromJWT extracts the expiration time from a JWT token. The bool is false when the token has no exp claim.
func GetExpiryFromJWT(jwtString string) (time.Time, bool, error) {
	claims, err := parseClaims(jwtString)
	if err != nil {
		return time.Time{}, false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}

// GetSubjectFromJWT extracts the subject (user id) from a JWT token
func GetSubjectFromJWT(jwtString string) (string, error) {
	claims, err := parseClaims(jwtString)
	if err != nil {
		return "", err
	}
	return claims.GetSubject()
}
