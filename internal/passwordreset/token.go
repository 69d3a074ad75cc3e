package passwordreset

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenPurpose = "password_reset"

type resetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// mintResetToken issues a short-lived HS256 token bound to the account email.
// The purpose claim keeps reset tokens from doubling as access tokens.
func mintResetToken(secret, issuer, email string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}

	claims := resetClaims{
		Purpose: tokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseResetToken verifies signature, expiry and purpose, returning the email
// the token was issued for.
func parseResetToken(secret, issuer, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &resetClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*resetClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid reset token")
	}
	if claims.Purpose != tokenPurpose {
		return "", fmt.Errorf("token purpose mismatch")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("reset token missing subject")
	}
	return claims.Subject, nil
}
