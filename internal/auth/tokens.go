package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the decoded payload of a short-lived access token.
// It carries everything the UI needs to render the operator and every
// verification site needs to gate a request, so no lookup is required
// between refreshes.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// RotationClaims is the decoded payload of a long-lived rotation token.
// It carries identity only; role and display fields are re-fetched from
// the directory when a new access token is minted.
type RotationClaims struct {
	jwt.RegisteredClaims
}

// IssueAccessToken mints a signed access token for an operator.
// Access tokens are validated by signature alone (no directory hit).
func IssueAccessToken(op *Operator, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 30 //nolint:mnd // default 30-minute access token TTL
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Role:        op.Role,
		DisplayName: op.DisplayName,
		AvatarRef:   op.AvatarRef,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRotationToken mints a signed rotation token for an operator ID.
// The same rotation token stays valid until expiry; refresh re-mints
// access tokens without rotating it.
func IssueRotationToken(operatorID, secret string, ttlHours int) (string, error) {
	if ttlHours <= 0 {
		ttlHours = 30 * 24 //nolint:mnd // default 30-day rotation token TTL
	}

	now := time.Now()
	claims := RotationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing rotation token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates signature and expiry of an access token and
// returns its claims. Expired tokens fail with ErrTokenExpired, anything
// else with ErrTokenInvalid.
func ParseAccessToken(tokenString, secret string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, wrapParseError(err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}

// ParseRotationToken validates signature and expiry of a rotation token.
func ParseRotationToken(tokenString, secret string) (*RotationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RotationClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, wrapParseError(err)
	}

	claims, ok := token.Claims.(*RotationClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// wrapParseError maps jwt library errors onto the package sentinels.
func wrapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
}
