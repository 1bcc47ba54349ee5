package auth

import "time"

// Authorize is the role gate: a pure predicate deciding whether the
// given claims may pass a route requiring one of the listed roles.
//
// It allows iff the claims are present, unexpired at now, and the
// claimed role is in the required set. An empty required set means
// "any authenticated operator".
func Authorize(claims *AccessClaims, required []Role, now time.Time) bool {
	if claims == nil {
		return false
	}
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return false
	}
	if len(required) == 0 {
		return claims.Role != ""
	}
	for _, r := range required {
		if claims.Role == r {
			return true
		}
	}
	return false
}
