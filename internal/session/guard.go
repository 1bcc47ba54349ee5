package session

import (
	"time"

	"github.com/gymhub/backoffice-core/internal/auth"
)

// Navigation routes used by the guards.
const (
	LoginRoute  = "/login"
	DeniedRoute = "/denied"

	AdministratorLanding = "/dashboard"
	TrainerLanding       = "/training"
	NutritionistLanding  = "/nutrition"
)

// State mirrors what a client holds after a successful login or refresh:
// the raw access token plus its decoded claims. Both are cleared together
// on logout or a failed refresh.
type State struct {
	AccessToken string
	Claims      *auth.AccessClaims
}

// Authenticated reports whether the state carries a non-expired access
// token with decoded claims.
func (s State) Authenticated(now time.Time) bool {
	if s.AccessToken == "" || s.Claims == nil {
		return false
	}
	if s.Claims.ExpiresAt == nil {
		return false
	}
	return now.Before(s.Claims.ExpiresAt.Time)
}

// Decision is the outcome of evaluating a guard at navigation time.
type Decision struct {
	// Allow is true when navigation may proceed to the requested route.
	Allow bool

	// Redirect is the route to navigate to instead when Allow is false.
	Redirect string

	// ReturnTo preserves the originally requested route so it can be
	// restored after login. Only set when redirecting to the login route.
	ReturnTo string

	// Reconcile is set when the client should attempt one refresh and,
	// if that fails, a logout, to bring a stale local session back in
	// line with the server before the user retries.
	Reconcile bool
}

// GuardAnonymous gates routes meant only for unauthenticated users, such
// as the login surface. An already-authenticated user is sent to the
// landing route for their role.
func GuardAnonymous(state State, now time.Time) Decision {
	if !state.Authenticated(now) {
		return Decision{Allow: true}
	}
	return Decision{Redirect: LandingRoute(state.Claims.Role)}
}

// GuardProtected gates routes that require an authenticated session and,
// optionally, membership in a role set. A missing or expired session
// redirects to login with the requested route preserved; an authenticated
// session with the wrong role redirects to the denial route, where the
// client reconciles its local session against the server.
func GuardProtected(state State, required []auth.Role, requestedPath string, now time.Time) Decision {
	if !state.Authenticated(now) {
		return Decision{Redirect: LoginRoute, ReturnTo: requestedPath}
	}
	if auth.Authorize(state.Claims, required, now) {
		return Decision{Allow: true}
	}
	return Decision{Redirect: DeniedRoute, Reconcile: true}
}

// LandingRoute returns the post-login destination for a role. Unknown
// roles fall back to the administrator landing.
func LandingRoute(role auth.Role) string {
	switch role {
	case auth.RoleTrainer:
		return TrainerLanding
	case auth.RoleNutritionist:
		return NutritionistLanding
	default:
		return AdministratorLanding
	}
}
