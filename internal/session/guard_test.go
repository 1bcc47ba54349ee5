package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gymhub/backoffice-core/internal/auth"
)

func testState(role auth.Role, expiresIn time.Duration, now time.Time) State {
	return State{
		AccessToken: "token",
		Claims: &auth.AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "op-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			},
			Role: role,
		},
	}
}

func TestState_Authenticated(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"valid session", testState(auth.RoleAdministrator, 30*time.Minute, now), true},
		{"expired token", testState(auth.RoleAdministrator, -time.Minute, now), false},
		{"empty state", State{}, false},
		{"token without claims", State{AccessToken: "token"}, false},
		{"claims without token", State{Claims: &auth.AccessClaims{}}, false},
		{
			"claims without expiry",
			State{
				AccessToken: "token",
				Claims:      &auth.AccessClaims{Role: auth.RoleTrainer},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Authenticated(now); got != tt.want {
				t.Errorf("Authenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuardAnonymous(t *testing.T) {
	now := time.Now()

	t.Run("unauthenticated user may view login", func(t *testing.T) {
		d := GuardAnonymous(State{}, now)
		if !d.Allow {
			t.Error("expected Allow for unauthenticated state")
		}
	})

	t.Run("expired session may view login", func(t *testing.T) {
		d := GuardAnonymous(testState(auth.RoleAdministrator, -time.Minute, now), now)
		if !d.Allow {
			t.Error("expected Allow for expired session")
		}
	})

	landings := []struct {
		role auth.Role
		want string
	}{
		{auth.RoleAdministrator, AdministratorLanding},
		{auth.RoleTrainer, TrainerLanding},
		{auth.RoleNutritionist, NutritionistLanding},
	}
	for _, tt := range landings {
		t.Run("authenticated "+string(tt.role)+" redirected to landing", func(t *testing.T) {
			d := GuardAnonymous(testState(tt.role, 30*time.Minute, now), now)
			if d.Allow {
				t.Error("expected redirect for authenticated state")
			}
			if d.Redirect != tt.want {
				t.Errorf("Redirect = %q, want %q", d.Redirect, tt.want)
			}
		})
	}
}

func TestGuardProtected(t *testing.T) {
	now := time.Now()
	adminOnly := []auth.Role{auth.RoleAdministrator}

	t.Run("unauthenticated redirected to login with return path", func(t *testing.T) {
		d := GuardProtected(State{}, adminOnly, "/operators", now)
		if d.Allow {
			t.Error("expected redirect")
		}
		if d.Redirect != LoginRoute {
			t.Errorf("Redirect = %q, want %q", d.Redirect, LoginRoute)
		}
		if d.ReturnTo != "/operators" {
			t.Errorf("ReturnTo = %q, want /operators", d.ReturnTo)
		}
		if d.Reconcile {
			t.Error("login redirect should not request reconciliation")
		}
	})

	t.Run("expired session redirected to login", func(t *testing.T) {
		d := GuardProtected(testState(auth.RoleAdministrator, -time.Minute, now), adminOnly, "/operators", now)
		if d.Redirect != LoginRoute {
			t.Errorf("Redirect = %q, want %q", d.Redirect, LoginRoute)
		}
	})

	t.Run("matching role allowed", func(t *testing.T) {
		d := GuardProtected(testState(auth.RoleAdministrator, 30*time.Minute, now), adminOnly, "/operators", now)
		if !d.Allow {
			t.Error("expected Allow for matching role")
		}
	})

	t.Run("wrong role redirected to denial with reconciliation", func(t *testing.T) {
		d := GuardProtected(testState(auth.RoleTrainer, 30*time.Minute, now), adminOnly, "/operators", now)
		if d.Allow {
			t.Error("expected redirect for wrong role")
		}
		if d.Redirect != DeniedRoute {
			t.Errorf("Redirect = %q, want %q", d.Redirect, DeniedRoute)
		}
		if !d.Reconcile {
			t.Error("denial redirect should request reconciliation")
		}
		if d.ReturnTo != "" {
			t.Errorf("ReturnTo = %q, want empty on denial", d.ReturnTo)
		}
	})

	t.Run("empty role set means any authenticated role", func(t *testing.T) {
		for _, role := range auth.ValidRoles {
			d := GuardProtected(testState(role, 30*time.Minute, now), nil, "/profile", now)
			if !d.Allow {
				t.Errorf("expected Allow for %s with empty role set", role)
			}
		}
	})
}
