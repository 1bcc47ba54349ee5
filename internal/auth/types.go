package auth

import (
	"errors"
	"strings"
	"time"
)

// Role represents an operator tier in the back office.
// Values match the role strings stored in the directory.
type Role string

const (
	// RoleAdministrator has full back-office control: operators, plans,
	// payments, machines, content.
	RoleAdministrator Role = "Administrador"

	// RoleTrainer manages training plans and machine/exercise records.
	RoleTrainer Role = "Treinador"

	// RoleNutritionist manages nutrition plans.
	RoleNutritionist Role = "Nutricionista"
)

// ValidRoles is the set of roles allowed to operate the back office.
var ValidRoles = []Role{RoleAdministrator, RoleTrainer, RoleNutritionist}

// IsValidRole returns true if the role belongs to the operator set.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Operator is a back-office account record as the directory returns it.
// The core treats the directory as read-mostly: it looks records up by
// email at login and by ID at refresh time.
type Operator struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	// CredentialHash and CredentialSalt are hex-encoded and never serialised.
	CredentialHash string    `json:"-"`
	CredentialSalt string    `json:"-"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// maxEmailLength bounds stored email addresses.
const maxEmailLength = 254

// IsValidEmail checks the minimal shape the directory accepts.
// Full RFC validation is deliberately out of scope.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so callers cannot distinguish which factor failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrOperatorNotFound = errors.New("operator not found")
	ErrOperatorInactive = errors.New("operator account is inactive")
	ErrEmailExists      = errors.New("email already registered")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrForbidden        = errors.New("insufficient role")
)
