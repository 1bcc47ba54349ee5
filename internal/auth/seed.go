package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed password.
const seedPasswordBytes = 16

// SeedAdministrator creates the initial administrator account on first
// boot if the directory is empty. The generated password is logged once
// and must be changed immediately. Returns the generated password
// (empty string if seeding was skipped).
func SeedAdministrator(ctx context.Context, operators OperatorRepository, logger *slog.Logger) (string, error) {
	count, err := operators.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking operator count: %w", err)
	}

	if count > 0 {
		logger.Info("operators exist, skipping administrator seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	salt, hash, err := HashCredential(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &Operator{
		Email:          "admin@gymhub.com",
		DisplayName:    "Administrator",
		CredentialSalt: salt,
		CredentialHash: hash,
		Role:           RoleAdministrator,
		IsActive:       true,
	}

	if err := operators.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed administrator: %w", err)
	}

	logger.Warn("seed administrator account created",
		"email", admin.Email,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
