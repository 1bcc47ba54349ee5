package auth

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the operators schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE operators (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			avatar_ref TEXT,
			credential_hash TEXT NOT NULL,
			credential_salt TEXT NOT NULL,
			role TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create operators schema: %v", err)
	}

	return db
}

// createTestOperator inserts an operator with a hashed credential.
func createTestOperator(t *testing.T, repo OperatorRepository, email, password string, role Role) *Operator {
	t.Helper()

	salt, hash, err := HashCredential(password)
	if err != nil {
		t.Fatalf("hashing test credential: %v", err)
	}

	op := &Operator{
		Email:          email,
		DisplayName:    "Test Operator",
		CredentialSalt: salt,
		CredentialHash: hash,
		Role:           role,
		IsActive:       true,
	}
	if err := repo.Create(context.Background(), op); err != nil {
		t.Fatalf("creating test operator: %v", err)
	}

	return op
}

// testServiceConfig returns a ServiceConfig with distinct test secrets.
func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		AccessSecret:     "test-access-secret-for-jwt-signing-0001",
		RotationSecret:   "test-rotation-secret-for-jwt-signing-01",
		AccessTokenTTL:   30,
		RotationTokenTTL: 720,
	}
}
