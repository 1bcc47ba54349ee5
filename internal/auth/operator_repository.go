package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperatorRepository defines the directory interface the session core
// depends on. The directory is owned by the surrounding application;
// the core only reads records at login and refresh time, plus the
// operations needed for seeding and the admin listing.
type OperatorRepository interface {
	Create(ctx context.Context, op *Operator) error
	GetByID(ctx context.Context, id string) (*Operator, error)
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	List(ctx context.Context) ([]Operator, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	SetActive(ctx context.Context, id string, active bool) error
	SetCredential(ctx context.Context, id, saltHex, hashHex string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteOperatorRepository implements OperatorRepository using SQLite.
type SQLiteOperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository creates a new SQLite-backed operator repository.
func NewOperatorRepository(db *sql.DB) *SQLiteOperatorRepository {
	return &SQLiteOperatorRepository{db: db}
}

const operatorColumns = "id, email, display_name, avatar_ref, credential_hash, credential_salt, role, is_active, created_at, updated_at"

// Create inserts a new operator record. The ID is generated if empty.
// Emails are stored lowercased so lookups are case-insensitive.
func (r *SQLiteOperatorRepository) Create(ctx context.Context, op *Operator) error {
	if op.ID == "" {
		op.ID = "op-" + uuid.NewString()[:8]
	}
	op.Email = strings.ToLower(op.Email)

	now := time.Now().UTC().Format(time.RFC3339)
	op.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	op.UpdatedAt = op.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operators (id, email, display_name, avatar_ref, credential_hash, credential_salt, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Email, op.DisplayName, nullString(op.AvatarRef),
		op.CredentialHash, op.CredentialSalt, string(op.Role),
		boolToInt(op.IsActive), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating operator: %w", err)
	}

	return nil
}

// GetByID retrieves an operator by their unique ID.
func (r *SQLiteOperatorRepository) GetByID(ctx context.Context, id string) (*Operator, error) {
	return r.getOperator(ctx,
		"SELECT "+operatorColumns+" FROM operators WHERE id = ?", id)
}

// GetByEmail retrieves an operator by email (case-insensitive).
func (r *SQLiteOperatorRepository) GetByEmail(ctx context.Context, email string) (*Operator, error) {
	return r.getOperator(ctx,
		"SELECT "+operatorColumns+" FROM operators WHERE email = ?", strings.ToLower(email))
}

// List returns all operators ordered by creation date.
func (r *SQLiteOperatorRepository) List(ctx context.Context) ([]Operator, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+operatorColumns+" FROM operators ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing operators: %w", err)
	}
	defer rows.Close()

	var ops []Operator
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operators: %w", err)
	}

	if ops == nil {
		ops = []Operator{}
	}
	return ops, nil
}

// UpdateRole changes an operator's role. The change takes effect on the
// operator's next access-token refresh, not only on next login.
func (r *SQLiteOperatorRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	return r.updateField(ctx,
		"UPDATE operators SET role = ?, updated_at = ? WHERE id = ?", string(role), id)
}

// SetActive enables or disables an operator account.
func (r *SQLiteOperatorRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateField(ctx,
		"UPDATE operators SET is_active = ?, updated_at = ? WHERE id = ?", boolToInt(active), id)
}

// SetCredential replaces an operator's stored salt and hash.
func (r *SQLiteOperatorRepository) SetCredential(ctx context.Context, id, saltHex, hashHex string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE operators SET credential_salt = ?, credential_hash = ?, updated_at = ? WHERE id = ?",
		saltHex, hashHex, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating credential: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrOperatorNotFound
	}
	return nil
}

// Count returns the total number of operator records.
func (r *SQLiteOperatorRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operators").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting operators: %w", err)
	}
	return count, nil
}

// updateField runs a single-column update taking (value, updated_at, id).
func (r *SQLiteOperatorRepository) updateField(ctx context.Context, query string, value any, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx, query, value, now, id)
	if err != nil {
		return fmt.Errorf("updating operator: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrOperatorNotFound
	}
	return nil
}

// getOperator executes a query and scans a single operator result.
func (r *SQLiteOperatorRepository) getOperator(ctx context.Context, query string, args ...any) (*Operator, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanOperator(row)
}

// scanner is the shared Scan interface of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanOperator scans an operator row in operatorColumns order.
func scanOperator(s scanner) (*Operator, error) {
	var op Operator
	var avatarRef sql.NullString
	var isActive int
	var createdAt, updatedAt string

	err := s.Scan(&op.ID, &op.Email, &op.DisplayName, &avatarRef,
		&op.CredentialHash, &op.CredentialSalt, (*string)(&op.Role),
		&isActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("scanning operator: %w", err)
	}

	op.IsActive = isActive != 0
	if avatarRef.Valid {
		op.AvatarRef = avatarRef.String
	}
	op.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	op.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &op, nil
}

// Helper functions.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
