package auth

import (
	"context"
	"fmt"
)

// ServiceConfig carries the token settings the session core needs.
type ServiceConfig struct {
	// AccessSecret signs access tokens; the handshake verifies against it too.
	AccessSecret string

	// RotationSecret signs rotation tokens.
	RotationSecret string

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int

	// RotationTokenTTL is the rotation token lifetime in hours.
	RotationTokenTTL int
}

// Service implements the login and refresh flows on top of the
// operator directory and the token issuer.
type Service struct {
	operators OperatorRepository
	cfg       ServiceConfig

	// decoySalt/decoyHash are verified against when the email is unknown,
	// so lookup misses cost the same as a wrong password.
	decoySalt string
	decoyHash string
}

// Session is the outcome of a successful login or refresh.
// RotationToken is empty on refresh: the original token stays in use.
type Session struct {
	AccessToken   string
	RotationToken string
	Operator      *Operator
}

// NewService creates the session service.
func NewService(operators OperatorRepository, cfg ServiceConfig) (*Service, error) {
	if operators == nil {
		return nil, fmt.Errorf("operator repository is required")
	}
	if cfg.AccessSecret == "" || cfg.RotationSecret == "" {
		return nil, fmt.Errorf("both signing secrets are required")
	}

	decoySalt, decoyHash, err := HashCredential("decoy-credential")
	if err != nil {
		return nil, fmt.Errorf("preparing decoy credential: %w", err)
	}

	return &Service{
		operators: operators,
		cfg:       cfg,
		decoySalt: decoySalt,
		decoyHash: decoyHash,
	}, nil
}

// Login verifies the operator's credentials and mints both token classes.
//
// Malformed email, unknown email and wrong password all return
// ErrInvalidCredentials, with a decoy hash derivation on the miss paths
// so the outcomes are indistinguishable by timing as well as by value.
// An account outside the operator role set or deactivated fails with
// ErrForbidden / ErrOperatorInactive after the credential check, never
// before it.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if !IsValidEmail(email) {
		VerifyCredential(password, s.decoySalt, s.decoyHash)
		return nil, ErrInvalidCredentials
	}

	op, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		VerifyCredential(password, s.decoySalt, s.decoyHash)
		return nil, ErrInvalidCredentials
	}

	if !VerifyCredential(password, op.CredentialSalt, op.CredentialHash) {
		return nil, ErrInvalidCredentials
	}

	if !op.IsActive {
		return nil, ErrOperatorInactive
	}
	if !IsValidRole(op.Role) {
		return nil, ErrForbidden
	}

	access, err := IssueAccessToken(op, s.cfg.AccessSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	rotation, err := IssueRotationToken(op.ID, s.cfg.RotationSecret, s.cfg.RotationTokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:   access,
		RotationToken: rotation,
		Operator:      op,
	}, nil
}

// Rotate verifies a rotation token and mints a fresh access token from
// the operator's current directory record, so a role change takes
// effect on the next refresh rather than only on the next login. The
// rotation token itself is not rotated.
func (s *Service) Rotate(ctx context.Context, rotationToken string) (*Session, error) {
	claims, err := ParseRotationToken(rotationToken, s.cfg.RotationSecret)
	if err != nil {
		return nil, err
	}

	op, err := s.operators.GetByID(ctx, claims.Subject)
	if err != nil {
		// The account vanished since the token was issued.
		return nil, fmt.Errorf("%w: unknown subject", ErrTokenInvalid)
	}

	if !op.IsActive {
		return nil, ErrOperatorInactive
	}
	if !IsValidRole(op.Role) {
		return nil, ErrForbidden
	}

	access, err := IssueAccessToken(op, s.cfg.AccessSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken: access,
		Operator:    op,
	}, nil
}

// VerifyAccess validates an access token against the access secret.
// It is the single verification path shared by the HTTP middleware and
// the websocket handshake.
func (s *Service) VerifyAccess(tokenString string) (*AccessClaims, error) {
	return ParseAccessToken(tokenString, s.cfg.AccessSecret)
}
