package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gymhub/backoffice-core/internal/audit"
	"github.com/gymhub/backoffice-core/internal/auth"
	"github.com/gymhub/backoffice-core/internal/infrastructure/telemetry"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the response body for successful login and refresh.
type sessionResponse struct {
	AccessToken string      `json:"accessToken"`
	User        userPayload `json:"user"`
}

// userPayload is the operator identity shape exposed to clients.
type userPayload struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	AvatarRef   string    `json:"avatarRef,omitempty"`
	Role        auth.Role `json:"role"`
}

func operatorPayload(op *auth.Operator) userPayload {
	return userPayload{
		UserID:      op.ID,
		DisplayName: op.DisplayName,
		AvatarRef:   op.AvatarRef,
		Role:        op.Role,
	}
}

// handleLogin verifies credentials and opens a session: the access token
// travels in the response body, the rotation token in an HTTP-only cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	session, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.recordLogin(telemetry.LoginOutcomeRejected)
			s.recordSession(r, audit.ActionLoginFailed, "")
			writeUnauthorized(w, "invalid credentials")
		case errors.Is(err, auth.ErrOperatorInactive), errors.Is(err, auth.ErrForbidden):
			s.recordLogin(telemetry.LoginOutcomeForbidden)
			s.recordSession(r, audit.ActionLoginFailed, "")
			writeForbidden(w, "account is not permitted to operate the back office")
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, "login failed")
		}
		return
	}

	s.recordLogin(telemetry.LoginOutcomeSuccess)
	s.recordSession(r, audit.ActionLogin, session.Operator.ID)
	s.setRotationCookie(w, session.RotationToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: session.AccessToken,
		User:        operatorPayload(session.Operator),
	})
}

// handleRefresh mints a new access token from the rotation cookie. The
// returned identity reflects the operator's current directory record, so
// role changes take effect here without a fresh login.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(s.secCfg.Cookie.Name)
	if err != nil {
		writeUnauthorized(w, "no session to refresh")
		return
	}

	session, err := s.authSvc.Rotate(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenInvalid):
			// Stale cookie is useless; clear it so the client stops retrying.
			s.clearRotationCookie(w)
			writeForbidden(w, "session can no longer be refreshed")
		case errors.Is(err, auth.ErrOperatorInactive), errors.Is(err, auth.ErrForbidden):
			s.clearRotationCookie(w)
			writeForbidden(w, "account is not permitted to operate the back office")
		default:
			s.logger.Error("refresh failed", "error", err)
			writeInternalError(w, "refresh failed")
		}
		return
	}

	if s.telemetry != nil {
		s.telemetry.WriteTokenRotation()
	}
	s.recordSession(r, audit.ActionRefresh, session.Operator.ID)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: session.AccessToken,
		User:        operatorPayload(session.Operator),
	})
}

// handleLogout clears the rotation cookie. Returns 204 when there was no
// cookie to clear.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(s.secCfg.Cookie.Name); err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.clearRotationCookie(w)
	s.recordSession(r, audit.ActionLogout, "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe returns the identity decoded from the presented access token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, userPayload{
		UserID:      claims.Subject,
		DisplayName: claims.DisplayName,
		AvatarRef:   claims.AvatarRef,
		Role:        claims.Role,
	})
}

// setRotationCookie attaches the rotation token as an HTTP-only cookie
// scoped to the auth endpoints. SameSite=None because the back-office
// front end is served from a different origin than the API.
func (s *Server) setRotationCookie(w http.ResponseWriter, token string) {
	ttl := time.Duration(s.secCfg.JWT.RotationTokenTTL) * time.Hour
	http.SetCookie(w, &http.Cookie{
		Name:     s.secCfg.Cookie.Name,
		Value:    token,
		Path:     s.secCfg.Cookie.Path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearRotationCookie expires the rotation cookie immediately.
func (s *Server) clearRotationCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.secCfg.Cookie.Name,
		Value:    "",
		Path:     s.secCfg.Cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// recordLogin writes a login outcome to telemetry when it is enabled.
func (s *Server) recordLogin(outcome string) {
	if s.telemetry != nil {
		s.telemetry.WriteLoginEvent(outcome)
	}
}

// recordSession appends an entry to the session trail. Best effort: a
// trail failure never fails the request.
func (s *Server) recordSession(r *http.Request, action, operatorID string) {
	if s.audit == nil {
		return
	}
	ev := &audit.Event{
		Action:     action,
		OperatorID: operatorID,
		Source:     "http",
	}
	if err := s.audit.Create(r.Context(), ev); err != nil {
		s.logger.Warn("recording session event failed", "error", err)
	}
}
