package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gymhub/backoffice-core/internal/auth"
)

func TestLogin_Success(t *testing.T) {
	s, repo := testServer(t)
	op := createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)

	var body sessionResponse
	resp := doJSON(t, s, loginReq(t, "admin@gymhub.com", "correct-password"), &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.AccessToken == "" {
		t.Error("response should carry an access token")
	}
	if body.User.UserID != op.ID {
		t.Errorf("user.userId = %q, want %q", body.User.UserID, op.ID)
	}
	if body.User.Role != auth.RoleAdministrator {
		t.Errorf("user.role = %q, want %q", body.User.Role, auth.RoleAdministrator)
	}

	// Decoded token role must match the stored role.
	claims, err := s.authSvc.VerifyAccess(body.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess() error: %v", err)
	}
	if claims.Role != auth.RoleAdministrator {
		t.Errorf("token role = %q, want %q", claims.Role, auth.RoleAdministrator)
	}
}

func TestLogin_SetsRotationCookie(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)

	resp := doJSON(t, s, loginReq(t, "admin@gymhub.com", "correct-password"), nil)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "gymhub_rotation" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login should set the rotation cookie")
	}
	if cookie.Value == "" {
		t.Error("rotation cookie should carry the token")
	}
	if !cookie.HttpOnly {
		t.Error("rotation cookie must be HttpOnly")
	}
	if !cookie.Secure {
		t.Error("rotation cookie must be Secure")
	}
	if cookie.SameSite != http.SameSiteNoneMode {
		t.Errorf("rotation cookie SameSite = %v, want None", cookie.SameSite)
	}
	if cookie.Path != "/api/v1/auth" {
		t.Errorf("rotation cookie Path = %q, want /api/v1/auth", cookie.Path)
	}
	if cookie.MaxAge != 720*3600 {
		t.Errorf("rotation cookie MaxAge = %d, want 30 days", cookie.MaxAge)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	s, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"missing password", `{"email":"a@b.com"}`},
		{"missing email", `{"password":"secret"}`},
		{"invalid JSON", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body))
			resp := doJSON(t, s, req, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

// Wrong password and unknown email must be indistinguishable on the wire.
func TestLogin_IndistinguishableFailures(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "known@gymhub.com", "correct-password", auth.RoleTrainer, true)

	readResp := func(req *http.Request) (int, string) {
		w := httptest.NewRecorder()
		s.buildRouter().ServeHTTP(w, req)
		resp := w.Result()
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // recorder body
		return resp.StatusCode, string(body)
	}

	wrongPassStatus, wrongPassBody := readResp(loginReq(t, "known@gymhub.com", "wrong-password"))
	unknownStatus, unknownBody := readResp(loginReq(t, "nobody@gymhub.com", "whatever"))

	if wrongPassStatus != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", wrongPassStatus)
	}
	if unknownStatus != wrongPassStatus {
		t.Errorf("unknown email status = %d, wrong password status = %d; must match", unknownStatus, wrongPassStatus)
	}
	if unknownBody != wrongPassBody {
		t.Errorf("failure bodies differ:\n%s\n%s", wrongPassBody, unknownBody)
	}
}

func TestLogin_InactiveOperator(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "gone@gymhub.com", "correct-password", auth.RoleTrainer, false)

	resp := doJSON(t, s, loginReq(t, "gone@gymhub.com", "correct-password"), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

// rotationCookieFromLogin logs in and returns the rotation cookie.
func rotationCookieFromLogin(t *testing.T, s *Server, email, password string) *http.Cookie {
	t.Helper()

	resp := doJSON(t, s, loginReq(t, email, password), nil)
	for _, c := range resp.Cookies() {
		if c.Name == "gymhub_rotation" {
			return c
		}
	}
	t.Fatal("login did not set the rotation cookie")
	return nil
}

func TestRefresh_Success(t *testing.T) {
	s, repo := testServer(t)
	op := createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)
	cookie := rotationCookieFromLogin(t, s, "admin@gymhub.com", "correct-password")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(cookie)

	var body sessionResponse
	resp := doJSON(t, s, req, &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.AccessToken == "" {
		t.Error("refresh should return a fresh access token")
	}
	if body.User.UserID != op.ID {
		t.Errorf("user.userId = %q, want %q", body.User.UserID, op.ID)
	}
}

// A role change takes effect on the next refresh without a new login.
func TestRefresh_ReflectsRoleChange(t *testing.T) {
	s, repo := testServer(t)
	op := createOperator(t, repo, "coach@gymhub.com", "correct-password", auth.RoleTrainer, true)
	cookie := rotationCookieFromLogin(t, s, "coach@gymhub.com", "correct-password")

	if err := repo.UpdateRole(context.Background(), op.ID, auth.RoleAdministrator); err != nil {
		t.Fatalf("UpdateRole() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(cookie)

	var body sessionResponse
	resp := doJSON(t, s, req, &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.User.Role != auth.RoleAdministrator {
		t.Errorf("refreshed role = %q, want %q", body.User.Role, auth.RoleAdministrator)
	}

	claims, err := s.authSvc.VerifyAccess(body.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess() error: %v", err)
	}
	if claims.Role != auth.RoleAdministrator {
		t.Errorf("token role = %q, want %q", claims.Role, auth.RoleAdministrator)
	}
}

func TestRefresh_NoCookie(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	resp := doJSON(t, s, req, nil)

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRefresh_TamperedCookie(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)
	cookie := rotationCookieFromLogin(t, s, "admin@gymhub.com", "correct-password")
	cookie.Value += "tampered"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(cookie)
	resp := doJSON(t, s, req, nil)

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	// The useless cookie must be cleared.
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == "gymhub_rotation" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("tampered rotation cookie should be cleared")
	}
}

func TestLogout(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)

	t.Run("without cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		resp := doJSON(t, s, req, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want 204", resp.StatusCode)
		}
	})

	t.Run("with cookie", func(t *testing.T) {
		cookie := rotationCookieFromLogin(t, s, "admin@gymhub.com", "correct-password")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.AddCookie(cookie)
		resp := doJSON(t, s, req, nil)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}

		cleared := false
		for _, c := range resp.Cookies() {
			if c.Name == "gymhub_rotation" && c.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Error("logout should clear the rotation cookie")
		}
	})
}

func TestMe(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)

	var login sessionResponse
	doJSON(t, s, loginReq(t, "admin@gymhub.com", "correct-password"), &login)

	t.Run("with bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+login.AccessToken)

		var me userPayload
		resp := doJSON(t, s, req, &me)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if me.UserID != login.User.UserID {
			t.Errorf("userId = %q, want %q", me.UserID, login.User.UserID)
		}
		if me.Role != auth.RoleAdministrator {
			t.Errorf("role = %q, want %q", me.Role, auth.RoleAdministrator)
		}
	})

	t.Run("without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		resp := doJSON(t, s, req, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("with malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Token "+login.AccessToken)
		resp := doJSON(t, s, req, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("with garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp := doJSON(t, s, req, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestListOperators_RoleGate(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)
	createOperator(t, repo, "coach@gymhub.com", "correct-password", auth.RoleTrainer, true)

	token := func(email string) string {
		var login sessionResponse
		doJSON(t, s, loginReq(t, email, "correct-password"), &login)
		return login.AccessToken
	}

	t.Run("administrator allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/operators", nil)
		req.Header.Set("Authorization", "Bearer "+token("admin@gymhub.com"))

		var body struct {
			Operators []operatorSummary `json:"operators"`
			Count     int               `json:"count"`
		}
		resp := doJSON(t, s, req, &body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body.Count != 2 {
			t.Errorf("count = %d, want 2", body.Count)
		}
		for _, op := range body.Operators {
			if op.Email == "" || op.UserID == "" {
				t.Errorf("operator summary incomplete: %+v", op)
			}
		}
	})

	t.Run("trainer denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/operators", nil)
		req.Header.Set("Authorization", "Bearer "+token("coach@gymhub.com"))
		resp := doJSON(t, s, req, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("anonymous denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/operators", nil)
		resp := doJSON(t, s, req, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

// Oversized login bodies are rejected by the body-size limit.
func TestLogin_OversizedBody(t *testing.T) {
	s, _ := testServer(t)

	huge := bytes.Repeat([]byte("a"), maxRequestBodySize+1)
	body := append([]byte(`{"email":"`), huge...)
	body = append(body, []byte(`","password":"x"}`)...)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	resp := doJSON(t, s, req, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
