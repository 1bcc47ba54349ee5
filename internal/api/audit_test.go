package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gymhub/backoffice-core/internal/audit"
	"github.com/gymhub/backoffice-core/internal/auth"
)

func TestListSessionEvents(t *testing.T) {
	s, repo := testServer(t)
	op := createOperator(t, repo, "admin@gymhub.com", "correct-password", auth.RoleAdministrator, true)

	// One successful login and one failure to populate the trail.
	var login sessionResponse
	doJSON(t, s, loginReq(t, "admin@gymhub.com", "correct-password"), &login)
	doJSON(t, s, loginReq(t, "admin@gymhub.com", "wrong-password"), nil)

	get := func(path string) (*http.Response, audit.ListResult) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+login.AccessToken)
		var body audit.ListResult
		resp := doJSON(t, s, req, &body)
		return resp, body
	}

	t.Run("full trail", func(t *testing.T) {
		resp, body := get("/api/v1/audit")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body.Total != 2 {
			t.Errorf("total = %d, want 2", body.Total)
		}
	})

	t.Run("filter by action", func(t *testing.T) {
		resp, body := get("/api/v1/audit?action=" + audit.ActionLoginFailed)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body.Total != 1 {
			t.Fatalf("total = %d, want 1", body.Total)
		}
		if body.Events[0].OperatorID != "" {
			t.Error("failed login event should carry no operator identity")
		}
	})

	t.Run("filter by operator", func(t *testing.T) {
		resp, body := get("/api/v1/audit?operatorId=" + op.ID)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body.Total != 1 {
			t.Errorf("total = %d, want 1", body.Total)
		}
		if body.Events[0].Action != audit.ActionLogin {
			t.Errorf("action = %q, want %q", body.Events[0].Action, audit.ActionLogin)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		resp, _ := get("/api/v1/audit?limit=abc")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestListSessionEvents_RoleGate(t *testing.T) {
	s, repo := testServer(t)
	createOperator(t, repo, "coach@gymhub.com", "correct-password", auth.RoleTrainer, true)

	var login sessionResponse
	doJSON(t, s, loginReq(t, "coach@gymhub.com", "correct-password"), &login)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	resp := doJSON(t, s, req, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}
