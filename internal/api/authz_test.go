package api

import (
	"net/http"
	"testing"

	"github.com/IcarusCoding/tracker-backend/internal/iam"
)

// A fresh user has no roles, so every gated route answers 403 even with
// a perfectly valid token.
func TestScopeGateForbidsUnprivileged(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin")
	env.createUserViaAPI(t, admin, "alice", "s3cret")
	alice := env.login(t, "alice", "s3cret")

	cases := []struct {
		method string
		path   string
		body   map[string]string
	}{
		{http.MethodGet, "/users/", nil},
		{http.MethodPost, "/users/", map[string]string{"name": "mallory", "password": "x"}},
		{http.MethodGet, "/devices/", nil},
		{http.MethodPost, "/devices/create", map[string]string{"name": "rogue"}},
		{http.MethodPost, "/scopes/admin/scopes/users:read", nil},
	}

	for _, tc := range cases {
		resp := env.request(t, tc.method, tc.path, alice, tc.body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s %s as alice = %d, want 403", tc.method, tc.path, resp.StatusCode)
		}
	}
}

// Granting a single scope opens exactly that action and nothing else.
func TestScopeGrantOpensSingleAction(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin")
	alice := env.createUserViaAPI(t, admin, "alice", "s3cret")

	env.grantScope(t, admin, alice, "viewer", "users:read")

	// Tokens snapshot permissions at issuance: a token from before the
	// grant stays unprivileged, a fresh one carries the scope.
	token := env.login(t, "alice", "s3cret")

	resp := env.request(t, http.MethodGet, "/users/", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /users/ with users:read = %d, want 200", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/users/", token, map[string]string{
		"name": "mallory", "password": "x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("POST /users/ with only users:read = %d, want 403", resp.StatusCode)
	}
}

func TestTokenPermissionSnapshot(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin")
	alice := env.createUserViaAPI(t, admin, "alice", "s3cret")

	// Token issued before any grant.
	stale := env.login(t, "alice", "s3cret")

	env.grantScope(t, admin, alice, "viewer", "users:read")

	resp := env.request(t, http.MethodGet, "/users/", stale, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("stale token after grant = %d, want 403 (claims are issuance snapshots)", resp.StatusCode)
	}
}

// The role-assignment extension needs the admin role itself, not just
// the scope.
func TestAssignRoleRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin")
	alice := env.createUserViaAPI(t, admin, "alice", "s3cret")
	bob := env.createUserViaAPI(t, admin, "bob", "s3cret")

	// Give alice the scope but not the admin role.
	env.grantScope(t, admin, alice, "assigner", "roles:assign")
	token := env.login(t, "alice", "s3cret")

	resp := env.request(t, http.MethodPost, "/roles/"+bob.ID+"/roles/assigner", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("assign without admin role = %d, want 403", resp.StatusCode)
	}

	// Admin passes both gates.
	resp = env.request(t, http.MethodPost, "/roles/"+bob.ID+"/roles/assigner", admin, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("assign as admin = %d, want 200", resp.StatusCode)
	}

	// And the assignment is idempotent.
	resp = env.request(t, http.MethodPost, "/roles/"+bob.ID+"/roles/assigner", admin, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeat assign = %d, want 200", resp.StatusCode)
	}
}

func TestAssignRoleUnknownTargets(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin")
	alice := env.createUserViaAPI(t, admin, "alice", "s3cret")

	resp := env.request(t, http.MethodPost, "/roles/no-such-user/roles/admin", admin, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("assign to unknown user = %d, want 404", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/roles/"+alice.ID+"/roles/no-such-role", admin, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("assign unknown role = %d, want 404", resp.StatusCode)
	}
}

func TestAssignScopeToRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin")

	resp := env.request(t, http.MethodPost, "/roles/", admin, map[string]string{"name": "editor"})
	resp.Body.Close()
	resp = env.request(t, http.MethodPost, "/scopes/", admin, map[string]string{"name": "docs:write"})
	resp.Body.Close()

	resp = env.request(t, http.MethodPost, "/scopes/editor/scopes/docs:write", admin, nil)
	var role iam.Role
	decodeBody(t, resp, &role)

	if len(role.Scopes) != 1 || role.Scopes[0].Name != "docs:write" {
		t.Errorf("role scopes = %v, want [docs:write]", role.Scopes)
	}
}
