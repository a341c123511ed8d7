package iam

import (
	"context"
	"testing"
)

func TestScopeRegistry(t *testing.T) {
	reg := NewScopeRegistry()

	reg.Register("devices:read")
	reg.Register("devices:read") // duplicate is a no-op
	reg.Register("devices:create")
	reg.Register("") // ignored

	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "devices:create" || names[1] != "devices:read" {
		t.Errorf("Names() = %v, want sorted [devices:create devices:read]", names)
	}
}

func TestBootstrap(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reg := NewScopeRegistry()
	reg.Register("users:read")
	reg.Register("users:create")
	reg.Register("devices:read")

	if err := Bootstrap(ctx, st, reg, "admin", "changeme", testLogger()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	admin, err := st.GetUserByName(ctx, "admin")
	if err != nil {
		t.Fatalf("loading admin: %v", err)
	}
	if !admin.HasAnyRole(AdminRole) {
		t.Errorf("admin roles = %v, want %q membership", admin.RoleNames(), AdminRole)
	}
	for _, scope := range reg.Names() {
		if !admin.HasScope(scope) {
			t.Errorf("admin missing scope %q", scope)
		}
	}

	ok, err := VerifyPassword("changeme", admin.PasswordHash)
	if err != nil || !ok {
		t.Errorf("admin password did not verify (ok=%v err=%v)", ok, err)
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reg := NewScopeRegistry()
	reg.Register("users:read")

	if err := Bootstrap(ctx, st, reg, "admin", "changeme", testLogger()); err != nil {
		t.Fatalf("first Bootstrap: %v", err)
	}
	if err := Bootstrap(ctx, st, reg, "admin", "changeme", testLogger()); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}

	users, err := st.Users.Count(ctx)
	if err != nil {
		t.Fatalf("counting users: %v", err)
	}
	if users != 1 {
		t.Errorf("users = %d, want 1", users)
	}

	scopes, err := st.Scopes.Count(ctx)
	if err != nil {
		t.Fatalf("counting scopes: %v", err)
	}
	if scopes != 1 {
		t.Errorf("scopes = %d, want 1", scopes)
	}
}

// A scope registered after the first boot is seeded on the next run.
func TestBootstrapPicksUpNewScopes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reg := NewScopeRegistry()
	reg.Register("users:read")

	if err := Bootstrap(ctx, st, reg, "admin", "changeme", testLogger()); err != nil {
		t.Fatalf("first Bootstrap: %v", err)
	}

	reg.Register("devices:read")
	if err := Bootstrap(ctx, st, reg, "admin", "changeme", testLogger()); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}

	admin, err := st.GetUserByName(ctx, "admin")
	if err != nil {
		t.Fatalf("loading admin: %v", err)
	}
	if !admin.HasScope("devices:read") {
		t.Error("admin missing scope registered after first boot")
	}
}
