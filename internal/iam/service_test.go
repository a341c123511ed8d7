package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/IcarusCoding/tracker-backend/internal/store"
)

func TestAuthenticate(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createTestUser(t, st, "alice", "s3cret")

	user, err := svc.Authenticate(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Name != "alice" {
		t.Errorf("name = %q, want alice", user.Name)
	}
	if user.PasswordHash == "" {
		t.Error("expected password hash to be loaded")
	}
}

// Unknown user and wrong password must be the same error so callers
// cannot probe which usernames exist.
func TestAuthenticateFailuresIndistinguishable(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createTestUser(t, st, "alice", "s3cret")

	_, errUnknown := svc.Authenticate(ctx, "nobody", "s3cret")
	_, errWrongPw := svc.Authenticate(ctx, "alice", "wrong")

	if !errors.Is(errUnknown, ErrUnauthorized) {
		t.Errorf("unknown user error = %v, want ErrUnauthorized", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrUnauthorized) {
		t.Errorf("wrong password error = %v, want ErrUnauthorized", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("failure messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestIssueAndResolve(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	created := createTestUser(t, st, "alice", "s3cret")

	pair, err := svc.IssueTokens(created)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", pair.TokenType)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}

	for _, raw := range []string{pair.AccessToken, pair.RefreshToken} {
		user, err := svc.ResolveUser(ctx, raw)
		if err != nil {
			t.Fatalf("ResolveUser: %v", err)
		}
		if user.ID != created.ID {
			t.Errorf("resolved user %q, want %q", user.ID, created.ID)
		}
	}
}

func TestResolveUserDeleted(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	created := createTestUser(t, st, "alice", "s3cret")

	pair, err := svc.IssueTokens(created)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	if err := st.Users.Delete(ctx, created.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	if _, err := svc.ResolveUser(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("resolving token of deleted user = %v, want ErrUnauthorized", err)
	}
}

func TestResolveUserBadToken(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ResolveUser(context.Background(), "bogus"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("resolving bogus token = %v, want ErrUnauthorized", err)
	}
}

func TestTokenCarriesPermissionSnapshot(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	created := createTestUser(t, st, "alice", "s3cret")

	role, err := st.Roles.Create(ctx, store.Fields{"name": "editor"})
	if err != nil {
		t.Fatalf("creating role: %v", err)
	}
	scope, err := st.Scopes.Create(ctx, store.Fields{"name": "docs:write"})
	if err != nil {
		t.Fatalf("creating scope: %v", err)
	}
	if err := st.AssignScope(ctx, role.ID, scope.ID); err != nil {
		t.Fatalf("assigning scope: %v", err)
	}
	if err := st.AssignRole(ctx, created.ID, role.ID); err != nil {
		t.Fatalf("assigning role: %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	pair, err := svc.IssueTokens(user)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	claims, err := parseToken(pair.AccessToken, testSignKey)
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "editor" {
		t.Errorf("roles = %v, want [editor]", claims.Roles)
	}
	if len(claims.Scopes) != 1 || claims.Scopes[0] != "docs:write" {
		t.Errorf("scopes = %v, want [docs:write]", claims.Scopes)
	}
}
