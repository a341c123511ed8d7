package iam

import (
	"context"
	"errors"
	"fmt"

	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/logging"
	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// AdminRole is the role name that bypasses scope gates on admin-only
// extension routes and is granted every registered scope at startup.
const AdminRole = "admin"

// Bootstrap makes the identity catalog self-sufficient on first start
// and convergent on every restart:
//
//   - ensure the admin user exists (password hashed only on creation)
//   - ensure the admin role exists
//   - ensure a scope row exists for every name in the registry
//   - grant all registered scopes to the admin role
//   - attach the admin role to the admin user
//
// Every step is idempotent, so running it on each start is safe. New
// scopes introduced by new routes appear in the registry and get their
// rows and admin grants on the next boot without migrations.
func Bootstrap(ctx context.Context, st *Store, reg *ScopeRegistry, adminName, adminPassword string, log *logging.Logger) error {
	admin, err := ensureUser(ctx, st, adminName, adminPassword)
	if err != nil {
		return fmt.Errorf("ensuring admin user: %w", err)
	}

	role, err := ensureRole(ctx, st, AdminRole)
	if err != nil {
		return fmt.Errorf("ensuring admin role: %w", err)
	}

	granted := 0
	for _, name := range reg.Names() {
		scope, err := ensureScope(ctx, st, name)
		if err != nil {
			return fmt.Errorf("ensuring scope %q: %w", name, err)
		}
		if err := st.AssignScope(ctx, role.ID, scope.ID); err != nil {
			return err
		}
		granted++
	}

	if err := st.AssignRole(ctx, admin.ID, role.ID); err != nil {
		return err
	}

	log.Info("identity bootstrap complete",
		"admin_user", adminName,
		"scopes", granted)
	return nil
}

func ensureUser(ctx context.Context, st *Store, name, password string) (User, error) {
	user, err := st.Users.First(ctx, store.Eq("name", name))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return User{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return st.Users.Create(ctx, store.Fields{
		"name":          name,
		"password_hash": hash,
	})
}

func ensureRole(ctx context.Context, st *Store, name string) (Role, error) {
	role, err := st.Roles.First(ctx, store.Eq("name", name))
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Role{}, err
	}
	return st.Roles.Create(ctx, store.Fields{"name": name})
}

func ensureScope(ctx context.Context, st *Store, name string) (Scope, error) {
	scope, err := st.Scopes.First(ctx, store.Eq("name", name))
	if err == nil {
		return scope, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Scope{}, err
	}
	return st.Scopes.Create(ctx, store.Fields{"name": name})
}
