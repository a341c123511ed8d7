package iam

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// UserMapper maps User onto the users table.
var UserMapper = store.Mapper[User]{
	Table:   "users",
	Columns: []string{"id", "name", "password_hash", "created_at"},
	Scan: func(s store.Scanner) (User, error) {
		var u User
		var created string
		if err := s.Scan(&u.ID, &u.Name, &u.PasswordHash, &created); err != nil {
			return u, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, created) //nolint:errcheck // format is controlled
		return u, nil
	},
}

// RoleMapper maps Role onto the roles table.
var RoleMapper = store.Mapper[Role]{
	Table:   "roles",
	Columns: []string{"id", "name"},
	Scan: func(s store.Scanner) (Role, error) {
		var r Role
		err := s.Scan(&r.ID, &r.Name)
		return r, err
	},
}

// ScopeMapper maps Scope onto the scopes table.
var ScopeMapper = store.Mapper[Scope]{
	Table:   "scopes",
	Columns: []string{"id", "name"},
	Scan: func(s store.Scanner) (Scope, error) {
		var sc Scope
		err := s.Scan(&sc.ID, &sc.Name)
		return sc, err
	},
}

// Store bundles the identity repositories with the membership relations
// the generic repository cannot express (user↔role, role↔scope joins).
type Store struct {
	db     *sql.DB
	Users  *store.Repository[User]
	Roles  *store.Repository[Role]
	Scopes *store.Repository[Scope]
}

// NewStore creates an identity store over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		Users:  store.NewRepository(db, UserMapper),
		Roles:  store.NewRepository(db, RoleMapper),
		Scopes: store.NewRepository(db, ScopeMapper),
	}
}

// GetUser retrieves a user by ID with roles and scopes attached.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.attachRoles(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUserByName retrieves a user by unique name with roles and scopes attached.
func (s *Store) GetUserByName(ctx context.Context, name string) (User, error) {
	user, err := s.Users.First(ctx, store.Eq("name", name))
	if err != nil {
		return User{}, err
	}
	if err := s.attachRoles(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// attachRoles loads the user's role memberships including each role's scopes.
func (s *Store) attachRoles(ctx context.Context, user *User) error {
	roles, err := s.RolesForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	user.Roles = roles
	return nil
}

// RolesForUser returns the roles assigned to a user, each with its scopes.
func (s *Store) RolesForUser(ctx context.Context, userID string) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user roles: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	for i := range roles {
		scopes, err := s.ScopesForRole(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Scopes = scopes
	}

	return roles, nil
}

// ScopesForRole returns the scopes granted to a role.
func (s *Store) ScopesForRole(ctx context.Context, roleID string) ([]Scope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sc.id, sc.name FROM scopes sc
		JOIN role_scopes rs ON rs.scope_id = sc.id
		WHERE rs.role_id = ?
		ORDER BY sc.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("querying role scopes: %w", err)
	}
	defer rows.Close()

	scopes := []Scope{}
	for rows.Next() {
		var sc Scope
		if err := rows.Scan(&sc.ID, &sc.Name); err != nil {
			return nil, fmt.Errorf("scanning scope: %w", err)
		}
		scopes = append(scopes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scopes: %w", err)
	}
	return scopes, nil
}

// AssignRole adds a role to a user's membership. Idempotent.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)",
		userID, roleID)
	if err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}
	return nil
}

// AssignScope adds a scope to a role's grant set. Idempotent.
func (s *Store) AssignScope(ctx context.Context, roleID, scopeID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO role_scopes (role_id, scope_id) VALUES (?, ?)",
		roleID, scopeID)
	if err != nil {
		return fmt.Errorf("assigning scope: %w", err)
	}
	return nil
}
