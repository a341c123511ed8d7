package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IcarusCoding/tracker-backend/internal/iam"
	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// mountRoleRoutes mounts the generated role resource plus the
// user-membership extension. Roles are name-only records; there are no
// update shapes.
func (s *Server) mountRoleRoutes(r chi.Router) {
	mountResource(s, r, resource[iam.Role]{
		tag:          "roles",
		repo:         s.identity.Store().Roles,
		unique:       []string{"name"},
		named:        true,
		decodeCreate: decodeNameOnly,
		render: func(ctx context.Context, role iam.Role) (any, error) {
			scopes, err := s.identity.Store().ScopesForRole(ctx, role.ID)
			if err != nil {
				return nil, err
			}
			role.Scopes = scopes
			return role, nil
		},
	})

	// Membership append: requires the admin role on top of the scope.
	r.With(s.requireRole(iam.AdminRole), s.requireScope("roles:assign")).
		Post("/{user_id}/roles/{role_name}", s.handleAssignRole)
}

// handleAssignRole idempotently adds a role to a user's membership and
// returns the updated user.
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.identity.Store()

	user, err := st.GetUser(ctx, chi.URLParam(r, "user_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	role, err := st.Roles.First(ctx, store.Eq("name", chi.URLParam(r, "role_name")))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := st.AssignRole(ctx, user.ID, role.ID); err != nil {
		writeInternalError(w, "assigning role")
		return
	}

	updated, err := st.GetUser(ctx, user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// decodeNameOnly maps a {name} body onto the single-column resources
// (roles, scopes).
func decodeNameOnly(r *http.Request) (store.Fields, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidJSON
	}
	if req.Name == "" {
		return nil, errMissingName
	}
	return store.Fields{"name": req.Name}, nil
}
