package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IcarusCoding/tracker-backend/internal/iam"
	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// mountScopeRoutes mounts the generated scope resource plus the
// role-grant extension. Scopes are name-only records.
func (s *Server) mountScopeRoutes(r chi.Router) {
	mountResource(s, r, resource[iam.Scope]{
		tag:          "scopes",
		repo:         s.identity.Store().Scopes,
		unique:       []string{"name"},
		named:        true,
		decodeCreate: decodeNameOnly,
	})

	r.With(s.requireScope("scopes:assign")).
		Post("/{role_name}/scopes/{scope_name}", s.handleAssignScope)
}

// handleAssignScope idempotently grants a scope to a role and returns
// the updated role.
func (s *Server) handleAssignScope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.identity.Store()

	role, err := st.Roles.First(ctx, store.Eq("name", chi.URLParam(r, "role_name")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	scope, err := st.Scopes.First(ctx, store.Eq("name", chi.URLParam(r, "scope_name")))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := st.AssignScope(ctx, role.ID, scope.ID); err != nil {
		writeInternalError(w, "assigning scope")
		return
	}

	scopes, err := st.ScopesForRole(ctx, role.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	role.Scopes = scopes
	writeJSON(w, http.StatusOK, role)
}
