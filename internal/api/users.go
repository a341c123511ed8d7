package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IcarusCoding/tracker-backend/internal/iam"
	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// mountUserRoutes mounts the generated user resource.
//
// Responses always attach role memberships (and their scopes), matching
// what token issuance snapshots.
func (s *Server) mountUserRoutes(r chi.Router) {
	mountResource(s, r, resource[iam.User]{
		tag:           "users",
		repo:          s.identity.Store().Users,
		unique:        []string{"name"},
		named:         true,
		decodeCreate:  s.decodeUserCreate,
		decodeUpdate:  s.decodeUserUpdate,
		requiredOnPut: []string{"name", "password_hash"},
		render: func(ctx context.Context, u iam.User) (any, error) {
			return s.identity.Store().GetUser(ctx, u.ID)
		},
	})
}

// decodeUserCreate maps {name, password} onto user columns. The
// plaintext password is hashed here, exactly once; nothing downstream
// ever sees it.
func (s *Server) decodeUserCreate(r *http.Request) (store.Fields, error) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidJSON
	}
	if req.Name == "" || req.Password == "" {
		return nil, errMissingUserFields
	}

	hash, err := iam.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return store.Fields{
		"name":          req.Name,
		"password_hash": hash,
	}, nil
}

// decodeUserUpdate maps the present, non-null fields of {name, password}
// onto user columns, hashing a supplied password.
func (s *Server) decodeUserUpdate(r *http.Request) (store.Fields, error) {
	var req struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidJSON
	}

	fields := store.Fields{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, errEmptyPassword
		}
		hash, err := iam.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	return fields, nil
}
