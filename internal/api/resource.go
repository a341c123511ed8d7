package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// List pagination defaults.
const (
	defaultListSkip  = 0
	defaultListLimit = 10
)

// resource declaratively describes a REST resource. mountResource turns
// it into a full route set, each route wrapped by a scope gate named
// "<tag>:<action>".
type resource[T any] struct {
	// tag is the resource name: route prefix and scope prefix.
	tag string

	// repo is the backing repository.
	repo *store.Repository[T]

	// unique lists fields pre-checked for collisions before writes. The
	// database UNIQUE constraint remains the final authority; the
	// pre-check just produces a friendlier 409 for the common case.
	unique []string

	// named mounts GET and DELETE /name/{name} lookups.
	named bool

	// decodeCreate maps a request body onto column fields for POST /.
	// Nil omits the create route.
	decodeCreate func(*http.Request) (store.Fields, error)

	// decodeUpdate maps a request body onto column fields, skipping
	// absent and null payload fields. Nil omits PATCH and PUT.
	decodeUpdate func(*http.Request) (store.Fields, error)

	// requiredOnPut lists decoded fields PUT insists on being present
	// and non-empty.
	requiredOnPut []string

	// render optionally transforms an entity into its response view
	// (e.g. attaching relations). Nil renders the entity as-is.
	render func(ctx context.Context, entity T) (any, error)
}

// mountResource generates the resource's routes onto the router. Scope
// gates are constructed here, so mounting is what registers the
// resource's scopes.
func mountResource[T any](s *Server, r chi.Router, res resource[T]) {
	read := s.requireScope(res.tag + ":read")
	remove := s.requireScope(res.tag + ":delete")

	if res.decodeCreate != nil {
		r.With(s.requireScope(res.tag + ":create")).Post("/", res.handleCreate())
	}
	r.With(read).Get("/", res.handleList())
	r.With(read).Get("/id/{id}", res.handleGet())
	if res.named {
		r.With(read).Get("/name/{name}", res.handleGetByName())
		r.With(remove).Delete("/name/{name}", res.handleDeleteByName())
	}
	if res.decodeUpdate != nil {
		update := s.requireScope(res.tag + ":update")
		r.With(update).Patch("/{id}", res.handlePatch())
		r.With(update).Put("/{id}", res.handlePut())
	}
	r.With(remove).Delete("/{id}", res.handleDelete())
}

func (res resource[T]) handleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := res.decodeCreate(r)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		if res.conflicts(r.Context(), w, fields, "") {
			return
		}
		entity, err := res.repo.Create(r.Context(), fields)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		res.respond(r.Context(), w, http.StatusCreated, entity)
	}
}

func (res resource[T]) handleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip := queryInt(r, "skip", defaultListSkip)
		limit := queryInt(r, "limit", defaultListLimit)

		entities, err := res.repo.List(r.Context(), skip, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		if res.render == nil {
			writeJSON(w, http.StatusOK, entities)
			return
		}
		views := make([]any, 0, len(entities))
		for _, entity := range entities {
			view, err := res.render(r.Context(), entity)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			views = append(views, view)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func (res resource[T]) handleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := res.repo.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		res.respond(r.Context(), w, http.StatusOK, entity)
	}
}

func (res resource[T]) handleGetByName() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := res.repo.First(r.Context(), store.Eq("name", chi.URLParam(r, "name")))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		res.respond(r.Context(), w, http.StatusOK, entity)
	}
}

func (res resource[T]) handlePatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res.applyUpdate(w, r, nil)
	}
}

func (res resource[T]) handlePut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res.applyUpdate(w, r, res.requiredOnPut)
	}
}

// applyUpdate is the shared PATCH/PUT path; required is the PUT field
// presence contract, nil for PATCH.
func (res resource[T]) applyUpdate(w http.ResponseWriter, r *http.Request, required []string) {
	id := chi.URLParam(r, "id")

	fields, err := res.decodeUpdate(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	for _, f := range required {
		v, ok := fields[f]
		if !ok {
			writeBadRequest(w, "field is required: "+f)
			return
		}
		if str, isStr := v.(string); isStr && str == "" {
			writeBadRequest(w, "field must not be empty: "+f)
			return
		}
	}

	// The target must exist before the uniqueness pre-check runs, so a
	// missing id answers 404 even when the payload carries a taken value.
	exists, err := res.repo.Exists(r.Context(), store.Eq("id", id))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !exists {
		writeNotFound(w, "resource not found")
		return
	}

	if res.conflicts(r.Context(), w, fields, id) {
		return
	}

	entity, err := res.repo.Update(r.Context(), id, fields)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	res.respond(r.Context(), w, http.StatusOK, entity)
}

func (res resource[T]) handleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := res.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (res resource[T]) handleDeleteByName() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		// First() gives the 404; the predicate delete avoids needing the
		// entity's ID back out of the generic type.
		if _, err := res.repo.First(r.Context(), store.Eq("name", name)); err != nil {
			writeStoreError(w, err)
			return
		}
		if err := res.repo.DeleteWhere(r.Context(), store.Eq("name", name)); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// conflicts runs the uniqueness pre-check for the unique fields present
// in the payload, excluding the record being updated. It writes the 409
// itself and reports whether the request is already handled.
func (res resource[T]) conflicts(ctx context.Context, w http.ResponseWriter, fields store.Fields, excludeID string) bool {
	for _, f := range res.unique {
		v, ok := fields[f]
		if !ok {
			continue
		}
		preds := []store.Predicate{store.Eq(f, v)}
		if excludeID != "" {
			preds = append(preds, store.Ne("id", excludeID))
		}
		taken, err := res.repo.Exists(ctx, preds...)
		if err != nil {
			writeStoreError(w, err)
			return true
		}
		if taken {
			writeConflict(w, res.tag+" with this "+f+" already exists")
			return true
		}
	}
	return false
}

// respond renders the entity (through the view transform when set) with
// the given status.
func (res resource[T]) respond(ctx context.Context, w http.ResponseWriter, status int, entity T) {
	if res.render == nil {
		writeJSON(w, status, entity)
		return
	}
	view, err := res.render(ctx, entity)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, status, view)
}

// queryInt parses a non-negative integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
