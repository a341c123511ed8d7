package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/IcarusCoding/tracker-backend/internal/store"
	"github.com/IcarusCoding/tracker-backend/internal/tracker"
)

// scopeOthersApikey lets non-owners mint a device's API key.
const scopeOthersApikey = "devices:others:apikey"

// mountDeviceRoutes mounts the generated device resource (reads and
// deletes) plus the creation, key-minting, and location extensions.
// Device creation is not part of the generated set because ownership
// comes from the principal, not the payload.
func (s *Server) mountDeviceRoutes(r chi.Router) {
	mountResource(s, r, resource[tracker.Device]{
		tag:    "devices",
		repo:   s.tracker.Devices,
		unique: []string{"name"},
		named:  true,
	})

	r.With(s.requireScope("devices:create")).Post("/create", s.handleCreateDevice)
	r.With(s.requireScope("devices:others:create")).Post("/create/others", s.handleCreateDeviceForOther)

	// Key minting has no blanket gate: owners pass implicitly, everyone
	// else needs the scope. Registered here since no middleware does it.
	s.scopes.Register(scopeOthersApikey)
	r.Post("/{id}/apikey", s.handleMintAPIKey)

	r.With(s.requireScope("devices:read")).Get("/{id}/locations", s.handleListLocations)
	r.With(s.requireScope("devices:update")).Post("/{id}/locations", s.handleAppendLocation)
}

// deviceCreateRequest is the body for both device creation routes; the
// user_id field is honoured only on /create/others.
type deviceCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

// handleCreateDevice creates a device owned by the principal.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(r.Context())
	if !ok {
		writeUnauthorized(w, "could not validate credentials")
		return
	}
	s.createDevice(w, r, user.ID)
}

// handleCreateDeviceForOther creates a device for an explicit owner.
func (s *Server) handleCreateDeviceForOther(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDeviceCreate(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	// The owner must exist; FK enforcement would reject the insert
	// anyway, but a 404 beats a 500.
	if _, err := s.identity.Store().Users.Get(r.Context(), req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.insertDevice(w, r, req, req.UserID)
}

// createDevice decodes the body and inserts a device for the owner.
func (s *Server) createDevice(w http.ResponseWriter, r *http.Request, ownerID string) {
	req, err := decodeDeviceCreate(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.insertDevice(w, r, req, ownerID)
}

func (s *Server) insertDevice(w http.ResponseWriter, r *http.Request, req deviceCreateRequest, ownerID string) {
	taken, err := s.tracker.Devices.Exists(r.Context(), store.Eq("name", req.Name))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if taken {
		writeConflict(w, "device with this name already exists")
		return
	}

	device, err := s.tracker.Devices.Create(r.Context(), store.Fields{
		"name":        req.Name,
		"description": req.Description,
		"user_id":     ownerID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func decodeDeviceCreate(r *http.Request) (deviceCreateRequest, error) {
	var req deviceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errInvalidJSON
	}
	if req.Name == "" {
		return req, errMissingName
	}
	return req, nil
}

// handleMintAPIKey replaces the device's API key. The owner may mint
// implicitly; any other principal needs the devices:others:apikey scope.
func (s *Server) handleMintAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(r.Context())
	if !ok {
		writeUnauthorized(w, "could not validate credentials")
		return
	}

	device, err := s.tracker.Devices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if device.UserID != user.ID && !user.HasScope(scopeOthersApikey) {
		writeForbidden(w, "insufficient permissions")
		return
	}

	key, err := s.tracker.MintKey(r.Context(), device.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

// handleListLocations returns a device's fixes, newest first.
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if _, err := s.tracker.Devices.Get(r.Context(), deviceID); err != nil {
		writeStoreError(w, err)
		return
	}

	skip := queryInt(r, "skip", defaultListSkip)
	limit := queryInt(r, "limit", defaultListLimit)

	fixes, err := s.tracker.DeviceLocations(r.Context(), deviceID, skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fixes)
}

// locationRequest is the body for a manual fix append.
type locationRequest struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// handleAppendLocation records a manual location fix and feeds it to the
// live feed and history recorder like an ingested one.
func (s *Server) handleAppendLocation(w http.ResponseWriter, r *http.Request) {
	device, err := s.tracker.Devices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := tracker.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	recordedAt := time.Time{}
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	fix, err := s.tracker.RecordLocation(r.Context(), device.ID, recordedAt, req.Latitude, req.Longitude)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.hub.BroadcastLocation(device, fix)
	if s.recorder != nil {
		s.recorder.RecordFix(device, fix)
	}

	writeJSON(w, http.StatusCreated, fix)
}
