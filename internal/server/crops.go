package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	krishi "github.com/krishihq/krishi/internal"
)

// pathID parses the {id} route parameter. Writes a 400 and returns false on
// garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid id"))
		return 0, false
	}
	return id, true
}

func userID(r *http.Request) int64 {
	return krishi.IdentityFromContext(r.Context()).UserID
}

var validStages = map[string]bool{
	"Sown": true, "Germination": true, "Vegetative": true,
	"Flowering": true, "Fruiting": true, "Harvest Ready": true, "Harvested": true,
}

func validateCrop(c *krishi.Crop) string {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return "crop name is required"
	}
	if len(c.Name) > 100 {
		return "crop name too long"
	}
	if c.Stage != "" && !validStages[c.Stage] {
		return "invalid stage"
	}
	return ""
}

func (s *server) handleListCrops(w http.ResponseWriter, r *http.Request) {
	crops, err := s.deps.Store.ListCrops(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if crops == nil {
		crops = []*krishi.Crop{}
	}
	writeJSON(w, http.StatusOK, crops)
}

func (s *server) handleCreateCrop(w http.ResponseWriter, r *http.Request) {
	var c krishi.Crop
	if !decodeJSON(w, r, &c) {
		return
	}
	if msg := validateCrop(&c); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse(msg))
		return
	}
	if err := s.deps.Store.CreateCrop(r.Context(), userID(r), &c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *server) handleGetCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := s.deps.Store.GetCrop(r.Context(), userID(r), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleUpdateCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c krishi.Crop
	if !decodeJSON(w, r, &c) {
		return
	}
	if msg := validateCrop(&c); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse(msg))
		return
	}
	c.ID = id
	if err := s.deps.Store.UpdateCrop(r.Context(), userID(r), &c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleDeleteCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteCrop(r.Context(), userID(r), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
