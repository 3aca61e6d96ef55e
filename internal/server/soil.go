package server

import (
	"net/http"
	"strings"

	krishi "github.com/krishihq/krishi/internal"
)

func validateSoilReport(sr *krishi.SoilReport) string {
	sr.Field = strings.TrimSpace(sr.Field)
	if sr.Field == "" {
		return "location is required"
	}
	if sr.PH < 0 || sr.PH > 14 {
		return "ph must be between 0 and 14"
	}
	if sr.Moisture < 0 || sr.Moisture > 100 {
		return "moisture must be a percentage"
	}
	if sr.Nitrogen < 0 || sr.Phosphorus < 0 || sr.Potassium < 0 {
		return "nutrient values cannot be negative"
	}
	return ""
}

func (s *server) handleListSoilReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.deps.Store.ListSoilReports(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if reports == nil {
		reports = []*krishi.SoilReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *server) handleCreateSoilReport(w http.ResponseWriter, r *http.Request) {
	var sr krishi.SoilReport
	if !decodeJSON(w, r, &sr) {
		return
	}
	if msg := validateSoilReport(&sr); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse(msg))
		return
	}
	if err := s.deps.Store.CreateSoilReport(r.Context(), userID(r), &sr); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sr)
}

func (s *server) handleDeleteSoilReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteSoilReport(r.Context(), userID(r), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
