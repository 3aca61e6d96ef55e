package server

import (
	"net/http"
	"strings"
)

// handleWeather returns current conditions for ?city= (default from config).
func (s *server) handleWeather(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Weather.Current(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleForecast returns the multi-day outlook for ?city=.
func (s *server) handleForecast(w http.ResponseWriter, r *http.Request) {
	fc, err := s.deps.Weather.Outlook(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// handlePrices returns the latest mandi quote for ?state=&crop=.
func (s *server) handlePrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := s.deps.Market.Quote(r.Context(), q.Get("state"), q.Get("crop"))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat answers one advisor message.
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("message is required"))
		return
	}
	if len(req.Message) > 2000 {
		writeJSON(w, http.StatusBadRequest, errorResponse("message too long"))
		return
	}

	reply, err := s.deps.Advisor.Chat(r.Context(), req.Message)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleDashboard returns the aggregated farm overview.
func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	o := s.deps.Dashboard.Load(r.Context(), userID(r), q.Get("city"), q.Get("crop"))
	writeJSON(w, http.StatusOK, o)
}

// handleInsight returns the cached daily tip.
func (s *server) handleInsight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tip, err := s.deps.Advisor.Insight(r.Context(), q.Get("city"), q.Get("crop"))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"insight": tip})
}
