package server

import (
	"net/http"
	"strings"
	"time"

	krishi "github.com/krishihq/krishi/internal"
)

func validateExpense(e *krishi.Expense) string {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return "title is required"
	}
	if e.Amount <= 0 {
		return "amount must be positive"
	}
	if e.Kind != "income" && e.Kind != "expense" {
		return `type must be "income" or "expense"`
	}
	if e.Date == "" {
		e.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	return ""
}

func (s *server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	if kind != "" && kind != "income" && kind != "expense" {
		writeJSON(w, http.StatusBadRequest, errorResponse(`type must be "income" or "expense"`))
		return
	}
	expenses, err := s.deps.Store.ListExpenses(r.Context(), userID(r), kind)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []*krishi.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e krishi.Expense
	if !decodeJSON(w, r, &e) {
		return
	}
	if msg := validateExpense(&e); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse(msg))
		return
	}
	uid := userID(r)
	// A linked crop must belong to the caller.
	if e.CropID != nil {
		c, err := s.deps.Store.GetCrop(r.Context(), uid, *e.CropID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("unknown crop_id"))
			return
		}
		e.CropName = c.Name
	}
	if err := s.deps.Store.CreateExpense(r.Context(), uid, &e); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Store.SummarizeExpenses(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteExpense(r.Context(), userID(r), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
