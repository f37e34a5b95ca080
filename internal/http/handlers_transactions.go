package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"planner/internal/core"
	"planner/internal/store"
)

// handleCreateTransaction records a new income or expense from the dashboard
// form and sends the browser back to the page it came from.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := userFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	typ := core.TxType(strings.TrimSpace(r.Form.Get("type")))
	category := sanitizeInput(r.Form.Get("category"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	date := parseDateField(r.Form.Get("date"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		s.redirectWithError(w, r, "invalid amount")
		return
	}

	_, err = s.txs.Create(r.Context(), user.ID, typ, category, core.Money{Cents: cents}, date)
	if err != nil {
		if isValidationError(err) {
			s.redirectWithError(w, r, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create transaction", "user_id", user.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateSnapshot(user.ID)
	s.redirectBack(w, r)
}

// handleUpdateTransaction replaces type, category and amount of one record.
// The record's id and date stay as they were at creation.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := userFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	typ := core.TxType(strings.TrimSpace(r.Form.Get("type")))
	category := sanitizeInput(r.Form.Get("category"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		s.redirectWithError(w, r, "invalid amount")
		return
	}

	err = s.txs.Update(r.Context(), user.ID, id, typ, category, core.Money{Cents: cents})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "transaction not found", http.StatusNotFound)
		case isValidationError(err):
			s.redirectWithError(w, r, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Failed to update transaction",
				"user_id", user.ID, "transaction_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	s.invalidateSnapshot(user.ID)
	s.redirectBack(w, r)
}

// handleDeleteTransaction removes one record. The confirmation dialog lives
// in the browser; by the time this runs the user already said yes.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := userFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if err := s.txs.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction",
			"user_id", user.ID, "transaction_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateSnapshot(user.ID)
	s.redirectBack(w, r)
}

type (
	chartSlice struct {
		Name  string `json:"name"`
		Cents int64  `json:"cents"`
	}

	chartResponse struct {
		Expense []chartSlice `json:"expense"`
		Income  []chartSlice `json:"income"`
	}
)

// handleChartData returns the per-category aggregates as JSON for the chart
// script, honoring the same month and year filter as the page.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := userFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	all, err := s.listTransactions(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for chart",
			"user_id", user.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	visible := core.ApplyFilter(all, parseFilter(r))

	resp := chartResponse{
		Expense: chartSlices(core.GroupByCategory(visible, core.Expense)),
		Income:  chartSlices(core.GroupByCategory(visible, core.Income)),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode chart data", "error", err)
	}
}

func chartSlices(aggregates []core.CategoryAmount) []chartSlice {
	out := make([]chartSlice, 0, len(aggregates))
	for _, a := range aggregates {
		out = append(out, chartSlice{Name: a.Name, Cents: a.Amount.Cents})
	}
	return out
}

// parseDateField accepts the date input's yyyy-mm-dd value; anything else
// (including empty) means "now", matching the creation default.
func parseDateField(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return d
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidType) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrEmptyCategory) ||
		errors.Is(err, core.ErrZeroDate)
}

// redirectBack returns to the page that submitted the form so an active
// month filter survives the write.
func (s *Server) redirectBack(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if ref := r.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			target = u.Path
			if u.RawQuery != "" {
				target += "?" + u.RawQuery
			}
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
