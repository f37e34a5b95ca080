package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"planner/internal/core"
)

const yearOptionSpan = 4 // current year back through current-3

type (
	monthOption struct {
		Value    int
		Name     string
		Selected bool
	}

	yearOption struct {
		Value    int
		Selected bool
	}

	transactionRow struct {
		ID        string
		Date      string
		Type      string
		Category  string
		Amount    string
		AmountRaw string // decimal form pre-filled in the edit dialog
		IsExpense bool
	}

	categoryRow struct {
		Name   string
		Amount string
		Width  int // bar width percent relative to the largest category
	}

	dashboardPage struct {
		Email        string
		Months       []monthOption
		Years        []yearOption
		Filtered     bool
		Transactions []transactionRow
		Income       string
		Expense      string
		Remaining    string
		OverBudget   bool
		ExpenseRows  []categoryRow
		IncomeRows   []categoryRow
		Error        string
	}
)

// handleDashboard renders the main page: the filtered transaction list, the
// three totals, the budget alert and the per-category breakdowns.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	user, ok := userFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	filter := parseFilter(r)

	all, err := s.listTransactions(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions", "user_id", user.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	visible := core.ApplyFilter(all, filter)
	totals := core.Totals(visible)

	data := dashboardPage{
		Email:       user.Email,
		Months:      monthOptions(filter.Month),
		Years:       yearOptions(filter.Year),
		Filtered:    !filter.IsZero(),
		Income:      totals.Income.Format(),
		Expense:     totals.Expense.Format(),
		Remaining:   totals.Remaining.Format(),
		OverBudget:  totals.OverBudget(),
		ExpenseRows: categoryRows(core.GroupByCategory(visible, core.Expense)),
		IncomeRows:  categoryRows(core.GroupByCategory(visible, core.Income)),
		Error:       r.URL.Query().Get("error"),
	}

	for _, tx := range visible {
		data.Transactions = append(data.Transactions, transactionRow{
			ID:        tx.ID,
			Date:      tx.Date.Format("02/01/2006"),
			Type:      string(tx.Type),
			Category:  tx.Category,
			Amount:    tx.Amount.Format(),
			AmountRaw: decimalString(tx.Amount),
			IsExpense: tx.Type == core.Expense,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Dashboard template execution failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseFilter reads month and year from the query string. Out-of-range or
// non-numeric values fall back to unset rather than failing the page.
func parseFilter(r *http.Request) core.Filter {
	var f core.Filter
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			f.Month = m
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			f.Year = y
		}
	}
	return f
}

func monthOptions(selected int) []monthOption {
	out := make([]monthOption, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, monthOption{
			Value:    m,
			Name:     time.Month(m).String(),
			Selected: m == selected,
		})
	}
	return out
}

func yearOptions(selected int) []yearOption {
	current := time.Now().Year()
	out := make([]yearOption, 0, yearOptionSpan)
	for y := current; y > current-yearOptionSpan; y-- {
		out = append(out, yearOption{Value: y, Selected: y == selected})
	}
	// Keep a filtered year visible even when it is outside the default span.
	if selected != 0 && (selected > current || selected <= current-yearOptionSpan) {
		out = append(out, yearOption{Value: selected, Selected: true})
	}
	return out
}

// categoryRows converts aggregates into display rows with bar widths scaled
// to the largest category, the same way the totals bars are drawn.
func categoryRows(aggregates []core.CategoryAmount) []categoryRow {
	var maxCents int64
	for _, a := range aggregates {
		if a.Amount.Cents > maxCents {
			maxCents = a.Amount.Cents
		}
	}

	out := make([]categoryRow, 0, len(aggregates))
	for _, a := range aggregates {
		width := 0
		if maxCents > 0 && a.Amount.Cents > 0 {
			width = int((a.Amount.Cents*100 + maxCents/2) / maxCents)
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		out = append(out, categoryRow{Name: a.Name, Amount: a.Amount.Format(), Width: width})
	}
	return out
}

// decimalString renders cents as a plain decimal for form inputs ("12.50").
func decimalString(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
