package core

import (
	"reflect"
	"testing"
	"time"
)

func tx(typ TxType, category string, cents int64, date time.Time) Transaction {
	return Transaction{Type: typ, Category: category, Amount: Money{Cents: cents}, Date: date}
}

func TestApplyFilterClearReturnsInputUnchanged(t *testing.T) {
	in := []Transaction{
		tx(Income, "Salary", 50000, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)),
		tx(Expense, "Food", 1200, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)),
	}
	got := ApplyFilter(in, Filter{})
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("clear filter changed the sequence: %v", got)
	}
}

func TestApplyFilterMonthAndYear(t *testing.T) {
	in := []Transaction{
		tx(Expense, "Food", 100, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
		tx(Expense, "Food", 100, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
		tx(Expense, "Food", 100, time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)),
	}
	got := ApplyFilter(in, Filter{Month: 3, Year: 2024})
	if len(got) != 1 || !got[0].Date.Equal(in[0].Date) {
		t.Fatalf("expected only 2024-03-05, got %v", got)
	}
}

func TestApplyFilterSingleField(t *testing.T) {
	in := []Transaction{
		tx(Expense, "A", 1, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
		tx(Expense, "B", 1, time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC)),
		tx(Expense, "C", 1, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)),
	}
	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"month only", Filter{Month: 3}, []string{"A", "B"}},
		{"year only", Filter{Year: 2023}, []string{"B", "C"}},
		{"no match", Filter{Month: 12, Year: 2020}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyFilter(in, tc.f)
			var names []string
			for _, e := range got {
				names = append(names, e.Category)
			}
			if !reflect.DeepEqual(names, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, names)
			}
		})
	}
}

func TestTotalsEmpty(t *testing.T) {
	s := Totals(nil)
	if s.Income.Cents != 0 || s.Expense.Cents != 0 || s.Remaining.Cents != 0 {
		t.Fatalf("expected all-zero summary, got %+v", s)
	}
	if s.OverBudget() {
		t.Fatalf("zero summary must not be over budget")
	}
}

func TestTotalsRemainingIdentity(t *testing.T) {
	now := time.Now()
	in := []Transaction{
		tx(Income, "Salary", 50000, now),
		tx(Expense, "Rent", 30000, now),
		tx(Expense, "Food", 12345, now),
		tx(Income, "Gift", 999, now),
	}
	s := Totals(in)
	if s.Remaining.Cents != s.Income.Cents-s.Expense.Cents {
		t.Fatalf("remaining %d != income %d - expense %d", s.Remaining.Cents, s.Income.Cents, s.Expense.Cents)
	}
	if s.Income.Cents != 50999 || s.Expense.Cents != 42345 {
		t.Fatalf("unexpected totals %+v", s)
	}
}

func TestTotalsNegativeRemainingIsBudgetAlert(t *testing.T) {
	now := time.Now()
	s := Totals([]Transaction{
		tx(Income, "Salary", 50000, now),
		tx(Expense, "Rent", 70000, now),
	})
	if s.Remaining.Cents != -20000 {
		t.Fatalf("expected remaining -20000, got %d", s.Remaining.Cents)
	}
	if !s.OverBudget() {
		t.Fatalf("negative remaining must be classified as budget alert")
	}
}

func TestGroupByCategoryMergesSameLabel(t *testing.T) {
	now := time.Now()
	got := GroupByCategory([]Transaction{
		tx(Expense, "Food", 10000, now),
		tx(Expense, "Food", 5000, now),
	}, Expense)
	if len(got) != 1 || got[0].Name != "Food" || got[0].Amount.Cents != 15000 {
		t.Fatalf("expected single bucket (Food, 15000), got %v", got)
	}
}

func TestGroupByCategoryFirstSeenOrderAndExactMatch(t *testing.T) {
	now := time.Now()
	got := GroupByCategory([]Transaction{
		tx(Expense, "Rent", 100, now),
		tx(Income, "Salary", 999, now), // wrong type, skipped
		tx(Expense, "food", 200, now),
		tx(Expense, "Food", 300, now), // distinct from "food": exact match only
		tx(Expense, "Rent", 400, now),
	}, Expense)
	want := []CategoryAmount{
		{Name: "Rent", Amount: Money{Cents: 500}},
		{Name: "food", Amount: Money{Cents: 200}},
		{Name: "Food", Amount: Money{Cents: 300}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAggregationIsRerunnable(t *testing.T) {
	in := []Transaction{
		tx(Expense, "Food", 100, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
		tx(Income, "Salary", 500, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)),
	}
	f := Filter{Month: 3, Year: 2024}
	first := Totals(ApplyFilter(in, f))
	second := Totals(ApplyFilter(in, f))
	if first != second {
		t.Fatalf("same inputs produced different summaries: %+v vs %+v", first, second)
	}
	if len(in) != 2 {
		t.Fatalf("input snapshot was mutated")
	}
}
