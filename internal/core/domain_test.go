package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateRange(t *testing.T) {
	now := time.Date(2025, 3, 17, 15, 4, 0, 0, time.UTC)

	month := CurrentMonth(now)
	if got := month.Params(); got["startDate"] != "2025-03-01" || got["endDate"] != "2025-03-17" {
		t.Fatalf("CurrentMonth params = %v", got)
	}

	six := LastMonths(now, 6)
	if got := six.Params()["startDate"]; got != "2024-09-17" {
		t.Fatalf("LastMonths start = %s", got)
	}

	if _, err := ParseDateRange("2025-03-10", "2025-03-01"); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if _, err := ParseDateRange("2025-13-01", "2025-03-01"); err == nil {
		t.Fatal("expected parse error for bad month")
	}
}

func TestIDJSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":17,"b":"x-1","c":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "17" || v.B != "x-1" || v.C != "" {
		t.Fatalf("unexpected ids: %+v", v)
	}
	out, _ := json.Marshal(EmailBroadcast{RecipientIDs: []ID{"3", "u-4"}})
	want := `{"recipientIds":[3,"u-4"],"subject":"","message":""}`
	if string(out) != want {
		t.Fatalf("marshal = %s, want %s", out, want)
	}
}

func TestDashboardSummaryDecoding(t *testing.T) {
	body := `{"totalIncome":5000,"totalExpenses":1200.5,"netAmount":3799.5,
		"categorySpending":[["Food","300.25"],["Rent",900]],
		"monthlyTrend":[["2025-01",100],["2025-02",null]]}`
	var s DashboardSummary
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s.CategorySpending) != 2 || s.CategorySpending[0].Name != "Food" || s.CategorySpending[0].Amount != 300.25 {
		t.Fatalf("category spending = %+v", s.CategorySpending)
	}
	if s.MonthlyTrend[1].Amount != 0 {
		t.Fatalf("null amount should decode as zero, got %v", s.MonthlyTrend[1].Amount)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Type: Expense, Amount: 10, TransactionDate: "2025-01-02"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Transaction{
		{Type: "TRANSFER", Amount: 1},
		{Type: Income, Amount: 0},
		{Type: Income, Amount: 1, TransactionDate: "02/01/2025"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetStatusLabel(t *testing.T) {
	if got := (BudgetStatus{}).Label(); got != "Total Budget" {
		t.Fatalf("label = %q", got)
	}
	b := BudgetStatus{Budget: Budget{Category: &Category{Name: "Food"}}}
	if got := b.Label(); got != "Food" {
		t.Fatalf("label = %q", got)
	}
}
