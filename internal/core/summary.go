package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// NamedAmount is one [label, amount] pair as emitted by the analytics
// endpoints (category spending, monthly trend).
type NamedAmount struct {
	Name   string
	Amount float64
}

// UnmarshalJSON decodes a two-element array. The amount may arrive as a
// number or as a decimal string.
func (n *NamedAmount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("named amount: %w", err)
	}
	if len(pair) < 2 {
		return errors.New("named amount: expected [label, amount]")
	}
	var label any
	if err := json.Unmarshal(pair[0], &label); err != nil {
		return fmt.Errorf("named amount label: %w", err)
	}
	if label != nil {
		n.Name = fmt.Sprint(label)
	}
	amount, err := decodeAmount(pair[1])
	if err != nil {
		return fmt.Errorf("named amount value: %w", err)
	}
	n.Amount = amount
	return nil
}

func (n NamedAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{n.Name, n.Amount})
}

func decodeAmount(raw json.RawMessage) (float64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("unexpected amount %s", raw)
}

// DashboardSummary is the payload of the dashboard analytics endpoint.
type DashboardSummary struct {
	TotalIncome      float64       `json:"totalIncome"`
	TotalExpenses    float64       `json:"totalExpenses"`
	NetAmount        float64       `json:"netAmount"`
	CategorySpending []NamedAmount `json:"categorySpending"`
	MonthlyTrend     []NamedAmount `json:"monthlyTrend"`
}

// BudgetStatus reports consumption of one budget.
type BudgetStatus struct {
	Budget       Budget  `json:"budget"`
	Spent        float64 `json:"spent"`
	Remaining    float64 `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	IsOverBudget bool    `json:"isOverBudget"`
	IsNearLimit  bool    `json:"isNearLimit"`
}

// Label is the category name, or "Total Budget" for an uncategorised budget.
func (b BudgetStatus) Label() string {
	if b.Budget.Category != nil && b.Budget.Category.Name != "" {
		return b.Budget.Category.Name
	}
	return "Total Budget"
}
