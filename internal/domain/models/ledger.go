package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryIncome  EntryKind = "income"
	EntryExpense EntryKind = "expense"
)

// LedgerEntry is a single income or expense record of a user.
type LedgerEntry struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Kind        EntryKind       `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// Validate rejects entries that cannot be stored.
func (e *LedgerEntry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if e.Kind != EntryIncome && e.Kind != EntryExpense {
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", e.Amount)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	return nil
}

// MonthlyTotal aggregates a user's ledger for one calendar month.
type MonthlyTotal struct {
	Period   time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// SignalsFromTotals splits monthly totals (oldest first) into income and expenses signals.
func SignalsFromTotals(totals []MonthlyTotal) (income, expenses Signal) {
	income = Signal{Name: SignalIncome, Observations: make([]Observation, len(totals))}
	expenses = Signal{Name: SignalExpenses, Observations: make([]Observation, len(totals))}
	for i, t := range totals {
		income.Observations[i] = Observation{Period: t.Period, Value: t.Income.InexactFloat64()}
		expenses.Observations[i] = Observation{Period: t.Period, Value: t.Expenses.InexactFloat64()}
	}
	return income, expenses
}
