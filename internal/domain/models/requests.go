package models

// Requests for forecast HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Income     []float64 `json:"income"`
	Expenses   []float64 `json:"expenses"`
	Order      string    `json:"order" default:"oldest_first" validate:"oneof=oldest_first newest_first"`
	LastPeriod string    `json:"last_period" validate:"omitempty,datetime=2006-01"`
}

type UserForecastRequest struct {
	UserID string `param:"user_id" json:"user_id" validate:"required,max=128,printascii,excludesall=*?[]:\\"`
	AsOf   string `query:"as_of" json:"as_of" validate:"omitempty,datetime=2006-01"`
}

// LedgerMessage is the wire shape of a ledger entry on the ingestion topic.
type LedgerMessage struct {
	ID          string `json:"id"`
	// user ids become cache key segments, so no separators or glob characters
	UserID      string `json:"user_id" validate:"required,max=128,printascii,excludesall=*?[]:\\"`
	Kind        string `json:"kind" validate:"required,oneof=income expense"`
	Amount      string `json:"amount" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=512"`
}
