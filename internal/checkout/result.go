package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome discriminates how far the two-write saga got. There is no
// cross-write transaction, so "header written, lines lost" is a first-class
// state, never collapsed into plain success.
type Outcome string

const (
	// OutcomeComplete: header and every eligible line row persisted.
	OutcomeComplete Outcome = "COMPLETE"
	// OutcomeHeaderOnly: header persisted, line batch failed. The order
	// exists and needs administrative follow-up; the cart is NOT cleared.
	OutcomeHeaderOnly Outcome = "HEADER_ONLY"
)

type Result struct {
	OrderID      uuid.UUID
	Outcome      Outcome
	Total        decimal.Decimal
	LinesWritten int
	LinesSkipped int
	// Replayed is set when the idempotency key matched an existing order
	// and no new writes happened.
	Replayed bool
	// LineErr carries the cause when Outcome is HEADER_ONLY.
	LineErr error
}

func (r *Result) Degraded() bool {
	return r.Outcome == OutcomeHeaderOnly
}
