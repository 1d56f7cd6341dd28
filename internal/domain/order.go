package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes the one-way lifecycle: orders are created in
// AWAITING_PAYMENT and an administrator settles them exactly once.
func CanTransitionTo(from, to OrderStatus) bool {
	if from != OrderStatusAwaitingPayment {
		return false
	}
	return to == OrderStatusCompleted || to == OrderStatusCancelled
}

// OrderHeader is the top-level persisted order record. ItemsSummary is a
// denormalized JSON copy of the cart lines kept for display and reporting;
// the normalized detail lives in OrderLineRecord rows. LinesExpected is the
// number of line rows the submission intended to write, recorded up front so
// a header with fewer persisted lines is recognizable as degraded.
type OrderHeader struct {
	ID             uuid.UUID
	BuyerID        string
	OrganizationID int64
	VendorID       int64
	Status         OrderStatus
	Total          decimal.Decimal
	ItemsSummary   []byte
	LinesExpected  int
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderLineRecord is a normalized per-product detail row tied to a header.
// Written as a second, independent batch after the header; a header with no
// line rows is a documented failure mode, not corruption.
type OrderLineRecord struct {
	OrderID   uuid.UUID
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// ItemSummary is one entry of the header's serialized summary.
type ItemSummary struct {
	ProductID   int64           `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	VendorID    int64           `json:"vendor_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
