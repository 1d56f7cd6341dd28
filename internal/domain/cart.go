package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a product+quantity entry held in the cart. Product identity is
// ambiguous in legacy data: a numeric id when the product row exists, an
// opaque key for imported catalogs, and the display name as last resort.
type LineItem struct {
	ProductID  int64           `json:"product_id,omitempty"`
	ProductKey string          `json:"product_key,omitempty"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	VendorID   int64           `json:"vendor_id"`
}

// IdentityKey resolves the precedence numeric id -> opaque key -> name.
func (li LineItem) IdentityKey() string {
	switch {
	case li.ProductID > 0:
		return "id:" + strconv.FormatInt(li.ProductID, 10)
	case li.ProductKey != "":
		return "key:" + li.ProductKey
	default:
		return "name:" + li.Name
	}
}

// HasPersistedProduct reports whether the line references a product row that
// can back a normalized order line. Lines without one are skipped at
// submission, not rejected.
func (li LineItem) HasPersistedProduct() bool {
	return li.ProductID > 0
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CartSnapshot is the immutable cart state captured when a submission
// starts. Mutations after capture never reach the pipeline.
type CartSnapshot struct {
	Items      []LineItem      `json:"items"`
	VendorID   int64           `json:"vendor_id"`
	Total      decimal.Decimal `json:"total"`
	CapturedAt time.Time       `json:"captured_at"`
}

func (cs CartSnapshot) Empty() bool {
	return len(cs.Items) == 0
}

// SingleVendor reports whether every line shares the snapshot's vendor.
// The aggregate enforces this on entry; the pipeline re-checks it anyway.
func (cs CartSnapshot) SingleVendor() bool {
	for _, li := range cs.Items {
		if li.VendorID != cs.VendorID {
			return false
		}
	}
	return true
}
