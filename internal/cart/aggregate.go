package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

var (
	ErrVendorMismatch     = errors.New("cart holds items from a different vendor")
	ErrSubmissionInFlight = errors.New("a submission is in flight, cart is locked")
)

// Aggregate is the session-scoped cart. All state is in memory and dies with
// the session; nothing here touches the network.
//
// Invariant: every line shares one vendor id, or the cart is empty.
type Aggregate struct {
	mu         sync.Mutex
	items      []domain.LineItem
	submitting bool
}

func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// AddItem merges the product into the cart. A product already present (by
// identity precedence: numeric id, opaque key, name) gets its quantity
// incremented by one; otherwise a new line is appended with quantity 1.
// Adding a product from another vendor never mutates the cart.
func (a *Aggregate) AddItem(product domain.LineItem) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.submitting {
		return ErrSubmissionInFlight
	}
	if len(a.items) > 0 && product.VendorID != a.items[0].VendorID {
		return ErrVendorMismatch
	}

	key := product.IdentityKey()
	for i := range a.items {
		if a.items[i].IdentityKey() == key {
			a.items[i].Quantity++
			return nil
		}
	}

	product.Quantity = 1
	a.items = append(a.items, product)
	return nil
}

// RemoveItem decrements the matched line by one and deletes it when the
// quantity reaches zero. The identity may be the precedence key or, as the
// legacy UI sends it, the bare product name. Absent identity is a no-op.
func (a *Aggregate) RemoveItem(identity string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.submitting {
		return ErrSubmissionInFlight
	}

	for i := range a.items {
		if a.items[i].IdentityKey() != identity && a.items[i].Name != identity {
			continue
		}
		if a.items[i].Quantity > 1 {
			a.items[i].Quantity--
		} else {
			a.items = append(a.items[:i], a.items[i+1:]...)
		}
		return nil
	}
	return nil
}

// Total is the sum of unit price times quantity over all lines, rounded to
// two decimal places.
func (a *Aggregate) Total() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return total(a.items)
}

func total(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.Subtotal())
	}
	return sum.Round(2)
}

// Items returns a copy of the current lines.
func (a *Aggregate) Items() []domain.LineItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.LineItem, len(a.items))
	copy(out, a.items)
	return out
}

// Clear empties the cart. Called only after a confirmed full submission.
func (a *Aggregate) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
}

// BeginSubmit captures an immutable snapshot and locks the cart against
// further mutation until EndSubmit. A second BeginSubmit while locked fails,
// which is what stops duplicate submissions from double taps.
func (a *Aggregate) BeginSubmit() (domain.CartSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.submitting {
		return domain.CartSnapshot{}, ErrSubmissionInFlight
	}
	a.submitting = true

	items := make([]domain.LineItem, len(a.items))
	copy(items, a.items)

	snap := domain.CartSnapshot{
		Items:      items,
		Total:      total(items),
		CapturedAt: time.Now(),
	}
	if len(items) > 0 {
		snap.VendorID = items[0].VendorID
	}
	return snap, nil
}

// EndSubmit releases the submit-lock. The pipeline calls it however the
// submission settled.
func (a *Aggregate) EndSubmit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitting = false
}

func (a *Aggregate) inFlight() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitting
}
