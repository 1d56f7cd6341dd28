package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/LarinhaPrates/canteen-orders/internal/cart"
	"github.com/LarinhaPrates/canteen-orders/internal/domain"
	"github.com/LarinhaPrates/canteen-orders/internal/identity"
	"github.com/LarinhaPrates/canteen-orders/pkg/circuitbreaker"
)

// OrderWriter is the slice of the backend data service the pipeline needs.
// Consumers define this interface, not the Postgres implementation.
type OrderWriter interface {
	InsertHeader(ctx context.Context, header *domain.OrderHeader) (uuid.UUID, error)
	HeaderByIdempotencyKey(ctx context.Context, key string) (*domain.OrderHeader, error)
	InsertLines(ctx context.Context, lines []domain.OrderLineRecord) error
	LinesByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineRecord, error)
}

// OutboxWriter records order events for asynchronous publication.
type OutboxWriter interface {
	AppendOrderEvent(ctx context.Context, orderID uuid.UUID, eventType string, payload []byte) error
}

type OrgResolver interface {
	Resolve(ctx context.Context, buyer identity.Buyer, snap domain.CartSnapshot) (int64, error)
}

type SubmitRequest struct {
	Buyer          identity.Buyer
	Method         domain.PaymentMethod
	IdempotencyKey string
}

// Pipeline orchestrates order submission: local validation, organization
// resolution, header insert, line batch insert, cart clearing. The two
// writes are independent statements against the backend; the saga states in
// Result are the only account of how far they got.
type Pipeline struct {
	orders   OrderWriter
	outbox   OutboxWriter
	resolver OrgResolver
	breaker  *circuitbreaker.Breaker
}

func NewPipeline(orders OrderWriter, outbox OutboxWriter, resolver OrgResolver) *Pipeline {
	return &Pipeline{
		orders:   orders,
		outbox:   outbox,
		resolver: resolver,
		breaker:  circuitbreaker.New("order-writes"),
	}
}

// Submit runs the saga for the session's cart. The cart is locked for the
// duration: a concurrent mutation or a duplicate tap gets
// cart.ErrSubmissionInFlight instead of a second order.
func (p *Pipeline) Submit(ctx context.Context, agg *cart.Aggregate, req SubmitRequest) (*Result, error) {
	snap, err := agg.BeginSubmit()
	if err != nil {
		return nil, err
	}
	defer agg.EndSubmit()

	// Local preconditions. None of these reach the network.
	if verr := validate(snap, req); verr != nil {
		return nil, verr
	}

	idemKey := req.IdempotencyKey
	if idemKey == "" {
		idemKey = uuid.NewString()
	}

	// Replay check: the same key never produces a second header.
	if existing, lookErr := p.orders.HeaderByIdempotencyKey(ctx, idemKey); lookErr == nil && existing != nil {
		log.Printf("checkout: duplicate submission for key %s, replaying order %s", idemKey, existing.ID)
		return p.replay(ctx, agg, snap, existing)
	} else if lookErr != nil && !errors.Is(lookErr, domain.ErrNotFound) {
		return nil, fmt.Errorf("idempotency lookup: %w", lookErr)
	}

	// Hard gate: no header may be written without a resolved organization.
	orgID, err := p.resolver.Resolve(ctx, req.Buyer, snap)
	if err != nil {
		return nil, fmt.Errorf("resolve organization for buyer %s: %w", req.Buyer.ID, err)
	}

	header, err := assembleHeader(snap, req, orgID, idemKey)
	if err != nil {
		return nil, err
	}

	orderID, err := circuitbreaker.Do(p.breaker, func() (uuid.UUID, error) {
		return p.orders.InsertHeader(ctx, header)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSubmission) {
			existing, lookErr := p.orders.HeaderByIdempotencyKey(ctx, idemKey)
			if lookErr != nil {
				return nil, fmt.Errorf("replay lookup after duplicate key: %w", lookErr)
			}
			log.Printf("checkout: concurrent duplicate for key %s, replaying order %s", idemKey, existing.ID)
			return p.replay(ctx, agg, snap, existing)
		}
		// Nothing persisted; the caller may retry with the same key.
		return nil, &WriteError{Stage: StageHeader, Err: err}
	}

	lines, skipped := mapLines(snap, orderID)
	if skipped > 0 {
		log.Printf("checkout: order %s: skipped %d line(s) without a persisted product reference", orderID, skipped)
	}

	result := &Result{
		OrderID:      orderID,
		Outcome:      OutcomeComplete,
		Total:        header.Total,
		LinesSkipped: skipped,
	}

	if len(lines) == 0 {
		log.Printf("checkout: order %s has no normalized lines, header summary stands alone", orderID)
	} else {
		_, lineErr := circuitbreaker.Do(p.breaker, func() (struct{}, error) {
			return struct{}{}, p.orders.InsertLines(ctx, lines)
		})
		if lineErr != nil {
			// The header already exists with no (or incomplete) detail.
			// This is the documented degraded state, not a rollback.
			log.Printf("checkout: order %s: line batch failed, header stands without detail: %v", orderID, lineErr)
			result.Outcome = OutcomeHeaderOnly
			result.LineErr = &WriteError{Stage: StageLines, Err: lineErr}
			p.appendEvent(ctx, orderID, header, false)
			return result, nil
		}
		result.LinesWritten = len(lines)
	}

	p.appendEvent(ctx, orderID, header, true)

	// Full success only: the cart empties and the lock releases.
	agg.Clear()
	return result, nil
}

func validate(snap domain.CartSnapshot, req SubmitRequest) error {
	if snap.Empty() {
		return &ValidationError{Reason: ReasonEmptyCart}
	}
	if !req.Method.Valid() {
		return &ValidationError{Reason: ReasonPaymentMethod}
	}
	// The aggregate already enforces this; re-check the snapshot anyway.
	if !snap.SingleVendor() {
		return &ValidationError{Reason: ReasonVendorMismatch}
	}
	return nil
}

func assembleHeader(snap domain.CartSnapshot, req SubmitRequest, orgID int64, idemKey string) (*domain.OrderHeader, error) {
	summary := make([]domain.ItemSummary, 0, len(snap.Items))
	expected := 0
	for _, li := range snap.Items {
		if li.HasPersistedProduct() {
			expected++
		}
		summary = append(summary, domain.ItemSummary{
			ProductID:   li.ProductID,
			ProductName: li.Name,
			VendorID:    li.VendorID,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Subtotal:    li.Subtotal().Round(2),
		})
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal item summary: %w", err)
	}

	return &domain.OrderHeader{
		BuyerID:        req.Buyer.ID,
		OrganizationID: orgID,
		VendorID:       snap.VendorID,
		Status:         domain.OrderStatusAwaitingPayment,
		Total:          snap.Total,
		ItemsSummary:   summaryJSON,
		LinesExpected:  expected,
		IdempotencyKey: idemKey,
	}, nil
}

// mapLines builds the normalized rows, skipping lines whose product identity
// is not a persisted product reference. The skip is intentional: those lines
// still live in the header's serialized summary.
func mapLines(snap domain.CartSnapshot, orderID uuid.UUID) ([]domain.OrderLineRecord, int) {
	lines := make([]domain.OrderLineRecord, 0, len(snap.Items))
	skipped := 0
	for _, li := range snap.Items {
		if !li.HasPersistedProduct() {
			skipped++
			continue
		}
		lines = append(lines, domain.OrderLineRecord{
			OrderID:   orderID,
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		})
	}
	return lines, skipped
}

// replay resumes the saga for an order the idempotency key already created.
// A retry after a degraded submission must never be reported as complete
// while the line rows are still missing, so the missing batch is re-attempted
// here; only when every expected line is persisted does the cart clear.
func (p *Pipeline) replay(ctx context.Context, agg *cart.Aggregate, snap domain.CartSnapshot, existing *domain.OrderHeader) (*Result, error) {
	persisted, err := p.orders.LinesByOrder(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("replay line check for order %s: %w", existing.ID, err)
	}

	result := &Result{
		OrderID:      existing.ID,
		Outcome:      OutcomeComplete,
		Total:        existing.Total,
		LinesWritten: len(persisted),
		Replayed:     true,
	}

	if len(persisted) >= existing.LinesExpected {
		agg.Clear()
		return result, nil
	}

	// The original submission settled header-only. Re-map from the current
	// snapshot and finish the batch.
	lines, skipped := mapLines(snap, existing.ID)
	result.LinesSkipped = skipped
	if len(lines) == 0 {
		agg.Clear()
		return result, nil
	}

	_, lineErr := circuitbreaker.Do(p.breaker, func() (struct{}, error) {
		return struct{}{}, p.orders.InsertLines(ctx, lines)
	})
	if lineErr != nil {
		log.Printf("checkout: order %s: line batch failed again on replay: %v", existing.ID, lineErr)
		result.Outcome = OutcomeHeaderOnly
		result.LineErr = &WriteError{Stage: StageLines, Err: lineErr}
		return result, nil
	}

	log.Printf("checkout: order %s: completed missing line batch on replay", existing.ID)
	result.LinesWritten = len(lines)
	p.appendEvent(ctx, existing.ID, existing, true)
	agg.Clear()
	return result, nil
}

func (p *Pipeline) appendEvent(ctx context.Context, orderID uuid.UUID, header *domain.OrderHeader, complete bool) {
	payload, err := json.Marshal(map[string]any{
		"order_id":        orderID,
		"buyer_id":        header.BuyerID,
		"organization_id": header.OrganizationID,
		"vendor_id":       header.VendorID,
		"status":          header.Status,
		"total":           header.Total,
		"complete":        complete,
	})
	if err != nil {
		log.Printf("checkout: marshal order event for %s: %v", orderID, err)
		return
	}
	// Best effort: the poller recovers nothing we fail to append, so log loudly.
	if err := p.outbox.AppendOrderEvent(ctx, orderID, "order.created", payload); err != nil {
		log.Printf("checkout: append outbox event for order %s: %v", orderID, err)
	}
}
