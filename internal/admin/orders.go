package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

var ErrIllegalTransition = errors.New("illegal order status transition")

// OrderStore is the backend slice the admin surface needs.
type OrderStore interface {
	HeaderByID(ctx context.Context, id uuid.UUID) (*domain.OrderHeader, error)
	UpdateHeaderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error
	ListHeadersByOrganization(ctx context.Context, orgID int64) ([]*domain.OrderHeader, error)
	LinesByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineRecord, error)
}

// Service performs the privileged order operations the submission core never
// touches: settling an order (confirm or cancel) and organization-wide
// listing.
type Service struct {
	orders OrderStore
}

func NewService(orders OrderStore) *Service {
	return &Service{orders: orders}
}

// SettleOrder moves an order out of AWAITING_PAYMENT. Both target states
// are terminal; anything else is rejected before touching the row.
func (s *Service) SettleOrder(ctx context.Context, id uuid.UUID, to domain.OrderStatus) error {
	header, err := s.orders.HeaderByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load order %s: %w", id, err)
	}

	if !domain.CanTransitionTo(header.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, header.Status, to)
	}

	err = s.orders.UpdateHeaderStatus(ctx, id, header.Status, to)
	if errors.Is(err, domain.ErrNotFound) {
		// The row was there a moment ago: someone else settled it first.
		return fmt.Errorf("%w: order %s already settled", ErrIllegalTransition, id)
	}
	if err != nil {
		return fmt.Errorf("settle order %s: %w", id, err)
	}

	log.Printf("admin: order %s settled %s -> %s", id, header.Status, to)
	return nil
}

func (s *Service) ListOrders(ctx context.Context, orgID int64) ([]*domain.OrderHeader, error) {
	return s.orders.ListHeadersByOrganization(ctx, orgID)
}

// OrderDetail returns the header plus whatever normalized lines exist. A
// header with fewer lines than it expected is the degraded submission state
// surfaced for administrative follow-up.
func (s *Service) OrderDetail(ctx context.Context, id uuid.UUID) (*domain.OrderHeader, []domain.OrderLineRecord, error) {
	header, err := s.orders.HeaderByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load order %s: %w", id, err)
	}
	lines, err := s.orders.LinesByOrder(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load lines for order %s: %w", id, err)
	}
	return header, lines, nil
}
