package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
	"github.com/LarinhaPrates/canteen-orders/internal/identity"
)

// MockOrderWriter implements OrderWriter for testing
type MockOrderWriter struct {
	Existing *domain.OrderHeader // returned by HeaderByIdempotencyKey
	// ExistingAfterInsert makes the lookup miss until InsertHeader ran,
	// which simulates a concurrent duplicate hitting the unique index.
	ExistingAfterInsert bool
	LookupErr           error
	InsertHeaderErr     error
	InsertLinesErr      error

	GeneratedID    uuid.UUID
	InsertedHeader *domain.OrderHeader // Captures the header passed to InsertHeader
	InsertedLines  []domain.OrderLineRecord

	// PersistedLines is what LinesByOrder reports as already written for the
	// existing order. Left nil it simulates a header-only order.
	PersistedLines  []domain.OrderLineRecord
	LinesByOrderErr error

	HeaderCalls int
	LineCalls   int
	LookupCalls int
}

func (m *MockOrderWriter) InsertHeader(_ context.Context, header *domain.OrderHeader) (uuid.UUID, error) {
	m.HeaderCalls++
	if m.InsertHeaderErr != nil {
		return uuid.Nil, m.InsertHeaderErr
	}
	m.InsertedHeader = header
	if m.GeneratedID == uuid.Nil {
		m.GeneratedID = uuid.New()
	}
	return m.GeneratedID, nil
}

func (m *MockOrderWriter) HeaderByIdempotencyKey(_ context.Context, _ string) (*domain.OrderHeader, error) {
	m.LookupCalls++
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	if m.Existing != nil && (!m.ExistingAfterInsert || m.HeaderCalls > 0) {
		return m.Existing, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderWriter) LinesByOrder(_ context.Context, _ uuid.UUID) ([]domain.OrderLineRecord, error) {
	if m.LinesByOrderErr != nil {
		return nil, m.LinesByOrderErr
	}
	return m.PersistedLines, nil
}

func (m *MockOrderWriter) InsertLines(_ context.Context, lines []domain.OrderLineRecord) error {
	m.LineCalls++
	if m.InsertLinesErr != nil {
		return m.InsertLinesErr
	}
	m.InsertedLines = lines
	return nil
}

// MockOutbox implements OutboxWriter for testing
type MockOutbox struct {
	Err    error
	Events []MockOutboxEvent
}

type MockOutboxEvent struct {
	OrderID   uuid.UUID
	EventType string
	Payload   []byte
}

func (m *MockOutbox) AppendOrderEvent(_ context.Context, orderID uuid.UUID, eventType string, payload []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, MockOutboxEvent{OrderID: orderID, EventType: eventType, Payload: payload})
	return nil
}

// MockResolver implements OrgResolver for testing
type MockResolver struct {
	OrgID  int64
	Err    error
	Called bool
}

func (m *MockResolver) Resolve(context.Context, identity.Buyer, domain.CartSnapshot) (int64, error) {
	m.Called = true
	return m.OrgID, m.Err
}
