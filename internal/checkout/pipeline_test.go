package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarinhaPrates/canteen-orders/internal/cart"
	"github.com/LarinhaPrates/canteen-orders/internal/domain"
	"github.com/LarinhaPrates/canteen-orders/internal/identity"
)

func cartWith(t *testing.T, items ...domain.LineItem) *cart.Aggregate {
	t.Helper()
	agg := cart.NewAggregate()
	for _, it := range items {
		for i := 0; i < it.Quantity; i++ {
			add := it
			add.Quantity = 0
			require.NoError(t, agg.AddItem(add))
		}
	}
	return agg
}

func lineItem(id int64, name, price string, qty int, vendorID int64) domain.LineItem {
	return domain.LineItem{
		ProductID: id,
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
		VendorID:  vendorID,
	}
}

func submitReq(method domain.PaymentMethod) SubmitRequest {
	return SubmitRequest{
		Buyer:  identity.Buyer{ID: "buyer-1"},
		Method: method,
	}
}

func TestSubmit_EmptyCartRejectedWithoutNetwork(t *testing.T) {
	writer := &MockOrderWriter{}
	resolver := &MockResolver{OrgID: 1}
	sut := NewPipeline(writer, &MockOutbox{}, resolver)

	_, err := sut.Submit(context.Background(), cart.NewAggregate(), submitReq(domain.PaymentMethodPix))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonEmptyCart, verr.Reason)
	assert.False(t, resolver.Called)
	assert.Zero(t, writer.LookupCalls)
	assert.Zero(t, writer.HeaderCalls)
}

func TestSubmit_MissingPaymentMethodRejected(t *testing.T) {
	writer := &MockOrderWriter{}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 1})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	_, err := sut.Submit(context.Background(), agg, submitReq(""))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonPaymentMethod, verr.Reason)
	assert.Zero(t, writer.HeaderCalls)
}

func TestValidate_VendorMismatchSnapshot(t *testing.T) {
	// The aggregate makes this snapshot unreachable; the pipeline still
	// re-checks it defensively.
	snap := domain.CartSnapshot{
		VendorID: 7,
		Items: []domain.LineItem{
			lineItem(1, "Coxinha", "5.00", 1, 7),
			lineItem(2, "Pastel", "6.00", 1, 9),
		},
	}

	err := validate(snap, submitReq(domain.PaymentMethodPix))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonVendorMismatch, verr.Reason)
}

func TestSubmit_ResolutionFailureAbortsBeforeAnyWrite(t *testing.T) {
	writer := &MockOrderWriter{}
	resolver := &MockResolver{Err: identity.ErrOrganizationNotResolved}
	sut := NewPipeline(writer, &MockOutbox{}, resolver)
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 2, 7))

	_, err := sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodPix))

	require.ErrorIs(t, err, identity.ErrOrganizationNotResolved)
	assert.Zero(t, writer.HeaderCalls, "no header may be written without a resolved organization")
	assert.Zero(t, writer.LineCalls)
	assert.Len(t, agg.Items(), 1, "cart must survive an aborted submission")
}

func TestSubmit_FullSuccess(t *testing.T) {
	writer := &MockOrderWriter{GeneratedID: uuid.New()}
	outbox := &MockOutbox{}
	sut := NewPipeline(writer, outbox, &MockResolver{OrgID: 42})
	agg := cartWith(t,
		lineItem(1, "A", "10.00", 2, 7),
		lineItem(2, "B", "5.50", 1, 7),
	)

	result, err := sut.Submit(context.Background(), agg, SubmitRequest{
		Buyer:  identity.Buyer{ID: "buyer-1"},
		Method: domain.PaymentMethodPix,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, result.Outcome)
	assert.Equal(t, writer.GeneratedID, result.OrderID)
	assert.True(t, result.Total.Equal(decimal.RequireFromString("25.50")), "got %s", result.Total)

	// Header assembled from the snapshot.
	header := writer.InsertedHeader
	require.NotNil(t, header)
	assert.Equal(t, "buyer-1", header.BuyerID)
	assert.Equal(t, int64(42), header.OrganizationID)
	assert.Equal(t, int64(7), header.VendorID)
	assert.Equal(t, domain.OrderStatusAwaitingPayment, header.Status)
	assert.Equal(t, 2, header.LinesExpected)
	assert.NotEmpty(t, header.IdempotencyKey)

	var summary []domain.ItemSummary
	require.NoError(t, json.Unmarshal(header.ItemsSummary, &summary))
	assert.Len(t, summary, 2)

	// Exactly two normalized lines, both vendor 7's products.
	require.Len(t, writer.InsertedLines, 2)
	for _, line := range writer.InsertedLines {
		assert.Equal(t, writer.GeneratedID, line.OrderID)
	}
	assert.Equal(t, 2, writer.InsertedLines[0].Quantity)
	assert.Equal(t, 1, writer.InsertedLines[1].Quantity)

	// Full success: cart cleared, lock released, event appended.
	assert.Empty(t, agg.Items())
	require.Len(t, outbox.Events, 1)
	assert.Equal(t, "order.created", outbox.Events[0].EventType)

	_, err = agg.BeginSubmit()
	assert.NoError(t, err, "submit-lock must be released after settling")
	agg.EndSubmit()
}

func TestSubmit_HeaderWriteFailureIsCleanAbort(t *testing.T) {
	writer := &MockOrderWriter{InsertHeaderErr: fmt.Errorf("connection reset")}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	_, err := sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodCredit))

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, StageHeader, werr.Stage)
	assert.Zero(t, writer.LineCalls, "no line write after a failed header")
	assert.Len(t, agg.Items(), 1, "cart intact, safe to retry")
}

func TestSubmit_LineWriteFailureIsDegradedNotSuccess(t *testing.T) {
	writer := &MockOrderWriter{
		GeneratedID:    uuid.New(),
		InsertLinesErr: fmt.Errorf("connection reset"),
	}
	outbox := &MockOutbox{}
	sut := NewPipeline(writer, outbox, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	result, err := sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodPix))

	require.NoError(t, err, "degraded success is an outcome, not an error")
	assert.Equal(t, OutcomeHeaderOnly, result.Outcome)
	assert.True(t, result.Degraded())
	assert.Equal(t, writer.GeneratedID, result.OrderID)

	var werr *WriteError
	require.ErrorAs(t, result.LineErr, &werr)
	assert.Equal(t, StageLines, werr.Stage)

	// The cart must NOT clear: the user has not seen a true confirmation.
	assert.Len(t, agg.Items(), 1)

	// The event still records the order, flagged incomplete.
	require.Len(t, outbox.Events, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(outbox.Events[0].Payload, &payload))
	assert.Equal(t, false, payload["complete"])
}

func TestSubmit_SkipsLinesWithoutPersistedProduct(t *testing.T) {
	writer := &MockOrderWriter{GeneratedID: uuid.New()}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))
	require.NoError(t, agg.AddItem(domain.LineItem{
		Name:      "Bolo da casa",
		UnitPrice: decimal.RequireFromString("4.00"),
		VendorID:  7,
	}))

	result, err := sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodCash))

	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, result.Outcome)
	assert.Equal(t, 1, result.LinesWritten)
	assert.Equal(t, 1, result.LinesSkipped)
	require.Len(t, writer.InsertedLines, 1)
	assert.Equal(t, int64(1), writer.InsertedLines[0].ProductID)
	assert.Equal(t, 1, writer.InsertedHeader.LinesExpected)

	// The skipped line still shows up in the display summary.
	var summary []domain.ItemSummary
	require.NoError(t, json.Unmarshal(writer.InsertedHeader.ItemsSummary, &summary))
	assert.Len(t, summary, 2)
}

func TestSubmit_AllLinesSkippedIsStillComplete(t *testing.T) {
	writer := &MockOrderWriter{GeneratedID: uuid.New()}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cart.NewAggregate()
	require.NoError(t, agg.AddItem(domain.LineItem{
		Name:      "Bolo da casa",
		UnitPrice: decimal.RequireFromString("4.00"),
		VendorID:  7,
	}))

	result, err := sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodPix))

	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, result.Outcome)
	assert.Zero(t, writer.LineCalls, "no batch statement for an empty set")
	assert.Empty(t, agg.Items(), "cart clears on complete submission")
}

func TestSubmit_IdempotentReplayReturnsExistingOrder(t *testing.T) {
	existingID := uuid.New()
	writer := &MockOrderWriter{
		Existing: &domain.OrderHeader{
			ID:            existingID,
			Total:         decimal.RequireFromString("25.50"),
			LinesExpected: 1,
		},
		PersistedLines: []domain.OrderLineRecord{
			{OrderID: existingID, ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	result, err := sut.Submit(context.Background(), agg, SubmitRequest{
		Buyer:          identity.Buyer{ID: "buyer-1"},
		Method:         domain.PaymentMethodPix,
		IdempotencyKey: "idem-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, OutcomeComplete, result.Outcome)
	assert.Equal(t, existingID, result.OrderID)
	assert.Zero(t, writer.HeaderCalls, "replay must not write a second header")
	assert.Zero(t, writer.LineCalls, "persisted lines must not be written twice")
	assert.Empty(t, agg.Items(), "a fully persisted replay settles the cart")
}

func TestSubmit_RetryAfterDegradedCompletesLineBatch(t *testing.T) {
	writer := &MockOrderWriter{
		GeneratedID:    uuid.New(),
		InsertLinesErr: fmt.Errorf("connection reset"),
	}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	req := SubmitRequest{
		Buyer:          identity.Buyer{ID: "buyer-1"},
		Method:         domain.PaymentMethodPix,
		IdempotencyKey: "idem-1",
	}

	first, err := sut.Submit(context.Background(), agg, req)
	require.NoError(t, err)
	require.Equal(t, OutcomeHeaderOnly, first.Outcome)
	require.Len(t, agg.Items(), 1)

	// The fault clears and the buyer retries with the same key.
	writer.InsertLinesErr = nil
	existing := *writer.InsertedHeader
	existing.ID = writer.GeneratedID
	writer.Existing = &existing

	retry, err := sut.Submit(context.Background(), agg, req)

	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, OutcomeComplete, retry.Outcome, "retry must finish the saga, not rubber-stamp it")
	assert.Equal(t, writer.GeneratedID, retry.OrderID)
	assert.Equal(t, 1, retry.LinesWritten)
	require.Len(t, writer.InsertedLines, 1)
	assert.Equal(t, writer.GeneratedID, writer.InsertedLines[0].OrderID)
	assert.Equal(t, 1, writer.HeaderCalls, "no second header on retry")
	assert.Empty(t, agg.Items(), "cart clears once every expected line is persisted")
}

func TestSubmit_RetryAfterDegradedStaysDegradedWhileLinesFail(t *testing.T) {
	writer := &MockOrderWriter{
		GeneratedID:    uuid.New(),
		InsertLinesErr: fmt.Errorf("connection reset"),
	}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	req := SubmitRequest{
		Buyer:          identity.Buyer{ID: "buyer-1"},
		Method:         domain.PaymentMethodPix,
		IdempotencyKey: "idem-1",
	}

	first, err := sut.Submit(context.Background(), agg, req)
	require.NoError(t, err)
	require.Equal(t, OutcomeHeaderOnly, first.Outcome)

	existing := *writer.InsertedHeader
	existing.ID = writer.GeneratedID
	writer.Existing = &existing

	retry, err := sut.Submit(context.Background(), agg, req)

	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, OutcomeHeaderOnly, retry.Outcome, "a still-missing line batch must never replay as complete")
	assert.True(t, retry.Degraded())

	var werr *WriteError
	require.ErrorAs(t, retry.LineErr, &werr)
	assert.Equal(t, StageLines, werr.Stage)
	assert.Len(t, agg.Items(), 1, "cart stays intact until the order truly completes")
}

func TestSubmit_ConcurrentDuplicateKeyReplays(t *testing.T) {
	existingID := uuid.New()
	writer := &MockOrderWriter{
		Existing: &domain.OrderHeader{
			ID:            existingID,
			Total:         decimal.RequireFromString("5.00"),
			LinesExpected: 1,
		},
		PersistedLines: []domain.OrderLineRecord{
			{OrderID: existingID, ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		ExistingAfterInsert: true,
		InsertHeaderErr:     domain.ErrDuplicateSubmission,
	}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	result, err := sut.Submit(context.Background(), agg, SubmitRequest{
		Buyer:          identity.Buyer{ID: "buyer-1"},
		Method:         domain.PaymentMethodPix,
		IdempotencyKey: "idem-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, existingID, result.OrderID)
	assert.Zero(t, writer.LineCalls, "the concurrent winner already wrote the lines")
}

func TestSubmit_DuplicateTapRejectedBySubmitLock(t *testing.T) {
	writer := &MockOrderWriter{}
	sut := NewPipeline(writer, &MockOutbox{}, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	_, err := agg.BeginSubmit()
	require.NoError(t, err)

	_, err = sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodPix))

	require.ErrorIs(t, err, cart.ErrSubmissionInFlight)
	assert.Zero(t, writer.HeaderCalls)
}

func TestSubmit_OutboxFailureDoesNotChangeOutcome(t *testing.T) {
	writer := &MockOrderWriter{GeneratedID: uuid.New()}
	outbox := &MockOutbox{Err: errors.New("outbox table missing")}
	sut := NewPipeline(writer, outbox, &MockResolver{OrgID: 42})
	agg := cartWith(t, lineItem(1, "Coxinha", "5.00", 1, 7))

	result, err := sut.Submit(context.Background(), agg, submitReq(domain.PaymentMethodPix))

	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, result.Outcome)
	assert.Empty(t, agg.Items())
}
