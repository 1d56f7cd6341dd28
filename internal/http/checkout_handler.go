package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/LarinhaPrates/canteen-orders/internal/cart"
	"github.com/LarinhaPrates/canteen-orders/internal/checkout"
	"github.com/LarinhaPrates/canteen-orders/internal/domain"
	"github.com/LarinhaPrates/canteen-orders/internal/identity"
)

type CheckoutHandler struct {
	sessions *cart.SessionStore
	pipeline *checkout.Pipeline
}

func NewCheckoutHandler(sessions *cart.SessionStore, pipeline *checkout.Pipeline) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, pipeline: pipeline}
}

type SubmitRequestDTO struct {
	PaymentMethod  string `json:"payment_method"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type SubmitResponseDTO struct {
	OrderID      string          `json:"order_id"`
	State        string          `json:"state"`
	Total        decimal.Decimal `json:"total"`
	LinesWritten int             `json:"lines_written"`
	LinesSkipped int             `json:"lines_skipped,omitempty"`
	Replayed     bool            `json:"replayed,omitempty"`
}

// Submit drives the order submission saga. The response distinguishes full
// success (201) from the degraded header-only outcome (202): a degraded
// submission keeps the cart intact and the client must not show the final
// confirmation screen.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	agg := h.sessions.Get(buyer.ID)
	result, err := h.pipeline.Submit(r.Context(), agg, checkout.SubmitRequest{
		Buyer:          buyer,
		Method:         domain.PaymentMethod(req.PaymentMethod),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		handleSubmitError(w, err)
		return
	}

	resp := SubmitResponseDTO{
		OrderID:      result.OrderID.String(),
		State:        "confirmed",
		Total:        result.Total,
		LinesWritten: result.LinesWritten,
		LinesSkipped: result.LinesSkipped,
		Replayed:     result.Replayed,
	}
	if result.Degraded() {
		resp.State = "degraded"
		respondJSON(w, http.StatusAccepted, resp)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func handleSubmitError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	var werr *checkout.WriteError

	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Reason)
	case errors.Is(err, cart.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", "a submission is already settling")
	case errors.Is(err, identity.ErrOrganizationNotResolved):
		respondError(w, http.StatusUnprocessableEntity, "resolution_failed", "buyer organization could not be resolved")
	case errors.As(err, &werr):
		// Header-stage failure: nothing was written, retrying with the
		// same idempotency key is safe.
		respondError(w, http.StatusBadGateway, "write_failed_"+string(werr.Stage), werr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
