package http

import (
	"context"
	"net/http"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

// OrderReader is the buyer-facing order history slice.
type OrderReader interface {
	ListHeadersByBuyer(ctx context.Context, buyerID string) ([]*domain.OrderHeader, error)
}

type OrdersHandler struct {
	orders OrderReader
}

func NewOrdersHandler(orders OrderReader) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type orderSummaryDTO struct {
	ID        string `json:"id"`
	VendorID  int64  `json:"vendor_id"`
	Status    string `json:"status"`
	Total     string `json:"total"`
	CreatedAt string `json:"created_at"`
}

func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	headers, err := h.orders.ListHeadersByBuyer(r.Context(), buyer.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	out := make([]orderSummaryDTO, 0, len(headers))
	for _, header := range headers {
		out = append(out, orderSummaryDTO{
			ID:        header.ID.String(),
			VendorID:  header.VendorID,
			Status:    header.Status.String(),
			Total:     header.Total.StringFixed(2),
			CreatedAt: header.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
