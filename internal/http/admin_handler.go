package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/LarinhaPrates/canteen-orders/internal/admin"
	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

type AdminHandler struct {
	admin *admin.Service
}

func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{admin: svc}
}

type settleRequestDTO struct {
	Status string `json:"status"`
}

// Settle confirms or cancels an order. This is the privileged operation the
// submission core never performs itself.
func (h *AdminHandler) Settle(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	var req settleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	to := domain.OrderStatus(req.Status)
	if to != domain.OrderStatusCompleted && to != domain.OrderStatusCancelled {
		respondError(w, http.StatusBadRequest, "invalid_status", "status must be COMPLETED or CANCELLED")
		return
	}

	if err := h.admin.SettleOrder(r.Context(), orderID, to); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, http.StatusNotFound, "order_not_found", "no such order")
		case errors.Is(err, admin.ErrIllegalTransition):
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": orderID.String(), "status": string(to)})
}

func (h *AdminHandler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(r.URL.Query().Get("organization_id"), 10, 64)
	if err != nil || orgID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_organization_id", "organization_id must be a positive integer")
		return
	}

	headers, err := h.admin.ListOrders(r.Context(), orgID)
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

type orderDetailDTO struct {
	Header   orderSummaryDTO `json:"header"`
	Summary  json.RawMessage `json:"items_summary"`
	Lines    []orderLineDTO  `json:"lines"`
	Degraded bool            `json:"degraded"`
}

type orderLineDTO struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// Detail surfaces the header-only degraded state explicitly: a header that
// expected line rows but has fewer persisted than it promised. An order whose
// lines were all intentionally skipped (no persisted product reference)
// expects zero and is complete.
func (h *AdminHandler) Detail(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	header, lines, err := h.admin.OrderDetail(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "no such order")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	out := orderDetailDTO{
		Header: orderSummaryDTO{
			ID:        header.ID.String(),
			VendorID:  header.VendorID,
			Status:    header.Status.String(),
			Total:     header.Total.StringFixed(2),
			CreatedAt: header.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		Summary:  json.RawMessage(header.ItemsSummary),
		Lines:    make([]orderLineDTO, 0, len(lines)),
		Degraded: len(lines) < header.LinesExpected,
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, orderLineDTO{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
