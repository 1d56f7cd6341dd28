package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/LarinhaPrates/canteen-orders/internal/cart"
	"github.com/LarinhaPrates/canteen-orders/internal/catalog"
	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

type CartHandler struct {
	sessions *cart.SessionStore
	catalog  *catalog.Service
}

func NewCartHandler(sessions *cart.SessionStore, cat *catalog.Service) *CartHandler {
	return &CartHandler{sessions: sessions, catalog: cat}
}

// AddItemRequestDTO carries either a persisted product id (price comes from
// the catalog) or, for legacy unregistered products, a name plus unit price
// and vendor sent by the client.
type AddItemRequestDTO struct {
	ProductID  int64  `json:"product_id,omitempty"`
	ProductKey string `json:"product_key,omitempty"`
	Name       string `json:"name,omitempty"`
	UnitPrice  string `json:"unit_price,omitempty"`
	VendorID   int64  `json:"vendor_id,omitempty"`
}

type cartResponseDTO struct {
	Items []domain.LineItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	agg := h.sessions.Get(buyer.ID)
	respondJSON(w, http.StatusOK, cartResponseDTO{Items: agg.Items(), Total: agg.Total()})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	item, err := h.buildLineItem(r, req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	agg := h.sessions.Get(buyer.ID)
	if err := agg.AddItem(item); err != nil {
		switch {
		case errors.Is(err, cart.ErrVendorMismatch):
			respondError(w, http.StatusConflict, "vendor_mismatch", "cart holds items from a different vendor")
		case errors.Is(err, cart.ErrSubmissionInFlight):
			respondError(w, http.StatusConflict, "submission_in_flight", "cart is locked while a submission settles")
		default:
			respondError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusCreated, cartResponseDTO{Items: agg.Items(), Total: agg.Total()})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	identityKey := chi.URLParam(r, "identity")
	if identityKey == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing item identity")
		return
	}

	agg := h.sessions.Get(buyer.ID)
	if err := agg.RemoveItem(identityKey); err != nil {
		if errors.Is(err, cart.ErrSubmissionInFlight) {
			respondError(w, http.StatusConflict, "submission_in_flight", "cart is locked while a submission settles")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cartResponseDTO{Items: agg.Items(), Total: agg.Total()})
}

// buildLineItem resolves a persisted product through the catalog so the
// backend price wins over whatever the client sent.
func (h *CartHandler) buildLineItem(r *http.Request, req AddItemRequestDTO) (domain.LineItem, error) {
	if req.ProductID > 0 {
		product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.LineItem{}, errors.New("unknown product_id")
			}
			return domain.LineItem{}, err
		}
		return domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			VendorID:  product.VendorID,
		}, nil
	}

	if req.Name == "" {
		return domain.LineItem{}, errors.New("product_id or name is required")
	}
	if req.VendorID <= 0 {
		return domain.LineItem{}, errors.New("vendor_id is required for unregistered products")
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		return domain.LineItem{}, errors.New("unit_price must be a non-negative decimal")
	}

	return domain.LineItem{
		ProductKey: req.ProductKey,
		Name:       req.Name,
		UnitPrice:  price,
		VendorID:   req.VendorID,
	}, nil
}
