package http

import (
	"net/http"
	"strconv"

	"github.com/LarinhaPrates/canteen-orders/internal/catalog"
)

type ProductHandler struct {
	catalog *catalog.Service
}

func NewProductHandler(cat *catalog.Service) *ProductHandler {
	return &ProductHandler{catalog: cat}
}

func (h *ProductHandler) ListByVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)
	if err != nil || vendorID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_vendor_id", "vendor_id must be a positive integer")
		return
	}

	products, err := h.catalog.ListProducts(r.Context(), vendorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, products)
}
