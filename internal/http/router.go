package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Products *ProductHandler
	Admin    *AdminHandler
	Verifier TokenVerifier
	Timeout  time.Duration
}

// NewRouter wires the buyer and admin surfaces. Everything under /api/v1
// requires authentication; the admin routes additionally assume the caller
// was authorized upstream (admin RBAC is outside this service).
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(deps.Timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Verifier))

		r.Get("/products", deps.Products.ListByVendor)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", deps.Cart.GetCart)
			r.Post("/items", deps.Cart.AddItem)
			r.Delete("/items/{identity}", deps.Cart.RemoveItem)
		})

		r.Post("/checkout", deps.Checkout.Submit)
		r.Get("/orders", deps.Orders.ListMine)

		r.Route("/admin/orders", func(r chi.Router) {
			r.Get("/", deps.Admin.ListByOrganization)
			r.Get("/{id}", deps.Admin.Detail)
			r.Post("/{id}/status", deps.Admin.Settle)
		})
	})

	return r
}
