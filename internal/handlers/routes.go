package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the health check and the product API on r
func RegisterRoutes(r chi.Router, health *HealthHandler, products *ProductHandler) {
	r.Get("/health", health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", products.ListProducts)
		r.Put("/products/{id}", products.UpdateProduct)
	})
}
