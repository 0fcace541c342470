package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/catalog-service/internal/models"
	"github.com/Lixing-Zhang/catalog-service/internal/repository"
	"github.com/Lixing-Zhang/catalog-service/internal/response"
	"github.com/Lixing-Zhang/catalog-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// maxUpdateBodyBytes caps update payloads
const maxUpdateBodyBytes = 1 << 20

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /api/products
// The optional category query parameter filters by exact match.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	products, err := h.service.ListProducts(r.Context(), category)
	if err != nil {
		response.WriteInternalError(w, r, err, h.logger, "failed to list products", "category", category)
		return
	}

	response.WriteJSON(w, http.StatusOK, products, h.logger)
}

// UpdateProduct handles PUT /api/products/{id}
// Responses:
// - 200: product updated; the body never echoes the product
// - 400: body is not a JSON object, has a mistyped field, or tries to change the id
// - 404: no product has this id
// - 413: body too large
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBodyBytes)

	update, err := decodeUpdate(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.logger.Warn("update body too large", "productId", productID, "limit", tooLarge.Limit)
			response.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", h.logger)
		case errors.Is(err, models.ErrImmutableID):
			h.logger.Warn("update attempted to change product id", "productId", productID)
			response.WriteError(w, http.StatusBadRequest, "Product id is immutable", h.logger)
		default:
			h.logger.Warn("invalid update body", "productId", productID, "error", err)
			response.WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		}
		return
	}

	if _, err := h.service.UpdateProduct(r.Context(), productID, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			h.logger.Info("product not found", "productId", productID)
			response.WriteError(w, http.StatusNotFound, "Product not found", h.logger)
		case errors.Is(err, repository.ErrInvalidProductID):
			// An id the store cannot parse matches no product.
			h.logger.Info("product not found", "productId", productID, "reason", "malformed id")
			response.WriteError(w, http.StatusNotFound, "Product not found", h.logger)
		default:
			response.WriteInternalError(w, r, err, h.logger, "failed to update product", "productId", productID)
		}
		return
	}

	h.logger.Info("product updated", "productId", productID, "fields", len(update.SetFields()))
	response.WriteMessage(w, http.StatusOK, true, "Product updated successfully", h.logger)
}

// decodeUpdate reads exactly one JSON object from body
func decodeUpdate(body io.Reader) (models.ProductUpdate, error) {
	var update models.ProductUpdate

	dec := json.NewDecoder(body)
	if err := dec.Decode(&update); err != nil {
		return update, err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return update, err
		}
		return update, fmt.Errorf("%w: unexpected data after the JSON object", models.ErrInvalidUpdate)
	}
	return update, nil
}
