package service

import (
	"context"

	"github.com/Lixing-Zhang/catalog-service/internal/models"
	"github.com/Lixing-Zhang/catalog-service/internal/repository"
)

// ProductService passes product requests through to the repository
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts returns products in the given category, or all products when category is empty
func (s *ProductService) ListProducts(ctx context.Context, category string) ([]models.Product, error) {
	filter := repository.ProductFilter{}
	if category != "" {
		filter.Category = &category
	}
	return s.repo.List(ctx, filter)
}

// UpdateProduct merges the update into the product with the given id
func (s *ProductService) UpdateProduct(ctx context.Context, id string, update models.ProductUpdate) (*models.Product, error) {
	return s.repo.Update(ctx, id, update)
}
