package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Lixing-Zhang/catalog-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidProductID = errors.New("invalid product id")
)

// ProductFilter narrows a product listing. A nil Category matches every product.
type ProductFilter struct {
	Category *string
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// List returns matching products ordered by id
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// Update merges the update into the product and returns the stored result
	Update(ctx context.Context, id string, update models.ProductUpdate) (*models.Product, error)
}

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
}

// NewInMemoryProductRepository creates an in-memory repository holding the given products.
// Products without an id are assigned one.
func NewInMemoryProductRepository(seed ...models.Product) *InMemoryProductRepository {
	products := make(map[primitive.ObjectID]models.Product, len(seed))
	for _, product := range seed {
		if product.ID.IsZero() {
			product.ID = primitive.NewObjectID()
		}
		products[product.ID] = product.Clone()
	}

	return &InMemoryProductRepository{
		products: products,
	}
}

// SeedProducts returns sample data for running the service without a database
func SeedProducts() []models.Product {
	item := func(name, category string, price float64) models.Product {
		return models.Product{Name: &name, Category: &category, Price: &price}
	}

	return []models.Product{
		item("Chicken Waffle", "Waffle", 12.99),
		item("Belgian Waffle", "Waffle", 10.99),
		item("Caesar Salad", "Salad", 8.99),
		item("Greek Salad", "Salad", 9.49),
		item("Margherita Pizza", "Pizza", 14.99),
		item("Classic Burger", "Burger", 13.99),
	}
}

// List returns products matching the filter, sorted by id
func (r *InMemoryProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.Product, 0, len(r.products))
	for _, product := range r.products {
		if filter.Category != nil && (product.Category == nil || *product.Category != *filter.Category) {
			continue
		}
		products = append(products, product.Clone())
	}

	sort.Slice(products, func(i, j int) bool {
		return bytes.Compare(products[i].ID[:], products[j].ID[:]) < 0
	})
	return products, nil
}

// Update merges the update into the stored product
func (r *InMemoryProductRepository) Update(ctx context.Context, id string, update models.ProductUpdate) (*models.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProductID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, exists := r.products[objectID]
	if !exists {
		return nil, ErrProductNotFound
	}

	updated := product.Clone()
	update.Apply(&updated)
	r.products[objectID] = updated

	result := updated.Clone()
	return &result, nil
}

// Ping always succeeds; there is no backing store to reach
func (r *InMemoryProductRepository) Ping(ctx context.Context) error {
	return nil
}
