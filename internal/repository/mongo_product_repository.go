package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/catalog-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProductRepository persists products in a MongoDB collection
type MongoProductRepository struct {
	collection *mongo.Collection
}

// NewMongoProductRepository binds a repository to the given collection
func NewMongoProductRepository(collection *mongo.Collection) *MongoProductRepository {
	return &MongoProductRepository{collection: collection}
}

// List runs one find against the collection, sorted by _id
func (r *MongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.D{}
	if filter.Category != nil {
		query = append(query, bson.E{Key: "category", Value: *filter.Category})
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Update applies the update with $set and returns the document after the write.
// An empty update only checks that the product exists.
// Only the command result decides success; the returned document is best effort.
func (r *MongoProductRepository) Update(ctx context.Context, id string, update models.ProductUpdate) (*models.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProductID, id)
	}
	filter := bson.D{{Key: "_id", Value: objectID}}

	var result *mongo.SingleResult
	if update.IsEmpty() {
		result = r.collection.FindOne(ctx, filter)
	} else {
		change := bson.D{{Key: "$set", Value: update.SetFields()}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		result = r.collection.FindOneAndUpdate(ctx, filter, change, opts)
	}

	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("updating product %s: %w", id, err)
	}

	// The write has been applied by now, so an unreadable document must not fail the update.
	product := models.Product{ID: objectID}
	if raw, err := result.Raw(); err == nil {
		var stored models.Product
		if stored.UnmarshalBSON(raw) == nil {
			product = stored
		}
	}
	return &product, nil
}
