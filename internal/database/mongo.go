package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/catalog-service/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const appName = "catalog-service"

// Client owns the process-wide MongoDB connection
type Client struct {
	client   *mongo.Client
	database string
	logger   *slog.Logger
}

// Connect opens the connection and verifies it with a ping.
// The caller owns the returned Client and must Close it on shutdown.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*Client, error) {
	timeout := time.Duration(cfg.ConnectTimeout) * time.Second

	opts := ClientOptions(cfg)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	c := &Client{
		client:   client,
		database: cfg.Database,
		logger:   logger,
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.Ping(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	logger.Info("connected to mongodb", "database", cfg.Database, "collection", cfg.Collection)
	return c, nil
}

// ClientOptions builds driver options from config. Pool settings stay at driver defaults.
func ClientOptions(cfg config.MongoConfig) *options.ClientOptions {
	timeout := time.Duration(cfg.ConnectTimeout) * time.Second

	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{
			DefaultDocumentM: true,
		})
}

// Ping checks the primary is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Collection returns a handle to a collection in the configured database
func (c *Client) Collection(name string) *mongo.Collection {
	return c.client.Database(c.database).Collection(name)
}

// Close disconnects from the server
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from mongodb: %w", err)
	}
	c.logger.Info("disconnected from mongodb")
	return nil
}
