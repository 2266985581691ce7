package persistence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TicketIndexes lists the secondary indexes the ticket queries rely on.
func TicketIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_admin", Value: 1}}},
	}
}

// EnsureTicketIndexes creates the ticket indexes. Existing indexes are left untouched.
func EnsureTicketIndexes(ctx context.Context, collection *mongo.Collection, logger *zap.Logger) error {
	if collection == nil {
		logger.Warn("no ticket collection available; skipping index creation")
		return nil
	}
	names, err := collection.Indexes().CreateMany(ctx, TicketIndexes())
	if err != nil {
		return fmt.Errorf("create ticket indexes: %w", err)
	}
	logger.Info("ticket indexes ensured", zap.Strings("indexes", names))
	return nil
}
