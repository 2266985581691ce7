package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/support-desk/internal/domain"
)

type mongoTicketRepository struct {
	collection *mongo.Collection
}

// NewMongoTicketRepository instantiates a repository backed by a Mongo collection.
func NewMongoTicketRepository(collection *mongo.Collection) TicketRepository {
	return &mongoTicketRepository{collection: collection}
}

func (r *mongoTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := storeTime()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, ticket)
	return err
}

func (r *mongoTicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *mongoTicketRepository) FindByFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	cursor, err := r.collection.Find(ctx, mongoFilter(filter), findOptions(filter))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tickets := []domain.Ticket{}
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *mongoTicketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	ticket.UpdatedAt = storeTime()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": ticket.ID}, saveUpdate(ticket))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *mongoTicketRepository) DeleteByCreator(ctx context.Context, creatorID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"creator_id": creatorID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// findOptions orders listings newest-created first with _id as tie breaker.
func findOptions(filter TicketFilter) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	return opts
}

// saveUpdate rewrites every mutable field. creator_id and created_at are
// left alone.
func saveUpdate(ticket *domain.Ticket) bson.M {
	return bson.M{"$set": bson.M{
		"title":          ticket.Title,
		"purchase_id":    ticket.PurchaseID,
		"assigned_admin": ticket.AssignedAdmin,
		"status":         ticket.Status,
		"priority":       ticket.Priority,
		"messages":       ticket.Messages,
		"updated_at":     ticket.UpdatedAt,
	}}
}

func mongoFilter(filter TicketFilter) bson.M {
	query := bson.M{}
	if filter.CreatorID != nil {
		query["creator_id"] = *filter.CreatorID
	}
	if filter.AssignedAdmin != nil {
		query["assigned_admin"] = *filter.AssignedAdmin
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if len(filter.Priorities) > 0 {
		query["priority"] = bson.M{"$in": filter.Priorities}
	}
	return query
}

// storeTime matches the millisecond precision of BSON dates so in-memory and
// persisted tickets compare equal.
func storeTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
