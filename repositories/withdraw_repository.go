package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoWithdrawRepository struct {
	collection *mongo.Collection
}

func NewWithdrawRepository(db *mongo.Database) WithdrawRepository {
	return &MongoWithdrawRepository{collection: db.Collection(WithdrawRequestCollection)}
}

func (r *MongoWithdrawRepository) FindByID(ctx context.Context, id string) (*models.WithdrawRequest, error) {
	var req models.WithdrawRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *MongoWithdrawRepository) List(ctx context.Context) ([]models.WithdrawRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find withdraw requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.WithdrawRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("decode withdraw requests: %w", err)
	}
	return requests, nil
}

func (r *MongoWithdrawRepository) Search(ctx context.Context, status, q string, page Page) ([]models.WithdrawRequestView, int, error) {
	cursor, err := r.collection.Aggregate(ctx, withdrawPipeline(status, q, page))
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate withdraw requests: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Items []models.WithdrawRequestView `bson:"items"`
		Total []struct {
			N int `bson:"n"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, 0, fmt.Errorf("decode withdraw requests: %w", err)
	}

	views := []models.WithdrawRequestView{}
	total := 0
	if len(result) > 0 {
		if result[0].Items != nil {
			views = result[0].Items
		}
		if len(result[0].Total) > 0 {
			total = result[0].Total[0].N
		}
	}
	return views, total, nil
}

func (r *MongoWithdrawRepository) MarkProcessed(ctx context.Context, id string, status models.WithdrawStatus, adminID, note string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.WithdrawStatusPending},
		bson.M{"$set": bson.M{
			"status":      status,
			"processedAt": at,
			"adminId":     adminID,
			"adminNote":   note,
		}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *MongoWithdrawRepository) DeletePending(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "status": models.WithdrawStatusPending})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *MongoWithdrawRepository) missingOrConflict(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
