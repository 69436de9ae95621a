package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoEarningRepository backs users/{id}/earningsHistory with a userId-scoped collection.
type MongoEarningRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewEarningRepository(db *mongo.Database, logger *zap.Logger) EarningRepository {
	return &MongoEarningRepository{
		collection: db.Collection(EarningsCollection),
		logger:     logger,
	}
}

func (r *MongoEarningRepository) Insert(ctx context.Context, rec *models.EarningRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = primitive.NewObjectID().Hex()
	}
	if rec.Status == "" {
		rec.Status = models.EarningStatusUnpaid
	}
	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return "", translate(err)
	}
	return rec.ID, nil
}

func (r *MongoEarningRepository) FindByID(ctx context.Context, id string) (*models.EarningRecord, error) {
	var rec models.EarningRecord
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (r *MongoEarningRepository) ListByUser(ctx context.Context, userID string, status models.EarningStatus) ([]models.EarningRecord, error) {
	filter := bson.M{"userId": userID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find earnings: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.EarningRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode earnings: %w", err)
	}
	return records, nil
}

func (r *MongoEarningRepository) MarkPaid(ctx context.Context, userID, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID, "status": bson.M{"$ne": models.EarningStatusPaid}},
		bson.M{"$set": bson.M{"status": models.EarningStatusPaid, "paidAt": at}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

type MongoPaidHistoryRepository struct {
	collection *mongo.Collection
}

func NewPaidHistoryRepository(db *mongo.Database) PaidHistoryRepository {
	return &MongoPaidHistoryRepository{collection: db.Collection(PaidHistoryCollection)}
}

func (r *MongoPaidHistoryRepository) Insert(ctx context.Context, rec *models.PaidHistory) (string, error) {
	if rec.ID == "" {
		rec.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return "", translate(err)
	}
	return rec.ID, nil
}

func (r *MongoPaidHistoryRepository) ListByUser(ctx context.Context, userID string) ([]models.PaidHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find paid history: %w", err)
	}
	defer cursor.Close(ctx)

	history := []models.PaidHistory{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("decode paid history: %w", err)
	}
	return history, nil
}
