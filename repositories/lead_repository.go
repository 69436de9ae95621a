package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MongoLeadRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewLeadRepository(db *mongo.Database, logger *zap.Logger) LeadRepository {
	return &MongoLeadRepository{
		collection: db.Collection(LeadsCollection),
		logger:     logger,
	}
}

func (r *MongoLeadRepository) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lead); err != nil {
		return nil, translate(err)
	}
	return &lead, nil
}

func (r *MongoLeadRepository) Search(ctx context.Context, f models.LeadFilter, now time.Time, page Page) ([]models.Lead, int, error) {
	filter := leadQuery(f, now)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	opts := pageOptions(options.Find().SetSort(bson.D{{Key: "submissionDate", Value: -1}, {Key: "_id", Value: -1}}), page)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find leads: %w", err)
	}
	defer cursor.Close(ctx)

	leads := []models.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, 0, fmt.Errorf("decode leads: %w", err)
	}
	return leads, int(total), nil
}

func (r *MongoLeadRepository) MarkApproved(ctx context.Context, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.LeadStatusApproved}},
		bson.M{"$set": bson.M{"status": models.LeadStatusApproved, "statusChangeAt": at}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// UpdateStatus never touches an approved lead; that case reports ErrConflict.
func (r *MongoLeadRepository) UpdateStatus(ctx context.Context, id string, status models.LeadStatus, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.LeadStatusApproved}},
		bson.M{"$set": bson.M{"status": status, "statusChangeAt": at}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *MongoLeadRepository) Update(ctx context.Context, id string, upd models.LeadUpdate) error {
	set := bson.M{}
	if upd.BankID != nil {
		set["bankId"] = *upd.BankID
	}
	if upd.ServiceID != nil {
		set["serviceId"] = *upd.ServiceID
	}
	if upd.CustomerDetails != nil {
		set["customerDetails"] = *upd.CustomerDetails
	}
	if upd.EarningAmount != nil {
		set["earningAmount"] = *upd.EarningAmount
	}
	if len(set) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoLeadRepository) CountApprovedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"userId":         userID,
		"status":         models.LeadStatusApproved,
		"statusChangeAt": bson.M{"$gte": from, "$lte": to},
	})
	if err != nil {
		return 0, fmt.Errorf("count approved leads: %w", err)
	}
	return int(n), nil
}

func (r *MongoLeadRepository) CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate lead status: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.LeadStatus `bson:"_id"`
		Count  int               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode lead status counts: %w", err)
	}

	counts := make(map[models.LeadStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *MongoLeadRepository) missingOrConflict(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
