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

type MongoReferralRepository struct {
	collection *mongo.Collection
}

func NewReferralRepository(db *mongo.Database) ReferralRepository {
	return &MongoReferralRepository{collection: db.Collection(ReferralsCollection)}
}

func (r *MongoReferralRepository) FindByReferred(ctx context.Context, referredUserID string) (*models.Referral, error) {
	var ref models.Referral
	err := r.collection.FindOne(ctx, bson.M{"referredUserId": referredUserID}).Decode(&ref)
	if err != nil {
		return nil, translate(err)
	}
	return &ref, nil
}

func (r *MongoReferralRepository) ListByReferrer(ctx context.Context, referringUserID string) ([]models.Referral, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"referringUserId": referringUserID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find referrals: %w", err)
	}
	defer cursor.Close(ctx)

	referrals := []models.Referral{}
	if err := cursor.All(ctx, &referrals); err != nil {
		return nil, fmt.Errorf("decode referrals: %w", err)
	}
	return referrals, nil
}

func (r *MongoReferralRepository) MarkApproved(ctx context.Context, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ReferralStatusApproved}},
		bson.M{"$set": bson.M{"status": models.ReferralStatusApproved, "approvedAt": at}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
