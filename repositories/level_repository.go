package repositories

import (
	"context"
	"fmt"

	"github.com/HSouheill/leadbridge_admin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoLevelRepository struct {
	collection *mongo.Collection
}

func NewLevelRepository(db *mongo.Database) LevelRepository {
	return &MongoLevelRepository{collection: db.Collection(LevelEarningCollection)}
}

func (r *MongoLevelRepository) List(ctx context.Context) ([]models.LevelTier, error) {
	opts := options.Find().SetSort(bson.D{{Key: "leadsRequired", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find level tiers: %w", err)
	}
	defer cursor.Close(ctx)

	tiers := []models.LevelTier{}
	if err := cursor.All(ctx, &tiers); err != nil {
		return nil, fmt.Errorf("decode level tiers: %w", err)
	}
	return tiers, nil
}

func (r *MongoLevelRepository) Upsert(ctx context.Context, tier models.LevelTier) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": tier.Name},
		bson.M{"$set": bson.M{"leadsRequired": tier.LeadsRequired, "earning": tier.Earning}},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

func (r *MongoLevelRepository) Delete(ctx context.Context, name string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoBonusLedgerRepository relies on the unique (userId, tier, month) index created at startup.
type MongoBonusLedgerRepository struct {
	collection *mongo.Collection
}

func NewBonusLedgerRepository(db *mongo.Database) BonusLedgerRepository {
	return &MongoBonusLedgerRepository{collection: db.Collection(BonusAwardsCollection)}
}

func (r *MongoBonusLedgerRepository) Insert(ctx context.Context, award *models.BonusAward) error {
	if award.ID == "" {
		award.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, award)
	return translate(err)
}

func (r *MongoBonusLedgerRepository) Exists(ctx context.Context, userID, tier, month string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "tier": tier, "month": month})
	if err != nil {
		return false, fmt.Errorf("count bonus awards: %w", err)
	}
	return n > 0, nil
}
