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

// MongoUserRepository stores agents and operators in the users collection.
type MongoUserRepository struct {
	collection *mongo.Collection
	details    *mongo.Collection
	logger     *zap.Logger
}

func NewUserRepository(db *mongo.Database, logger *zap.Logger) UserRepository {
	return &MongoUserRepository{
		collection: db.Collection(UsersCollection),
		details:    db.Collection(UserDetailsCollection),
		logger:     logger,
	}
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, user)
	return translate(err)
}

func (r *MongoUserRepository) SearchAgents(ctx context.Context, q string, page Page) ([]models.User, int, error) {
	filter := agentQuery(q)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count agents: %w", err)
	}

	opts := pageOptions(options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}), page)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find agents: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode agents: %w", err)
	}
	return users, int(total), nil
}

func (r *MongoUserRepository) CountAgents(ctx context.Context) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"role": bson.M{"$ne": models.RoleAdmin}})
	if err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return int(n), nil
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, upd models.UserUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.FullName != nil {
		set["fullname"] = *upd.FullName
	}
	if upd.Mobile != nil {
		set["mobile"] = *upd.Mobile
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if upd.Bank != nil || upd.Profile != nil {
		return r.SaveDetails(ctx, id, upd.Bank, upd.Profile)
	}
	return nil
}

func (r *MongoUserRepository) IncrementApprovedLeads(ctx context.Context, id string) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"approvedLeads": 1}},
		opts,
	).Decode(&user)
	if err != nil {
		return 0, translate(err)
	}
	return user.ApprovedLeads, nil
}

func (r *MongoUserRepository) IncrementEarnings(ctx context.Context, id string, amount float64) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"earnings": amount}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) GetDetails(ctx context.Context, id string) (*models.UserDetails, error) {
	var details models.UserDetails
	err := r.details.FindOne(ctx, bson.M{"_id": id}).Decode(&details)
	if err != nil {
		err = translate(err)
		if err == ErrNotFound {
			return &models.UserDetails{UserID: id}, nil
		}
		return nil, err
	}
	return &details, nil
}

func (r *MongoUserRepository) SaveDetails(ctx context.Context, id string, bank *models.BankDetails, profile *models.ProfileDetails) error {
	set := bson.M{}
	if bank != nil {
		set["bankDetails"] = bank
	}
	if profile != nil {
		set["profileDetails"] = profile
	}
	if len(set) == 0 {
		return nil
	}

	_, err := r.details.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("failed to save user details", zap.String("user_id", id), zap.Error(err))
		return translate(err)
	}
	return nil
}
