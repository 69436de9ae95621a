package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoTransactor runs functions inside a multi-document transaction. Transactions need a
// replica set; with enabled=false fn runs directly (standalone development servers).
type MongoTransactor struct {
	client  *mongo.Client
	enabled bool
	logger  *zap.Logger
}

func NewMongoTransactor(client *mongo.Client, enabled bool, logger *zap.Logger) *MongoTransactor {
	return &MongoTransactor{client: client, enabled: enabled, logger: logger}
}

func (t *MongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		t.logger.Debug("transaction aborted", zap.Error(err))
		return err
	}
	return nil
}

// NewMongoStore wires every Mongo repository against db.
func NewMongoStore(client *mongo.Client, db *mongo.Database, transactions bool, logger *zap.Logger) *Store {
	return &Store{
		Leads:       NewLeadRepository(db, logger),
		Users:       NewUserRepository(db, logger),
		Earnings:    NewEarningRepository(db, logger),
		PaidHistory: NewPaidHistoryRepository(db),
		Withdrawals: NewWithdrawRepository(db),
		Referrals:   NewReferralRepository(db),
		Levels:      NewLevelRepository(db),
		Bonuses:     NewBonusLedgerRepository(db),
		Tx:          NewMongoTransactor(client, transactions, logger),
	}
}
