package repositories

import (
	"context"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
)

// Collection names.
const (
	LeadsCollection           = "leads"
	UsersCollection           = "users"
	EarningsCollection        = "earningsHistory"
	PaidHistoryCollection     = "paidHistory"
	WithdrawRequestCollection = "withdrawRequest"
	ReferralsCollection       = "referrals"
	LevelEarningCollection    = "levelEarning"
	BonusAwardsCollection     = "bonusAwards"
	UserDetailsCollection     = "userDetails"
)

// Page is a window over a listing. A zero Limit returns everything from Skip on.
type Page struct {
	Skip  int
	Limit int
}

type LeadRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	// Search returns one page of the leads matching f, newest submission first, and the
	// total match count. now decides which pending leads count as expired.
	Search(ctx context.Context, f models.LeadFilter, now time.Time, page Page) ([]models.Lead, int, error)
	// MarkApproved flips a lead that is not yet approved. ErrConflict when it already is.
	MarkApproved(ctx context.Context, id string, at time.Time) error
	// UpdateStatus sets a status on a lead that is not approved. ErrConflict when it is.
	UpdateStatus(ctx context.Context, id string, status models.LeadStatus, at time.Time) error
	Update(ctx context.Context, id string, upd models.LeadUpdate) error
	// CountApprovedBetween counts approved leads of an agent with statusChangeAt in [from, to].
	CountApprovedBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// SearchAgents returns one page of non-admin users whose name, mobile, email or
	// uniqueID contains q, newest first, and the total match count.
	SearchAgents(ctx context.Context, q string, page Page) ([]models.User, int, error)
	CountAgents(ctx context.Context) (int, error)
	UpdateProfile(ctx context.Context, id string, upd models.UserUpdate) error
	// IncrementApprovedLeads bumps the lifetime counter and returns the new value.
	IncrementApprovedLeads(ctx context.Context, id string) (int, error)
	IncrementEarnings(ctx context.Context, id string, amount float64) error
	GetDetails(ctx context.Context, id string) (*models.UserDetails, error)
	SaveDetails(ctx context.Context, id string, bank *models.BankDetails, profile *models.ProfileDetails) error
}

type EarningRepository interface {
	Insert(ctx context.Context, rec *models.EarningRecord) (string, error)
	FindByID(ctx context.Context, id string) (*models.EarningRecord, error)
	// ListByUser returns the agent's earnings, newest first. An empty status matches all.
	ListByUser(ctx context.Context, userID string, status models.EarningStatus) ([]models.EarningRecord, error)
	// MarkPaid flips one unpaid record owned by userID. ErrNotFound when not owned, ErrConflict when already paid.
	MarkPaid(ctx context.Context, userID, id string, at time.Time) error
}

type PaidHistoryRepository interface {
	Insert(ctx context.Context, rec *models.PaidHistory) (string, error)
	ListByUser(ctx context.Context, userID string) ([]models.PaidHistory, error)
}

type WithdrawRepository interface {
	FindByID(ctx context.Context, id string) (*models.WithdrawRequest, error)
	List(ctx context.Context) ([]models.WithdrawRequest, error)
	// Search joins requests with their agents and returns one page of those matching status
	// ("" or "all" for any) and q, newest first, with the total match count.
	Search(ctx context.Context, status, q string, page Page) ([]models.WithdrawRequestView, int, error)
	// MarkProcessed moves a pending request to status. ErrConflict when it is no longer pending.
	MarkProcessed(ctx context.Context, id string, status models.WithdrawStatus, adminID, note string, at time.Time) error
	// DeletePending removes a request that is still pending.
	DeletePending(ctx context.Context, id string) error
}

type ReferralRepository interface {
	FindByReferred(ctx context.Context, referredUserID string) (*models.Referral, error)
	ListByReferrer(ctx context.Context, referringUserID string) ([]models.Referral, error)
	// MarkApproved flips a referral that is not yet approved. ErrConflict when it already is.
	MarkApproved(ctx context.Context, id string, at time.Time) error
}

type LevelRepository interface {
	List(ctx context.Context) ([]models.LevelTier, error)
	Upsert(ctx context.Context, tier models.LevelTier) error
	Delete(ctx context.Context, name string) error
}

type BonusLedgerRepository interface {
	// Insert records an award. ErrDuplicate when (userId, tier, month) already exists.
	Insert(ctx context.Context, award *models.BonusAward) error
	Exists(ctx context.Context, userID, tier, month string) (bool, error)
}

// Transactor runs fn atomically. Repositories called with the ctx handed to fn join the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository the services need.
type Store struct {
	Leads       LeadRepository
	Users       UserRepository
	Earnings    EarningRepository
	PaidHistory PaidHistoryRepository
	Withdrawals WithdrawRepository
	Referrals   ReferralRepository
	Levels      LevelRepository
	Bonuses     BonusLedgerRepository
	Tx          Transactor
}
