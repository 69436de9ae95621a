package services

import (
	"context"
	"testing"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type withdrawalFixture struct {
	mem      *repositories.MemoryStore
	store    *repositories.Store
	notifier *recordingNotifier
	now      time.Time
	svc      *WithdrawalService
}

func newWithdrawalFixture() *withdrawalFixture {
	mem := repositories.NewMemoryStore()
	f := &withdrawalFixture{
		mem:      mem,
		store:    mem.Store(),
		notifier: &recordingNotifier{},
		now:      time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC),
	}
	f.svc = NewWithdrawalService(f.store, f.notifier, nil, FixedClock{T: f.now}, zap.NewNop())
	return f
}

func (f *withdrawalFixture) earning(agentID string, amount float64) string {
	return f.mem.PutEarning(models.EarningRecord{
		UserID: agentID,
		Amount: amount,
		Date:   f.now.AddDate(0, 0, -10),
		Type:   models.EarningTypeSale,
		Status: models.EarningStatusUnpaid,
	})
}

func TestWithdrawalApprovePaysReferencedEarnings(t *testing.T) {
	f := newWithdrawalFixture()
	ctx := context.Background()
	agentID := f.mem.PutUser(models.User{FullName: "Dev Patel", Email: "dev@example.com", Earnings: 200})
	e1 := f.earning(agentID, 400)
	e2 := f.earning(agentID, 600)
	e3 := f.earning(agentID, 900)
	reqID := f.mem.PutWithdrawRequest(models.WithdrawRequest{
		UserID:     agentID,
		Amount:     1000,
		Status:     models.WithdrawStatusPending,
		Date:       f.now.AddDate(0, 0, -1),
		EarningIDs: []string{e1, e2, e2},
	})

	res, err := f.svc.Approve(ctx, adminSession, reqID, "paid via NEFT")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{e1, e2}, res.PaidEarningIDs)
	assert.Empty(t, res.SkippedEarnings)
	assert.NotEmpty(t, res.PaidHistoryID)
	assert.Equal(t, models.WithdrawStatusApproved, res.Request.Status)

	for _, id := range []string{e1, e2} {
		e, err := f.store.Earnings.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.EarningStatusPaid, e.Status)
		require.NotNil(t, e.PaidAt)
		assert.True(t, e.PaidAt.Equal(f.now))
	}
	untouched, err := f.store.Earnings.FindByID(ctx, e3)
	require.NoError(t, err)
	assert.Equal(t, models.EarningStatusUnpaid, untouched.Status)

	stored, err := f.store.Withdrawals.FindByID(ctx, reqID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStatusApproved, stored.Status)
	assert.Equal(t, adminSession.OperatorID, stored.AdminID)
	assert.Equal(t, "paid via NEFT", stored.AdminNote)

	history, err := f.store.PaidHistory.ListByUser(ctx, agentID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1000.0, history[0].Amount)
	assert.Equal(t, reqID, history[0].WithdrawRequestID)

	agent, err := f.store.Users.FindByID(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, agent.Earnings)

	require.Len(t, f.notifier.decided, 1)
}

func TestWithdrawalApproveSkipsForeignAndPaidEarnings(t *testing.T) {
	f := newWithdrawalFixture()
	ctx := context.Background()
	agentID := f.mem.PutUser(models.User{FullName: "Isha"})
	otherID := f.mem.PutUser(models.User{FullName: "Other"})
	own := f.earning(agentID, 100)
	foreign := f.earning(otherID, 100)
	paidAt := f.now.AddDate(0, -1, 0)
	alreadyPaid := f.mem.PutEarning(models.EarningRecord{UserID: agentID, Amount: 50, Status: models.EarningStatusPaid, PaidAt: &paidAt})

	reqID := f.mem.PutWithdrawRequest(models.WithdrawRequest{
		UserID:     agentID,
		Amount:     100,
		Status:     models.WithdrawStatusPending,
		EarningIDs: []string{own, foreign, alreadyPaid, "missing"},
	})

	res, err := f.svc.Approve(ctx, adminSession, reqID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{own}, res.PaidEarningIDs)
	assert.ElementsMatch(t, []string{foreign, alreadyPaid, "missing"}, res.SkippedEarnings)

	e, err := f.store.Earnings.FindByID(ctx, foreign)
	require.NoError(t, err)
	assert.Equal(t, models.EarningStatusUnpaid, e.Status)
}

func TestWithdrawalCannotBeProcessedTwice(t *testing.T) {
	f := newWithdrawalFixture()
	ctx := context.Background()
	agentID := f.mem.PutUser(models.User{FullName: "Once"})
	reqID := f.mem.PutWithdrawRequest(models.WithdrawRequest{UserID: agentID, Amount: 10, Status: models.WithdrawStatusPending})

	_, err := f.svc.Approve(ctx, adminSession, reqID, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, adminSession, reqID, "")
	assert.ErrorIs(t, err, ErrWithdrawRequestProcessed)
	_, err = f.svc.Reject(ctx, adminSession, reqID, "")
	assert.ErrorIs(t, err, ErrWithdrawRequestProcessed)
	assert.ErrorIs(t, f.svc.Delete(ctx, adminSession, reqID), ErrWithdrawRequestProcessed)

	agent, err := f.store.Users.FindByID(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, agent.Earnings)
}

func TestWithdrawalApproveRollsBackWhenAgentMissing(t *testing.T) {
	f := newWithdrawalFixture()
	ctx := context.Background()
	e1 := f.earning("ghost", 10)
	reqID := f.mem.PutWithdrawRequest(models.WithdrawRequest{UserID: "ghost", Amount: 10, Status: models.WithdrawStatusPending, EarningIDs: []string{e1}})

	_, err := f.svc.Approve(ctx, adminSession, reqID, "")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	stored, err := f.store.Withdrawals.FindByID(ctx, reqID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStatusPending, stored.Status)
	e, err := f.store.Earnings.FindByID(ctx, e1)
	require.NoError(t, err)
	assert.Equal(t, models.EarningStatusUnpaid, e.Status)
}

func TestWithdrawalRejectAndDelete(t *testing.T) {
	f := newWithdrawalFixture()
	ctx := context.Background()
	agentID := f.mem.PutUser(models.User{FullName: "Rej"})
	e1 := f.earning(agentID, 10)
	rejected := f.mem.PutWithdrawRequest(models.WithdrawRequest{UserID: agentID, Amount: 10, Status: models.WithdrawStatusPending, EarningIDs: []string{e1}})
	deleted := f.mem.PutWithdrawRequest(models.WithdrawRequest{UserID: agentID, Amount: 5, Status: models.WithdrawStatusPending})

	req, err := f.svc.Reject(ctx, adminSession, rejected, "bank details missing")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStatusRejected, req.Status)
	assert.Equal(t, "bank details missing", req.AdminNote)

	e, err := f.store.Earnings.FindByID(ctx, e1)
	require.NoError(t, err)
	assert.Equal(t, models.EarningStatusUnpaid, e.Status)

	require.NoError(t, f.svc.Delete(ctx, adminSession, deleted))
	_, err = f.svc.Get(ctx, deleted)
	assert.ErrorIs(t, err, ErrWithdrawRequestNotFound)

	_, err = f.svc.Reject(ctx, nil, rejected, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWithdrawalSearchJoinsAgents(t *testing.T) {
	f := newWithdrawalFixture()
	ctx := context.Background()
	anita := f.mem.PutUser(models.User{FullName: "Anita Rao", Email: "anita@example.com", Mobile: "9000000001"})
	vikram := f.mem.PutUser(models.User{FullName: "Vikram Shah", Email: "vikram@example.com", Mobile: "9000000002"})
	f.mem.PutDetails(models.UserDetails{UserID: anita, Bank: &models.BankDetails{BankName: "HDFC", AccountNumber: "123"}})

	first := f.mem.PutWithdrawRequest(models.WithdrawRequest{UserID: anita, Amount: 10, Status: models.WithdrawStatusPending, Date: f.now})
	f.mem.PutWithdrawRequest(models.WithdrawRequest{UserID: vikram, Amount: 20, Status: models.WithdrawStatusApproved, Date: f.now.Add(-time.Hour)})

	all, total, err := f.svc.Search(ctx, "all", "", 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Anita Rao", all[0].UserName)

	second, total, err := f.svc.Search(ctx, "all", "", 2, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Vikram Shah", second[0].UserName)

	pending, _, err := f.svc.Search(ctx, "pending", "", 1, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first, pending[0].ID)

	byName, _, err := f.svc.Search(ctx, "", "vikram", 1, 0)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "vikram@example.com", byName[0].UserEmail)

	_, _, err = f.svc.Search(ctx, "paid", "", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	details, err := f.svc.Get(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, details.BankDetails)
	assert.Equal(t, "HDFC", details.BankDetails.BankName)
	assert.Equal(t, "9000000001", details.UserMobile)
}
