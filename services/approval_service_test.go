package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var adminSession = &models.Session{OperatorID: "op-1", Email: "ops@leadbridge.app", Role: models.RoleAdmin}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingNotifier struct {
	mu       sync.Mutex
	approved []*models.ApprovalResult
	decided  []*models.WithdrawRequest
}

func (n *recordingNotifier) LeadApproved(_ context.Context, _ *models.User, r *models.ApprovalResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, r)
}

func (n *recordingNotifier) WithdrawalProcessed(_ context.Context, _ *models.User, r *models.WithdrawRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decided = append(n.decided, r)
}

type approvalFixture struct {
	mem      *repositories.MemoryStore
	store    *repositories.Store
	clock    *testClock
	notifier *recordingNotifier
	svc      *ApprovalService
}

func newApprovalFixture(t *testing.T, strict bool) *approvalFixture {
	t.Helper()
	mem := repositories.NewMemoryStore()
	f := &approvalFixture{
		mem:      mem,
		store:    mem.Store(),
		clock:    &testClock{t: time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
	}
	f.svc = f.build(strict)
	return f
}

func (f *approvalFixture) build(strict bool) *ApprovalService {
	cfg := config.ApprovalConfig{ReferralBonus: 500, StrictAmount: strict, AgentLockTTL: time.Second}
	return NewApprovalService(f.store, NewLocalAgentLocker(), f.notifier, nil, f.clock, cfg, zap.NewNop())
}

func (f *approvalFixture) agent(name string) string {
	return f.mem.PutUser(models.User{FullName: name, Email: name + "@example.com", Role: models.RoleUser})
}

func (f *approvalFixture) lead(agentID string) string {
	return f.mem.PutLead(models.Lead{
		UserID:         agentID,
		Status:         models.LeadStatusPending,
		SubmissionDate: f.clock.Now().AddDate(0, 0, -3),
		CustomerDetails: models.CustomerDetails{
			FullName: "Customer of " + agentID,
			Mobile:   "9876543210",
		},
	})
}

func (f *approvalFixture) earnings(t *testing.T, agentID string, typ models.EarningType) []models.EarningRecord {
	t.Helper()
	all, err := f.store.Earnings.ListByUser(context.Background(), agentID, "")
	require.NoError(t, err)
	var out []models.EarningRecord
	for _, e := range all {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestApproveLeadRecordsSaleEarning(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	agentID := f.agent("asha")
	leadID := f.lead(agentID)

	res, err := f.svc.ApproveLead(ctx, adminSession, leadID, "1500")
	require.NoError(t, err)

	assert.Equal(t, leadID, res.LeadID)
	assert.Equal(t, agentID, res.AgentID)
	assert.Equal(t, 1500.0, res.Amount)
	assert.Equal(t, 1, res.MonthlyApprovedCount)
	assert.Equal(t, 1, res.LifetimeApprovedCount)
	assert.Nil(t, res.Bonus)
	assert.Nil(t, res.Referral)

	lead, err := f.store.Leads.FindByID(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusApproved, lead.Status)
	require.NotNil(t, lead.StatusChangeAt)
	assert.True(t, lead.StatusChangeAt.Equal(f.clock.Now()))

	sales := f.earnings(t, agentID, models.EarningTypeSale)
	require.Len(t, sales, 1)
	assert.Equal(t, res.SaleEarningID, sales[0].ID)
	assert.Equal(t, 1500.0, sales[0].Amount)
	assert.Equal(t, leadID, sales[0].LeadID)
	assert.Equal(t, models.EarningStatusUnpaid, sales[0].Status)
	assert.Nil(t, sales[0].PaidAt)

	require.Len(t, f.notifier.approved, 1)
	assert.Equal(t, leadID, f.notifier.approved[0].LeadID)
}

func TestApproveLeadTwiceCreatesOneSaleEarning(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	agentID := f.agent("ravi")
	leadID := f.lead(agentID)

	_, err := f.svc.ApproveLead(ctx, adminSession, leadID, "100")
	require.NoError(t, err)

	_, err = f.svc.ApproveLead(ctx, adminSession, leadID, "100")
	assert.ErrorIs(t, err, ErrLeadAlreadyApproved)

	assert.Len(t, f.earnings(t, agentID, models.EarningTypeSale), 1)
	agent, err := f.store.Users.FindByID(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, 1, agent.ApprovedLeads)
}

func TestApproveLeadValidation(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()

	orphan := f.mem.PutLead(models.Lead{Status: models.LeadStatusPending})
	ghostAgent := f.mem.PutLead(models.Lead{UserID: "missing-agent", Status: models.LeadStatusNew})

	tests := []struct {
		name   string
		leadID string
		want   error
	}{
		{"unknown lead", "nope", ErrLeadNotFound},
		{"lead without agent", orphan, ErrLeadHasNoAgent},
		{"agent missing", ghostAgent, ErrAgentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ApproveLead(ctx, adminSession, tt.leadID, "10")
			assert.ErrorIs(t, err, tt.want)

			var ae *ApprovalError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, StepValidate, ae.Step)
		})
	}

	_, err := f.svc.ApproveLead(ctx, nil, orphan, "10")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApproveLeadAmountParsing(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		raw     string
		want    float64
		wantErr bool
	}{
		{"empty is zero", true, "", 0, false},
		{"decimal", true, "1250.50", 1250.5, false},
		{"padded", true, " 300 ", 300, false},
		{"non-numeric strict", true, "10L", 0, true},
		{"nan strict", true, "NaN", 0, true},
		{"infinity strict", true, "Inf", 0, true},
		{"negative strict", true, "-5", 0, true},
		{"non-numeric lenient", false, "abc", 0, false},
		{"negative lenient", false, "-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApprovalFixture(t, tt.strict)
			agentID := f.agent("amt")
			leadID := f.lead(agentID)

			res, err := f.svc.ApproveLead(context.Background(), adminSession, leadID, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedAmount)
				lead, lerr := f.store.Leads.FindByID(context.Background(), leadID)
				require.NoError(t, lerr)
				assert.Equal(t, models.LeadStatusPending, lead.Status)
				assert.Empty(t, f.earnings(t, agentID, models.EarningTypeSale))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Amount)
		})
	}
}

func TestLevelBonusAwardedOncePerTier(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	f.mem.PutLevel(models.LevelTier{Name: "Silver", LeadsRequired: 5, Earning: 100})
	f.mem.PutLevel(models.LevelTier{Name: "Gold", LeadsRequired: 10, Earning: 250})
	agentID := f.agent("meera")

	for i := 1; i <= 10; i++ {
		f.clock.Set(f.clock.Now().Add(time.Minute))
		res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(agentID), "100")
		require.NoError(t, err)
		assert.Equal(t, i, res.MonthlyApprovedCount)

		switch i {
		case 5:
			require.NotNil(t, res.Bonus, "approval %d", i)
			assert.Equal(t, "silver", res.Bonus.Tier)
			assert.Equal(t, 100.0, res.Bonus.Amount)
		case 10:
			require.NotNil(t, res.Bonus, "approval %d", i)
			assert.Equal(t, "gold", res.Bonus.Tier)
			assert.Equal(t, 250.0, res.Bonus.Amount)
		default:
			assert.Nil(t, res.Bonus, "approval %d", i)
		}
	}

	bonuses := f.earnings(t, agentID, models.EarningTypeBonus)
	require.Len(t, bonuses, 2)
	total := 0.0
	for _, b := range bonuses {
		assert.Empty(t, b.LeadID)
		assert.Equal(t, models.EarningStatusUnpaid, b.Status)
		total += b.Amount
	}
	assert.Equal(t, 350.0, total)
}

func TestLevelBonusNotLostWhenCountSkipsThreshold(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	f.mem.PutLevel(models.LevelTier{Name: "Silver", LeadsRequired: 5, Earning: 100})
	agentID := f.agent("kiran")

	// Five approvals this month that never went through the engine.
	earlier := f.clock.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		f.mem.PutLead(models.Lead{UserID: agentID, Status: models.LeadStatusApproved, StatusChangeAt: &earlier})
	}

	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(agentID), "50")
	require.NoError(t, err)
	assert.Equal(t, 6, res.MonthlyApprovedCount)
	require.NotNil(t, res.Bonus)
	assert.Equal(t, "silver", res.Bonus.Tier)

	res, err = f.svc.ApproveLead(ctx, adminSession, f.lead(agentID), "50")
	require.NoError(t, err)
	assert.Nil(t, res.Bonus)
	assert.Len(t, f.earnings(t, agentID, models.EarningTypeBonus), 1)
}

func TestLevelBonusIgnoresNonPositiveThresholds(t *testing.T) {
	f := newApprovalFixture(t, true)
	f.mem.PutLevel(models.LevelTier{Name: "Starter", LeadsRequired: 0, Earning: 999})
	agentID := f.agent("zero")

	res, err := f.svc.ApproveLead(context.Background(), adminSession, f.lead(agentID), "1")
	require.NoError(t, err)
	assert.Nil(t, res.Bonus)
}

func TestMonthlyCountRespectsUTCMonthBoundary(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	f.mem.PutLevel(models.LevelTier{Name: "First", LeadsRequired: 1, Earning: 10})
	agentID := f.agent("nila")

	f.clock.Set(time.Date(2024, time.January, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC))
	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(agentID), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MonthlyApprovedCount)
	require.NotNil(t, res.Bonus)

	f.clock.Set(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	res, err = f.svc.ApproveLead(ctx, adminSession, f.lead(agentID), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MonthlyApprovedCount)
	require.NotNil(t, res.Bonus, "a new month starts a new ledger period")
	assert.Equal(t, 2, res.LifetimeApprovedCount)

	assert.Len(t, f.earnings(t, agentID, models.EarningTypeBonus), 2)
}

func TestReferralBonusPaidOnFirstApprovalOnly(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	referrer := f.agent("referrer")
	referred := f.agent("referred")
	other := f.agent("other")
	otherReferrer := f.agent("other-referrer")

	refID := f.mem.PutReferral(models.Referral{ReferringUserID: referrer, ReferredUserID: referred, Status: models.ReferralStatusPending})
	otherRefID := f.mem.PutReferral(models.Referral{ReferringUserID: otherReferrer, ReferredUserID: other, Status: models.ReferralStatusPending})

	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	require.NotNil(t, res.Referral)
	assert.Equal(t, refID, res.Referral.ReferralID)
	assert.Equal(t, referrer, res.Referral.ReferringUserID)
	assert.Equal(t, 500.0, res.Referral.Amount)

	res, err = f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	assert.Nil(t, res.Referral)

	payouts := f.earnings(t, referrer, models.EarningTypeReferral)
	require.Len(t, payouts, 1)
	assert.Equal(t, 500.0, payouts[0].Amount)
	assert.Equal(t, models.EarningStatusUnpaid, payouts[0].Status)
	assert.Empty(t, payouts[0].LeadID)

	ref, err := f.store.Referrals.FindByReferred(ctx, referred)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusApproved, ref.Status)

	untouched, err := f.store.Referrals.FindByReferred(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, otherRefID, untouched.ID)
	assert.Equal(t, models.ReferralStatusPending, untouched.Status)
	assert.Empty(t, f.earnings(t, otherReferrer, models.EarningTypeReferral))
}

func TestReferralWithoutReferrerFlipsWithoutPayout(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	referred := f.agent("solo")
	f.mem.PutReferral(models.Referral{ReferredUserID: referred, Status: models.ReferralStatusPending})

	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	require.NotNil(t, res.Referral)
	assert.Empty(t, res.Referral.EarningID)
	assert.Zero(t, res.Referral.Amount)

	ref, err := f.store.Referrals.FindByReferred(ctx, referred)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusApproved, ref.Status)
}

func TestApproveLeadWithoutReferralIsNotAnError(t *testing.T) {
	f := newApprovalFixture(t, true)
	res, err := f.svc.ApproveLead(context.Background(), adminSession, f.lead(f.agent("plain")), "100")
	require.NoError(t, err)
	assert.Nil(t, res.Referral)
}

func TestConcurrentApprovalsAwardBonusOnce(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	f.mem.PutLevel(models.LevelTier{Name: "Silver", LeadsRequired: 5, Earning: 100})
	agentID := f.agent("busy")

	leads := make([]string, 8)
	for i := range leads {
		leads[i] = f.lead(agentID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(leads))
	for _, id := range leads {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.ApproveLead(ctx, adminSession, id, "10")
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, f.earnings(t, agentID, models.EarningTypeSale), 8)
	assert.Len(t, f.earnings(t, agentID, models.EarningTypeBonus), 1)
}

type failingLevels struct{ repositories.LevelRepository }

func (failingLevels) List(context.Context) ([]models.LevelTier, error) {
	return nil, fmt.Errorf("levelEarning unavailable")
}

func TestFailedStepKeepsEarlierSteps(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	f.store.Levels = failingLevels{}
	svc := f.build(true)
	agentID := f.agent("partial")
	leadID := f.lead(agentID)

	_, err := svc.ApproveLead(ctx, adminSession, leadID, "75")
	require.Error(t, err)

	var ae *ApprovalError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, StepLevelBonus, ae.Step)

	lead, err := f.store.Leads.FindByID(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusApproved, lead.Status)
	assert.Len(t, f.earnings(t, agentID, models.EarningTypeSale), 1)
	assert.Empty(t, f.notifier.approved)
}

func TestReferralPaidOnRetryAfterFailedFirstApproval(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	referrer := f.agent("sponsor")
	referred := f.agent("newcomer")
	f.mem.PutReferral(models.Referral{ReferringUserID: referrer, ReferredUserID: referred, Status: models.ReferralStatusPending})

	levels := f.store.Levels
	f.store.Levels = failingLevels{}
	_, err := f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	var ae *ApprovalError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, StepLevelBonus, ae.Step)
	assert.Empty(t, f.earnings(t, referrer, models.EarningTypeReferral))

	f.store.Levels = levels
	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, res.LifetimeApprovedCount)
	require.NotNil(t, res.Referral)
	assert.Equal(t, referrer, res.Referral.ReferringUserID)

	res, err = f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	assert.Nil(t, res.Referral)
	assert.Len(t, f.earnings(t, referrer, models.EarningTypeReferral), 1)
}

func TestReferralPaidAfterAgentLockTimeout(t *testing.T) {
	f := newApprovalFixture(t, true)
	ctx := context.Background()
	referrer := f.agent("upline")
	referred := f.agent("downline")
	f.mem.PutReferral(models.Referral{ReferringUserID: referrer, ReferredUserID: referred, Status: models.ReferralStatusPending})

	unlock, err := f.svc.locker.Lock(ctx, referred)
	require.NoError(t, err)
	_, err = f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	assert.ErrorIs(t, err, ErrLockTimeout)
	unlock()

	ref, err := f.store.Referrals.FindByReferred(ctx, referred)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPending, ref.Status)

	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	require.NotNil(t, res.Referral)
	assert.Len(t, f.earnings(t, referrer, models.EarningTypeReferral), 1)
}

func TestApprovalFinishesWhenRequestIsCancelled(t *testing.T) {
	f := newApprovalFixture(t, true)
	f.mem.PutLevel(models.LevelTier{Name: "First", LeadsRequired: 1, Earning: 40})
	referrer := f.agent("mentor")
	referred := f.agent("mentee")
	f.mem.PutReferral(models.Referral{ReferringUserID: referrer, ReferredUserID: referred, Status: models.ReferralStatusPending})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.ApproveLead(ctx, adminSession, f.lead(referred), "100")
	require.NoError(t, err)
	require.NotNil(t, res.Bonus)
	require.NotNil(t, res.Referral)
	assert.Len(t, f.earnings(t, referrer, models.EarningTypeReferral), 1)
}
