package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryData struct {
	leads       map[string]models.Lead
	users       map[string]models.User
	details     map[string]models.UserDetails
	earnings    map[string]models.EarningRecord
	paid        map[string]models.PaidHistory
	withdrawals map[string]models.WithdrawRequest
	referrals   map[string]models.Referral
	levels      map[string]models.LevelTier
	bonuses     map[string]models.BonusAward
}

func newMemoryData() *memoryData {
	return &memoryData{
		leads:       map[string]models.Lead{},
		users:       map[string]models.User{},
		details:     map[string]models.UserDetails{},
		earnings:    map[string]models.EarningRecord{},
		paid:        map[string]models.PaidHistory{},
		withdrawals: map[string]models.WithdrawRequest{},
		referrals:   map[string]models.Referral{},
		levels:      map[string]models.LevelTier{},
		bonuses:     map[string]models.BonusAward{},
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.leads {
		c.leads[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.details {
		c.details[k] = v
	}
	for k, v := range d.earnings {
		c.earnings[k] = v
	}
	for k, v := range d.paid {
		c.paid[k] = v
	}
	for k, v := range d.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range d.referrals {
		c.referrals[k] = v
	}
	for k, v := range d.levels {
		c.levels[k] = v
	}
	for k, v := range d.bonuses {
		c.bonuses[k] = v
	}
	return c
}

// MemoryStore keeps every collection in process. It backs STORE_DRIVER=memory and the tests.
// Transactions are serialised and roll back to a snapshot when fn fails.
type MemoryStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *memoryData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

// Store exposes the memory collections through the repository interfaces.
func (s *MemoryStore) Store() *Store {
	return &Store{
		Leads:       &memoryLeads{s},
		Users:       &memoryUsers{s},
		Earnings:    &memoryEarnings{s},
		PaidHistory: &memoryPaidHistory{s},
		Withdrawals: &memoryWithdrawals{s},
		Referrals:   &memoryReferrals{s},
		Levels:      &memoryLevels{s},
		Bonuses:     &memoryBonuses{s},
		Tx:          s,
	}
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// Seeding helpers used by tests and local runs.

func (s *MemoryStore) PutLead(l models.Lead) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	s.data.leads[l.ID] = l
	return l.ID
}

func (s *MemoryStore) PutUser(u models.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	s.data.users[u.ID] = u
	return u.ID
}

func (s *MemoryStore) PutDetails(d models.UserDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.details[d.UserID] = d
}

func (s *MemoryStore) PutEarning(e models.EarningRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	s.data.earnings[e.ID] = e
	return e.ID
}

func (s *MemoryStore) PutWithdrawRequest(w models.WithdrawRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = newID()
	}
	s.data.withdrawals[w.ID] = w
	return w.ID
}

func (s *MemoryStore) PutReferral(r models.Referral) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = newID()
	}
	s.data.referrals[r.ID] = r
	return r.ID
}

func (s *MemoryStore) PutLevel(t models.LevelTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.levels[t.Name] = t
}

func bonusKey(userID, tier, month string) string {
	return userID + "|" + tier + "|" + month
}

type memoryLeads struct{ s *MemoryStore }

func (r *memoryLeads) FindByID(_ context.Context, id string) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (r *memoryLeads) all() []models.Lead {
	r.s.mu.Lock()
	leads := make([]models.Lead, 0, len(r.s.data.leads))
	for _, l := range r.s.data.leads {
		leads = append(leads, l)
	}
	r.s.mu.Unlock()

	sort.Slice(leads, func(i, j int) bool {
		if !leads[i].SubmissionDate.Equal(leads[j].SubmissionDate) {
			return leads[i].SubmissionDate.After(leads[j].SubmissionDate)
		}
		return leads[i].ID > leads[j].ID
	})
	return leads
}

func (r *memoryLeads) Search(_ context.Context, f models.LeadFilter, now time.Time, page Page) ([]models.Lead, int, error) {
	matched := utils.FilterLeads(r.all(), f, now)
	return window(matched, page), len(matched), nil
}

func (r *memoryLeads) MarkApproved(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.leads[id]
	if !ok {
		return ErrNotFound
	}
	if l.Status == models.LeadStatusApproved {
		return ErrConflict
	}
	l.Status = models.LeadStatusApproved
	l.StatusChangeAt = &at
	r.s.data.leads[id] = l
	return nil
}

func (r *memoryLeads) UpdateStatus(_ context.Context, id string, status models.LeadStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.leads[id]
	if !ok {
		return ErrNotFound
	}
	if l.Status == models.LeadStatusApproved {
		return ErrConflict
	}
	l.Status = status
	l.StatusChangeAt = &at
	r.s.data.leads[id] = l
	return nil
}

func (r *memoryLeads) Update(_ context.Context, id string, upd models.LeadUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.leads[id]
	if !ok {
		return ErrNotFound
	}
	if upd.BankID != nil {
		l.BankID = *upd.BankID
	}
	if upd.ServiceID != nil {
		l.ServiceID = *upd.ServiceID
	}
	if upd.CustomerDetails != nil {
		l.CustomerDetails = *upd.CustomerDetails
	}
	if upd.EarningAmount != nil {
		l.EarningAmount = *upd.EarningAmount
	}
	r.s.data.leads[id] = l
	return nil
}

func (r *memoryLeads) CountApprovedBetween(_ context.Context, userID string, from, to time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, l := range r.s.data.leads {
		if l.UserID != userID || l.Status != models.LeadStatusApproved || l.StatusChangeAt == nil {
			continue
		}
		at := *l.StatusChangeAt
		if !at.Before(from) && !at.After(to) {
			n++
		}
	}
	return n, nil
}

func (r *memoryLeads) CountByStatus(_ context.Context) (map[models.LeadStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[models.LeadStatus]int{}
	for _, l := range r.s.data.leads {
		counts[l.Status]++
	}
	return counts, nil
}

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if _, ok := r.s.data.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range r.s.data.users {
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *memoryUsers) agents() []models.User {
	r.s.mu.Lock()
	users := []models.User{}
	for _, u := range r.s.data.users {
		if u.Role != models.RoleAdmin {
			users = append(users, u)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users
}

func (r *memoryUsers) SearchAgents(_ context.Context, q string, page Page) ([]models.User, int, error) {
	matched := utils.FilterAgents(r.agents(), q)
	return window(matched, page), len(matched), nil
}

func (r *memoryUsers) CountAgents(_ context.Context) (int, error) {
	return len(r.agents()), nil
}

func (r *memoryUsers) UpdateProfile(_ context.Context, id string, upd models.UserUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return ErrNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Mobile != nil {
		u.Mobile = *upd.Mobile
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	u.UpdatedAt = time.Now().UTC()
	r.s.data.users[id] = u

	if upd.Bank != nil || upd.Profile != nil {
		r.saveDetailsLocked(id, upd.Bank, upd.Profile)
	}
	return nil
}

func (r *memoryUsers) IncrementApprovedLeads(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	u.ApprovedLeads++
	r.s.data.users[id] = u
	return u.ApprovedLeads, nil
}

func (r *memoryUsers) IncrementEarnings(_ context.Context, id string, amount float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Earnings += amount
	r.s.data.users[id] = u
	return nil
}

func (r *memoryUsers) GetDetails(_ context.Context, id string) (*models.UserDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.details[id]
	if !ok {
		return &models.UserDetails{UserID: id}, nil
	}
	return &d, nil
}

func (r *memoryUsers) SaveDetails(_ context.Context, id string, bank *models.BankDetails, profile *models.ProfileDetails) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveDetailsLocked(id, bank, profile)
	return nil
}

func (r *memoryUsers) saveDetailsLocked(id string, bank *models.BankDetails, profile *models.ProfileDetails) {
	d := r.s.data.details[id]
	d.UserID = id
	if bank != nil {
		b := *bank
		d.Bank = &b
	}
	if profile != nil {
		p := *profile
		d.Profile = &p
	}
	r.s.data.details[id] = d
}

type memoryEarnings struct{ s *MemoryStore }

func (r *memoryEarnings) Insert(_ context.Context, rec *models.EarningRecord) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.Status == "" {
		rec.Status = models.EarningStatusUnpaid
	}
	if _, ok := r.s.data.earnings[rec.ID]; ok {
		return "", ErrDuplicate
	}
	r.s.data.earnings[rec.ID] = *rec
	return rec.ID, nil
}

func (r *memoryEarnings) FindByID(_ context.Context, id string) (*models.EarningRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.earnings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (r *memoryEarnings) ListByUser(_ context.Context, userID string, status models.EarningStatus) ([]models.EarningRecord, error) {
	r.s.mu.Lock()
	records := []models.EarningRecord{}
	for _, e := range r.s.data.earnings {
		if e.UserID == userID && (status == "" || e.Status == status) {
			records = append(records, e)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (r *memoryEarnings) MarkPaid(_ context.Context, userID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.earnings[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	if e.Status == models.EarningStatusPaid {
		return ErrConflict
	}
	e.Status = models.EarningStatusPaid
	e.PaidAt = &at
	r.s.data.earnings[id] = e
	return nil
}

type memoryPaidHistory struct{ s *MemoryStore }

func (r *memoryPaidHistory) Insert(_ context.Context, rec *models.PaidHistory) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = newID()
	}
	r.s.data.paid[rec.ID] = *rec
	return rec.ID, nil
}

func (r *memoryPaidHistory) ListByUser(_ context.Context, userID string) ([]models.PaidHistory, error) {
	r.s.mu.Lock()
	history := []models.PaidHistory{}
	for _, p := range r.s.data.paid {
		if p.UserID == userID {
			history = append(history, p)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(history, func(i, j int) bool { return history[i].Date.After(history[j].Date) })
	return history, nil
}

type memoryWithdrawals struct{ s *MemoryStore }

func (r *memoryWithdrawals) FindByID(_ context.Context, id string) (*models.WithdrawRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (r *memoryWithdrawals) List(_ context.Context) ([]models.WithdrawRequest, error) {
	r.s.mu.Lock()
	requests := make([]models.WithdrawRequest, 0, len(r.s.data.withdrawals))
	for _, w := range r.s.data.withdrawals {
		requests = append(requests, w)
	}
	r.s.mu.Unlock()

	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].Date.Equal(requests[j].Date) {
			return requests[i].Date.After(requests[j].Date)
		}
		return requests[i].ID > requests[j].ID
	})
	return requests, nil
}

func (r *memoryWithdrawals) Search(ctx context.Context, status, q string, page Page) ([]models.WithdrawRequestView, int, error) {
	requests, _ := r.List(ctx)
	r.s.mu.Lock()
	views := make([]models.WithdrawRequestView, 0, len(requests))
	for _, w := range requests {
		view := models.WithdrawRequestView{WithdrawRequest: w}
		if u, ok := r.s.data.users[w.UserID]; ok {
			view.UserName = u.FullName
			view.UserEmail = u.Email
			view.UserMobile = u.Mobile
		}
		views = append(views, view)
	}
	r.s.mu.Unlock()

	matched := utils.FilterWithdrawals(views, status, q)
	return window(matched, page), len(matched), nil
}

func (r *memoryWithdrawals) MarkProcessed(_ context.Context, id string, status models.WithdrawStatus, adminID, note string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok {
		return ErrNotFound
	}
	if w.Status != models.WithdrawStatusPending {
		return ErrConflict
	}
	w.Status = status
	w.ProcessedAt = &at
	w.AdminID = adminID
	w.AdminNote = note
	r.s.data.withdrawals[id] = w
	return nil
}

func (r *memoryWithdrawals) DeletePending(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok {
		return ErrNotFound
	}
	if w.Status != models.WithdrawStatusPending {
		return ErrConflict
	}
	delete(r.s.data.withdrawals, id)
	return nil
}

type memoryReferrals struct{ s *MemoryStore }

func (r *memoryReferrals) FindByReferred(_ context.Context, referredUserID string) (*models.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ref := range r.s.data.referrals {
		if ref.ReferredUserID == referredUserID {
			return &ref, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryReferrals) ListByReferrer(_ context.Context, referringUserID string) ([]models.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	referrals := []models.Referral{}
	for _, ref := range r.s.data.referrals {
		if ref.ReferringUserID == referringUserID {
			referrals = append(referrals, ref)
		}
	}
	sort.Slice(referrals, func(i, j int) bool { return referrals[i].ID > referrals[j].ID })
	return referrals, nil
}

func (r *memoryReferrals) MarkApproved(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref, ok := r.s.data.referrals[id]
	if !ok {
		return ErrNotFound
	}
	if ref.Status == models.ReferralStatusApproved {
		return ErrConflict
	}
	ref.Status = models.ReferralStatusApproved
	ref.ApprovedAt = &at
	r.s.data.referrals[id] = ref
	return nil
}

type memoryLevels struct{ s *MemoryStore }

func (r *memoryLevels) List(_ context.Context) ([]models.LevelTier, error) {
	r.s.mu.Lock()
	tiers := make([]models.LevelTier, 0, len(r.s.data.levels))
	for _, t := range r.s.data.levels {
		tiers = append(tiers, t)
	}
	r.s.mu.Unlock()

	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].LeadsRequired != tiers[j].LeadsRequired {
			return tiers[i].LeadsRequired < tiers[j].LeadsRequired
		}
		return tiers[i].Name < tiers[j].Name
	})
	return tiers, nil
}

func (r *memoryLevels) Upsert(_ context.Context, tier models.LevelTier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.levels[tier.Name] = tier
	return nil
}

func (r *memoryLevels) Delete(_ context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.levels[name]; !ok {
		return ErrNotFound
	}
	delete(r.s.data.levels, name)
	return nil
}

type memoryBonuses struct{ s *MemoryStore }

func (r *memoryBonuses) Insert(_ context.Context, award *models.BonusAward) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := bonusKey(award.UserID, award.Tier, award.Month)
	if _, ok := r.s.data.bonuses[key]; ok {
		return ErrDuplicate
	}
	if award.ID == "" {
		award.ID = newID()
	}
	r.s.data.bonuses[key] = *award
	return nil
}

func (r *memoryBonuses) Exists(_ context.Context, userID, tier, month string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.data.bonuses[bonusKey(userID, tier, month)]
	return ok, nil
}
