package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/controllers"
	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/middleware"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testAuth = config.AuthConfig{JWTSecret: "routes-test-secret", JWTTTL: time.Hour}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	e   *echo.Echo
	mem *repositories.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	mem := repositories.NewMemoryStore()
	store := mem.Store()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry, logger)
	hub := websocket.NewHub(m, logger)
	clock := services.SystemClock{}
	notifier := services.NewNotificationService(hub, nil, nil, logger)

	auth := services.NewAuthService(store, nil, clock, logger)
	require.NoError(t, auth.EnsureBootstrapAdmin(context.Background(), config.BootstrapConfig{
		AdminEmail:    "ops@leadbridge.app",
		AdminPassword: "ops-password",
	}))

	dashboard := services.NewDashboardService(store, nil, time.Minute, logger)
	approval := services.NewApprovalService(store, services.NewLocalAgentLocker(), notifier, m, clock,
		config.ApprovalConfig{ReferralBonus: 500, StrictAmount: true, AgentLockTTL: time.Second}, logger)
	blacklist := middleware.NewTokenBlacklist()

	e := echo.New()
	e.Validator = controllers.NewValidator()
	SetupRoutes(e, Controllers{
		Auth:          controllers.NewAuthController(auth, testAuth, blacklist, clock, logger),
		Leads:         controllers.NewLeadController(services.NewLeadService(store, clock, logger), approval, dashboard, logger),
		Agents:        controllers.NewAgentController(services.NewAgentService(store, t.TempDir(), "https://leadbridge.app/r/", logger), logger),
		Levels:        controllers.NewLevelController(services.NewLevelService(store, logger), logger),
		Withdrawals:   controllers.NewWithdrawalController(services.NewWithdrawalService(store, notifier, m, clock, logger), dashboard, logger),
		Dashboard:     controllers.NewDashboardController(dashboard, logger),
		Notifications: controllers.NewNotificationController(hub, logger),
	}, testAuth, blacklist, registry, logger)

	return &testServer{e: e, mem: mem}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/admin/login", "", `{"email":"ops@leadbridge.app","password":"ops-password"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleAdmin, resp.Operator.Role)
	return resp.Token
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/leads", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/login", "", `{"email":"ops@leadbridge.app","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/login", "", `{"email":"not-an-email","password":"ops-password"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/login/firebase", "", `{"idToken":"abc"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAgentTokenIsForbidden(t *testing.T) {
	s := newTestServer(t)
	token, _, err := middleware.GenerateToken(testAuth, &models.Session{OperatorID: "agent-1", Role: models.RoleUser}, time.Now())
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/admin/leads", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLeadListingAndApproval(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	agentID := s.mem.PutUser(models.User{FullName: "Ravi Patel", Mobile: "9000000001", Role: models.RoleUser})
	now := time.Now().UTC()
	var leadID string
	for i := 0; i < 3; i++ {
		leadID = s.mem.PutLead(models.Lead{
			UserID:          agentID,
			Status:          models.LeadStatusPending,
			SubmissionDate:  now.Add(-time.Duration(i) * time.Hour),
			CustomerDetails: models.CustomerDetails{FullName: "Customer", Mobile: "98765"},
		})
	}

	rec := s.do(t, http.MethodGet, "/api/admin/leads?limit=2&page=1", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page models.PaginatedData
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	rec = s.do(t, http.MethodGet, "/api/admin/leads?from=yesterday", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/leads/"+leadID+"/approve", token, `{"approveAmount":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/leads/"+leadID+"/approve", token, `{"approveAmount":1500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.ApprovalResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 1500.0, result.Amount)
	assert.Equal(t, agentID, result.AgentID)
	assert.Equal(t, 1, result.MonthlyApprovedCount)

	rec = s.do(t, http.MethodPost, "/api/admin/leads/"+leadID+"/approve", token, `{"approveAmount":"1500"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/leads/missing/approve", token, `{"approveAmount":"10"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	orphan := s.mem.PutLead(models.Lead{Status: models.LeadStatusPending, SubmissionDate: now})
	rec = s.do(t, http.MethodPost, "/api/admin/leads/"+orphan+"/approve", token, `{"approveAmount":"10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLeadExport(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.mem.PutLead(models.Lead{
		UserID:          "agent",
		Status:          models.LeadStatusPending,
		SubmissionDate:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		CustomerDetails: models.CustomerDetails{FullName: `Asha "AK" Kumar`},
	})

	rec := s.do(t, http.MethodGet, "/api/admin/leads/export", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `attachment; filename="leads_`)

	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Lead ID,User ID,Customer Name"))
	assert.Contains(t, lines[1], `"Asha ""AK"" Kumar"`)
	assert.Contains(t, lines[1], `"2024-03-01T10:00:00.000Z"`)
}

func TestWithdrawalDecisions(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	agentID := s.mem.PutUser(models.User{FullName: "Meera", Role: models.RoleUser})
	e1 := s.mem.PutEarning(models.EarningRecord{UserID: agentID, Amount: 400, Status: models.EarningStatusUnpaid, Type: models.EarningTypeSale})
	reqID := s.mem.PutWithdrawRequest(models.WithdrawRequest{
		UserID: agentID, Amount: 400, Status: models.WithdrawStatusPending, Date: time.Now().UTC(), EarningIDs: []string{e1},
	})
	otherID := s.mem.PutWithdrawRequest(models.WithdrawRequest{
		UserID: agentID, Amount: 50, Status: models.WithdrawStatusPending, Date: time.Now().UTC(),
	})

	rec := s.do(t, http.MethodGet, "/api/admin/withdrawals?status=pending", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedData
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Equal(t, 2, page.Total)

	rec = s.do(t, http.MethodGet, "/api/admin/withdrawals?status=paid", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/withdrawals/"+reqID+"/approve", token, `{"adminNote":"paid via NEFT"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.WithdrawalResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, []string{e1}, result.PaidEarningIDs)

	rec = s.do(t, http.MethodPost, "/api/admin/withdrawals/"+reqID+"/reject", token, `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/withdrawals/"+otherID+"/reject", token, `{"adminNote":"duplicate"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/admin/withdrawals/"+otherID, token, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "only pending requests can be deleted")

	staleID := s.mem.PutWithdrawRequest(models.WithdrawRequest{
		UserID: agentID, Amount: 10, Status: models.WithdrawStatusPending, Date: time.Now().UTC(),
	})
	rec = s.do(t, http.MethodDelete, "/api/admin/withdrawals/"+staleID, token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/admin/withdrawals/"+staleID, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/withdrawals/export", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WithdrawRequestID")
}

func TestLevelsAndAgents(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rec := s.do(t, http.MethodPut, "/api/admin/levels/Gold", token, `{"leadsRequired":10,"earning":250}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, "/api/admin/levels/bad", token, `{"leadsRequired":0,"earning":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/levels", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tiers []models.LevelTier
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &tiers))
	require.Len(t, tiers, 1)
	assert.Equal(t, "gold", tiers[0].Name)

	rec = s.do(t, http.MethodDelete, "/api/admin/levels/gold", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/admin/levels/gold", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	agentID := s.mem.PutUser(models.User{UniqueID: "LB-QR0001", FullName: "Kiran", Role: models.RoleUser})
	rec = s.do(t, http.MethodGet, "/api/admin/agents/"+agentID+"/referral-qr?size=128", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	rec = s.do(t, http.MethodGet, "/api/admin/agents/"+agentID+"/referral-qr?size=5", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/agents/"+agentID+"/earnings?status=refunded", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/dashboard", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rec := s.do(t, http.MethodPost, "/api/admin/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/dashboard", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
