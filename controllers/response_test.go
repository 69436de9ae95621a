package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrLeadNotFound, http.StatusNotFound},
		{&services.ApprovalError{Step: services.StepValidate, Err: services.ErrAgentNotFound}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrDocumentNotFound), http.StatusNotFound},
		{&services.ApprovalError{Step: services.StepValidate, Err: services.ErrMalformedAmount}, http.StatusBadRequest},
		{utils.ErrInvalidPath, http.StatusBadRequest},
		{services.ErrInvalidTier, http.StatusBadRequest},
		{services.ErrLeadHasNoAgent, http.StatusUnprocessableEntity},
		{&services.ApprovalError{Step: services.StepMarkApproved, Err: services.ErrLeadAlreadyApproved}, http.StatusConflict},
		{services.ErrWithdrawRequestProcessed, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{&services.ApprovalError{Step: services.StepAgentLock, Err: services.ErrLockTimeout}, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("mongo went away"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	e := echo.New()

	run := func(err error) models.Response {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
		require.NoError(t, respondError(c, zap.NewNop(), err))
		var resp models.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, rec.Code, resp.Status)
		return resp
	}

	resp := run(&services.ApprovalError{Step: services.StepLevelBonus, Err: errors.New("connection reset by peer")})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Lead approval failed at step level_bonus", resp.Message)
	assert.NotContains(t, resp.Message, "connection reset")

	resp = run(&services.ApprovalError{Step: services.StepAgentLock, Err: services.ErrLockTimeout})
	assert.Equal(t, "Service temporarily unavailable at step agent_lock", resp.Message)

	resp = run(services.ErrLeadNotFound)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, services.ErrLeadNotFound.Error(), resp.Message)
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDate("2024-02-29", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDate("2024-02-29", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC), *got)

	got, err = parseDate("2024-03-01T05:30:00+05:30", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	_, err = parseDate("01/03/2024", false)
	assert.Error(t, err)
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	bind := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c := e.NewContext(req, httptest.NewRecorder())
		var login models.LoginRequest
		return bindAndValidate(c, &login)
	}

	assert.NoError(t, bind(`{"email":"ops@leadbridge.app","password":"secret1"}`))
	assert.EqualError(t, bind(`{"email":`), "Invalid request body")
	err := bind(`{"email":"ops@leadbridge.app","password":"123"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Validation failed")
}

func TestApprovalTouchedStore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", &services.ApprovalError{Step: services.StepValidate, Err: services.ErrLeadNotFound}, false},
		{"mark approved conflict", &services.ApprovalError{Step: services.StepMarkApproved, Err: services.ErrLeadAlreadyApproved}, true},
		{"lock timeout", fmt.Errorf("approve: %w", &services.ApprovalError{Step: services.StepAgentLock, Err: services.ErrLockTimeout}), true},
		{"level bonus", &services.ApprovalError{Step: services.StepLevelBonus, Err: errors.New("levels down")}, true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, approvalTouchedStore(tt.err))
		})
	}
}
