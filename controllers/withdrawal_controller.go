package controllers

import (
	"bytes"
	"net/http"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type WithdrawalController struct {
	withdrawals *services.WithdrawalService
	dashboard   *services.DashboardService
	logger      *zap.Logger
}

func NewWithdrawalController(withdrawals *services.WithdrawalService, dashboard *services.DashboardService, logger *zap.Logger) *WithdrawalController {
	return &WithdrawalController{withdrawals: withdrawals, dashboard: dashboard, logger: logger}
}

// GetWithdrawals lists requests filtered by ?status and ?q.
func (wc *WithdrawalController) GetWithdrawals(c echo.Context) error {
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	views, total, err := wc.withdrawals.Search(c.Request().Context(), c.QueryParam("status"), c.QueryParam("q"), page, limit)
	if err != nil {
		return respondError(c, wc.logger, err)
	}
	return ok(c, "Withdraw requests retrieved successfully", utils.NewPage(views, total, page, limit))
}

func (wc *WithdrawalController) ExportWithdrawals(c echo.Context) error {
	views, _, err := wc.withdrawals.Search(c.Request().Context(), c.QueryParam("status"), c.QueryParam("q"), 1, 0)
	if err != nil {
		return respondError(c, wc.logger, err)
	}
	var buf bytes.Buffer
	if err := utils.WriteWithdrawalsCSV(&buf, views); err != nil {
		return respondError(c, wc.logger, err)
	}
	return attachment(c, "text/csv; charset=utf-8", "withdrawals", "csv", buf.Bytes())
}

func (wc *WithdrawalController) GetWithdrawal(c echo.Context) error {
	details, err := wc.withdrawals.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, wc.logger, err)
	}
	return ok(c, "Withdraw request retrieved successfully", details)
}

func (wc *WithdrawalController) ApproveWithdrawal(c echo.Context) error {
	var req models.WithdrawDecision
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	result, err := wc.withdrawals.Approve(ctx, session(c), c.Param("id"), req.AdminNote)
	if err != nil {
		return respondError(c, wc.logger, err)
	}
	wc.dashboard.Invalidate(ctx)
	return ok(c, "Withdraw request approved successfully", result)
}

func (wc *WithdrawalController) RejectWithdrawal(c echo.Context) error {
	var req models.WithdrawDecision
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	request, err := wc.withdrawals.Reject(ctx, session(c), c.Param("id"), req.AdminNote)
	if err != nil {
		return respondError(c, wc.logger, err)
	}
	wc.dashboard.Invalidate(ctx)
	return ok(c, "Withdraw request rejected", request)
}

func (wc *WithdrawalController) DeleteWithdrawal(c echo.Context) error {
	ctx := c.Request().Context()
	if err := wc.withdrawals.Delete(ctx, session(c), c.Param("id")); err != nil {
		return respondError(c, wc.logger, err)
	}
	wc.dashboard.Invalidate(ctx)
	return ok(c, "Withdraw request deleted successfully", nil)
}
