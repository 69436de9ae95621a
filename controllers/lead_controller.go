package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type LeadController struct {
	leads     *services.LeadService
	approval  *services.ApprovalService
	dashboard *services.DashboardService
	logger    *zap.Logger
}

func NewLeadController(leads *services.LeadService, approval *services.ApprovalService, dashboard *services.DashboardService, logger *zap.Logger) *LeadController {
	return &LeadController{leads: leads, approval: approval, dashboard: dashboard, logger: logger}
}

var errBadDate = errors.New("invalid date, expected YYYY-MM-DD or RFC3339")

func leadFilter(c echo.Context) (models.LeadFilter, error) {
	f := models.LeadFilter{
		Status: models.LeadStatus(c.QueryParam("status")),
		Query:  c.QueryParam("q"),
	}
	from, err := parseDate(c.QueryParam("from"), false)
	if err != nil {
		return f, errBadDate
	}
	to, err := parseDate(c.QueryParam("to"), true)
	if err != nil {
		return f, errBadDate
	}
	f.From, f.To = from, to
	return f, nil
}

// GetLeads lists leads matching the filters, one page at a time.
func (lc *LeadController) GetLeads(c echo.Context) error {
	f, err := leadFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	leads, total, err := lc.leads.Search(c.Request().Context(), f, page, limit)
	if err != nil {
		return respondError(c, lc.logger, err)
	}
	return ok(c, "Leads retrieved successfully", utils.NewPage(leads, total, page, limit))
}

// ExportLeads streams every lead matching the filters as CSV.
func (lc *LeadController) ExportLeads(c echo.Context) error {
	f, err := leadFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	views, _, err := lc.leads.Search(c.Request().Context(), f, 1, 0)
	if err != nil {
		return respondError(c, lc.logger, err)
	}

	leads := make([]models.Lead, 0, len(views))
	for _, v := range views {
		leads = append(leads, v.Lead)
	}
	var buf bytes.Buffer
	if err := utils.WriteLeadsCSV(&buf, leads); err != nil {
		return respondError(c, lc.logger, err)
	}
	return attachment(c, "text/csv; charset=utf-8", "leads", "csv", buf.Bytes())
}

func (lc *LeadController) GetLead(c echo.Context) error {
	lead, err := lc.leads.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, lc.logger, err)
	}
	return ok(c, "Lead retrieved successfully", lead)
}

func (lc *LeadController) UpdateLead(c echo.Context) error {
	var req models.LeadUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	lead, err := lc.leads.Update(c.Request().Context(), session(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, lc.logger, err)
	}
	return ok(c, "Lead updated successfully", lead)
}

func (lc *LeadController) UpdateLeadStatus(c echo.Context) error {
	var req models.LeadStatusUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	lead, err := lc.leads.UpdateStatus(ctx, session(c), c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, lc.logger, err)
	}
	lc.dashboard.Invalidate(ctx)
	return ok(c, "Lead status updated successfully", lead)
}

// approvalTouchedStore reports whether a failed approval got past validation, after which
// the lead may already be approved.
func approvalTouchedStore(err error) bool {
	var ae *services.ApprovalError
	return errors.As(err, &ae) && ae.Step != services.StepValidate
}

// ApproveLead runs the approval engine for one lead.
func (lc *LeadController) ApproveLead(c echo.Context) error {
	var req models.ApproveLeadRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx := c.Request().Context()
	result, err := lc.approval.ApproveLead(ctx, session(c), c.Param("id"), string(req.ApproveAmount))
	if err != nil {
		if approvalTouchedStore(err) {
			lc.dashboard.Invalidate(context.WithoutCancel(ctx))
		}
		return respondError(c, lc.logger, err)
	}
	lc.dashboard.Invalidate(ctx)
	return ok(c, "Lead approved successfully", result)
}
