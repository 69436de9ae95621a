package controllers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AgentController struct {
	agents *services.AgentService
	logger *zap.Logger
}

func NewAgentController(agents *services.AgentService, logger *zap.Logger) *AgentController {
	return &AgentController{agents: agents, logger: logger}
}

// GetAgents lists agents, optionally searched by name, email, phone or referral code.
func (ac *AgentController) GetAgents(c echo.Context) error {
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	agents, total, err := ac.agents.Search(c.Request().Context(), c.QueryParam("q"), page, limit)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return ok(c, "Agents retrieved successfully", utils.NewPage(agents, total, page, limit))
}

func (ac *AgentController) ExportAgents(c echo.Context) error {
	agents, _, err := ac.agents.Search(c.Request().Context(), c.QueryParam("q"), 1, 0)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	var buf bytes.Buffer
	if err := utils.WriteAgentsCSV(&buf, agents); err != nil {
		return respondError(c, ac.logger, err)
	}
	return attachment(c, "text/csv; charset=utf-8", "agents", "csv", buf.Bytes())
}

func (ac *AgentController) GetAgent(c echo.Context) error {
	agent, err := ac.agents.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return ok(c, "Agent retrieved successfully", agent)
}

func (ac *AgentController) UpdateAgent(c echo.Context) error {
	var req models.UserUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	agent, err := ac.agents.Update(c.Request().Context(), session(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return ok(c, "Agent updated successfully", agent)
}

// GetEarnings returns the agent's earnings history, filtered by ?status=paid|unpaid.
func (ac *AgentController) GetEarnings(c echo.Context) error {
	status := models.EarningStatus(c.QueryParam("status"))
	records, err := ac.agents.Earnings(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	return ok(c, "Earnings retrieved successfully", utils.Paginate(records, page, limit))
}

func (ac *AgentController) GetPaidHistory(c echo.Context) error {
	history, err := ac.agents.PaidHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	return ok(c, "Paid history retrieved successfully", utils.Paginate(history, page, limit))
}

func (ac *AgentController) ReferralQR(c echo.Context) error {
	size := utils.DefaultQRSize
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			return fail(c, http.StatusBadRequest, "size must be between 64 and 1024")
		}
		size = n
	}
	png, err := ac.agents.ReferralQR(c.Request().Context(), c.Param("id"), size)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// DocumentThumbnail previews an uploaded KYC document.
func (ac *AgentController) DocumentThumbnail(c echo.Context) error {
	thumb, err := ac.agents.DocumentThumbnail(c.Request().Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Blob(http.StatusOK, "image/jpeg", thumb)
}
