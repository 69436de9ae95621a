package controllers

import (
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type DashboardController struct {
	dashboard *services.DashboardService
	logger    *zap.Logger
}

func NewDashboardController(dashboard *services.DashboardService, logger *zap.Logger) *DashboardController {
	return &DashboardController{dashboard: dashboard, logger: logger}
}

// GetCounts returns the overview tiles.
func (dc *DashboardController) GetCounts(c echo.Context) error {
	counts, err := dc.dashboard.Counts(c.Request().Context())
	if err != nil {
		return respondError(c, dc.logger, err)
	}
	return ok(c, "Dashboard retrieved successfully", counts)
}
