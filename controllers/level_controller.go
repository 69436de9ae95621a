package controllers

import (
	"net/http"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type LevelController struct {
	levels *services.LevelService
	logger *zap.Logger
}

func NewLevelController(levels *services.LevelService, logger *zap.Logger) *LevelController {
	return &LevelController{levels: levels, logger: logger}
}

func (lc *LevelController) GetLevels(c echo.Context) error {
	tiers, err := lc.levels.List(c.Request().Context())
	if err != nil {
		return respondError(c, lc.logger, err)
	}
	return ok(c, "Levels retrieved successfully", tiers)
}

// UpsertLevel creates or replaces the tier named in the path.
func (lc *LevelController) UpsertLevel(c echo.Context) error {
	var req models.LevelTier
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	req.Name = c.Param("name")
	tier, err := lc.levels.Upsert(c.Request().Context(), session(c), req)
	if err != nil {
		return respondError(c, lc.logger, err)
	}
	return ok(c, "Level saved successfully", tier)
}

func (lc *LevelController) DeleteLevel(c echo.Context) error {
	if err := lc.levels.Delete(c.Request().Context(), session(c), c.Param("name")); err != nil {
		return respondError(c, lc.logger, err)
	}
	return ok(c, "Level deleted successfully", nil)
}
