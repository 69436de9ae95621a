package routes

import (
	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/controllers"
	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/middleware"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Controllers bundles every HTTP handler set of the admin API.
type Controllers struct {
	Auth          *controllers.AuthController
	Leads         *controllers.LeadController
	Agents        *controllers.AgentController
	Levels        *controllers.LevelController
	Withdrawals   *controllers.WithdrawalController
	Dashboard     *controllers.DashboardController
	Notifications *controllers.NotificationController
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, ctrl Controllers, auth config.AuthConfig, blacklist *middleware.TokenBlacklist, gatherer prometheus.Gatherer, logger *zap.Logger) {
	e.GET("/health", metrics.HealthHandler)
	e.GET("/metrics", metrics.Handler(gatherer))

	RegisterAuthRoutes(e, ctrl.Auth)
	RegisterAdminRoutes(e, ctrl, auth, blacklist, logger)
}
