package routes

import (
	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/middleware"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RegisterAdminRoutes sets up all admin-related routes
func RegisterAdminRoutes(e *echo.Echo, ctrl Controllers, auth config.AuthConfig, blacklist *middleware.TokenBlacklist, logger *zap.Logger) {
	// Protected routes (require admin authentication)
	protected := e.Group("/api/admin")
	protected.Use(middleware.JWTMiddleware(auth, logger))
	protected.Use(middleware.RejectBlacklisted(blacklist))
	protected.Use(middleware.RequireRole(logger, models.RoleAdmin))

	protected.POST("/logout", ctrl.Auth.Logout)

	// Live feed
	protected.GET("/ws", ctrl.Notifications.Feed)
	protected.GET("/ws/online", ctrl.Notifications.Online)

	protected.GET("/dashboard", ctrl.Dashboard.GetCounts)

	// Lead routes
	protected.GET("/leads", ctrl.Leads.GetLeads)
	protected.GET("/leads/export", ctrl.Leads.ExportLeads)
	protected.GET("/leads/:id", ctrl.Leads.GetLead)
	protected.PUT("/leads/:id", ctrl.Leads.UpdateLead)
	protected.PUT("/leads/:id/status", ctrl.Leads.UpdateLeadStatus)
	protected.POST("/leads/:id/approve", ctrl.Leads.ApproveLead)

	// Agent routes
	protected.GET("/agents", ctrl.Agents.GetAgents)
	protected.GET("/agents/export", ctrl.Agents.ExportAgents)
	protected.GET("/agents/:id", ctrl.Agents.GetAgent)
	protected.PUT("/agents/:id", ctrl.Agents.UpdateAgent)
	protected.GET("/agents/:id/earnings", ctrl.Agents.GetEarnings)
	protected.GET("/agents/:id/paid-history", ctrl.Agents.GetPaidHistory)
	protected.GET("/agents/:id/referral-qr", ctrl.Agents.ReferralQR)
	protected.GET("/agents/:id/documents/:name/thumbnail", ctrl.Agents.DocumentThumbnail)

	// Level earning tiers
	protected.GET("/levels", ctrl.Levels.GetLevels)
	protected.PUT("/levels/:name", ctrl.Levels.UpsertLevel)
	protected.DELETE("/levels/:name", ctrl.Levels.DeleteLevel)

	// Withdraw requests
	protected.GET("/withdrawals", ctrl.Withdrawals.GetWithdrawals)
	protected.GET("/withdrawals/export", ctrl.Withdrawals.ExportWithdrawals)
	protected.GET("/withdrawals/:id", ctrl.Withdrawals.GetWithdrawal)
	protected.POST("/withdrawals/:id/approve", ctrl.Withdrawals.ApproveWithdrawal)
	protected.POST("/withdrawals/:id/reject", ctrl.Withdrawals.RejectWithdrawal)
	protected.DELETE("/withdrawals/:id", ctrl.Withdrawals.DeleteWithdrawal)
}
