package routes

import (
	"github.com/HSouheill/leadbridge_admin/controllers"
	"github.com/labstack/echo/v4"
)

// RegisterAuthRoutes sets up the public operator login routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	e.POST("/api/admin/login", authController.Login)
	e.POST("/api/admin/login/firebase", authController.FirebaseLogin)
}
