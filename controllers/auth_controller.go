package controllers

import (
	"net/http"

	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/middleware"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthController handles operator login and logout.
type AuthController struct {
	auth      *services.AuthService
	cfg       config.AuthConfig
	blacklist *middleware.TokenBlacklist
	clock     services.Clock
	logger    *zap.Logger
}

func NewAuthController(auth *services.AuthService, cfg config.AuthConfig, blacklist *middleware.TokenBlacklist, clock services.Clock, logger *zap.Logger) *AuthController {
	if clock == nil {
		clock = services.SystemClock{}
	}
	return &AuthController{auth: auth, cfg: cfg, blacklist: blacklist, clock: clock, logger: logger}
}

// Login authenticates an operator by email and password.
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	user, sess, err := ac.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		ac.logger.Warn("operator login rejected", zap.String("email", req.Email), zap.Error(err))
		return respondError(c, ac.logger, err)
	}
	return ac.issue(c, user, sess)
}

// FirebaseLogin exchanges a Firebase ID token for an admin token.
func (ac *AuthController) FirebaseLogin(c echo.Context) error {
	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	user, sess, err := ac.auth.LoginWithFirebase(c.Request().Context(), req.IDToken)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return ac.issue(c, user, sess)
}

func (ac *AuthController) issue(c echo.Context, user *models.User, sess *models.Session) error {
	token, expires, err := middleware.GenerateToken(ac.cfg, sess, ac.clock.Now())
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	ac.logger.Info("operator logged in", zap.String("operator_id", sess.OperatorID))
	return ok(c, "Login successful", models.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Operator: models.Operator{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	})
}

// Logout invalidates the caller's token until it expires.
func (ac *AuthController) Logout(c echo.Context) error {
	token, expiry, found := middleware.RawToken(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Missing token")
	}
	if expiry.IsZero() {
		expiry = ac.clock.Now().Add(ac.cfg.JWTTTL)
	}
	ac.blacklist.Add(token, expiry)
	return ok(c, "Logged out successfully", nil)
}
