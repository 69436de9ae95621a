package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HSouheill/leadbridge_admin/middleware"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func ok(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, models.Response{Status: http.StatusOK, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, models.Response{Status: status, Message: message})
}

// bindAndValidate decodes the body into req and runs its validate tags. The returned
// error is meant for the client.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.New("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("Validation failed: %v", err)
	}
	return nil
}

// statusFor maps service and store errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrLeadNotFound),
		errors.Is(err, services.ErrAgentNotFound),
		errors.Is(err, services.ErrWithdrawRequestNotFound),
		errors.Is(err, services.ErrLevelNotFound),
		errors.Is(err, services.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrMalformedAmount),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidTier),
		errors.Is(err, utils.ErrInvalidPath),
		errors.Is(err, utils.ErrUnsupportedFile),
		errors.Is(err, utils.ErrFileTooLarge),
		errors.Is(err, utils.ErrInvalidEmail),
		errors.Is(err, utils.ErrInvalidMobile):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrLeadHasNoAgent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrLeadAlreadyApproved),
		errors.Is(err, services.ErrWithdrawRequestProcessed):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrLockTimeout),
		errors.Is(err, services.ErrFirebaseDisabled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for err. Internal errors are logged and their text
// kept out of the response, except for the failing approval step.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		return fail(c, status, err.Error())
	}

	logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	message := "Internal server error"
	var ae *services.ApprovalError
	if errors.As(err, &ae) {
		message = "Lead approval failed at step " + ae.Step
	}
	if status == http.StatusServiceUnavailable {
		message = "Service temporarily unavailable"
		if ae != nil {
			message += " at step " + ae.Step
		}
	}
	return fail(c, status, message)
}

func session(c echo.Context) *models.Session {
	return middleware.SessionFrom(c)
}

// parseDate accepts YYYY-MM-DD or RFC3339. endOfDay moves a bare date to its last millisecond.
func parseDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

// attachment sends an export with a dated filename.
func attachment(c echo.Context, contentType, prefix, ext string, body []byte) error {
	name := prefix + "_" + time.Now().UTC().Format("20060102_150405") + "." + ext
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, contentType, body)
}
