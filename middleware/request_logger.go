package middleware

import (
	"time"

	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/security"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger tags every request with an id, logs it once it completes and
// records its latency.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			res.Header().Set(echo.HeaderXRequestID, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RecordHTTPRequest(req.Method, route, res.Status, elapsed)

			fields := []zap.Field{
				zap.String("request_id", id),
				zap.String("method", req.Method),
				zap.String("route", route),
				zap.Int("status", res.Status),
				zap.Duration("latency", elapsed),
				zap.String("ip", c.RealIP()),
			}
			if session := SessionFrom(c); session != nil {
				fields = append(fields, zap.String("operator_id", session.OperatorID))
			}

			switch {
			case res.Status >= 500:
				logger.Error("request failed", append(fields, zap.Error(err), zap.Any("headers", security.RedactHeaders(req.Header)))...)
			case res.Status >= 400:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request served", fields...)
			}
			return nil
		}
	}
}
