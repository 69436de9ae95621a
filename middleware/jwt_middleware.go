// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// SessionKey is the echo context key holding the *models.Session of the caller.
const SessionKey = "session"

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	OperatorID string `json:"operatorId"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for backward compatibility with Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	now := time.Now().Unix()
	if c.ExpiresAt > 0 && now > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && now < c.NotBefore {
		return errors.New("token used before valid")
	}
	if c.OperatorID == "" {
		return errors.New("token has no operator")
	}
	return nil
}

// TokenBlacklist remembers logged-out tokens until they would have expired anyway.
type TokenBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{tokens: make(map[string]time.Time)}
}

func (b *TokenBlacklist) Add(token string, expiry time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = expiry
}

func (b *TokenBlacklist) Contains(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(b.tokens, token)
		return false
	}
	return true
}

// Cleanup drops expired entries; main runs it on a ticker.
func (b *TokenBlacklist) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for token, expiry := range b.tokens {
		if now.After(expiry) {
			delete(b.tokens, token)
		}
	}
}

// JWTMiddleware validates the bearer token (or ?token= for the websocket upgrade) and
// stores the operator session on the context.
func JWTMiddleware(cfg config.AuthConfig, logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(cfg.JWTSecret),
		SigningMethod: middleware.AlgorithmHS256,
		Claims:        &JwtCustomClaims{},
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ,query:token",
		SuccessHandler: func(c echo.Context) {
			token := c.Get("user").(*jwt.Token)
			claims := token.Claims.(*JwtCustomClaims)
			c.Set(SessionKey, &models.Session{
				OperatorID: claims.OperatorID,
				Email:      claims.Email,
				Role:       claims.Role,
			})
		},
		ErrorHandlerWithContext: func(err error, c echo.Context) error {
			logger.Debug("jwt rejected", zap.String("path", c.Request().URL.Path), zap.Error(err))
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Please provide valid credentials",
			})
		},
	})
}

// RejectBlacklisted runs after JWTMiddleware and refuses logged-out tokens.
func RejectBlacklisted(blacklist *TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := c.Get("user").(*jwt.Token); ok && blacklist.Contains(token.Raw) {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Token has been invalidated",
				})
			}
			return next(c)
		}
	}
}

// GenerateToken signs an access token for an operator.
func GenerateToken(cfg config.AuthConfig, session *models.Session, now time.Time) (string, time.Time, error) {
	if cfg.JWTSecret == "" {
		return "", time.Time{}, errors.New("JWT secret is not configured")
	}
	expires := now.Add(cfg.JWTTTL)
	claims := &JwtCustomClaims{
		OperatorID: session.OperatorID,
		Email:      session.Email,
		Role:       session.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expires.Unix(),
			IssuedAt:  now.Unix(),
			Subject:   session.OperatorID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// SessionFrom returns the operator session stored by JWTMiddleware, or nil.
func SessionFrom(c echo.Context) *models.Session {
	session, _ := c.Get(SessionKey).(*models.Session)
	return session
}

// RawToken returns the bearer token of the request as validated by JWTMiddleware.
func RawToken(c echo.Context) (string, time.Time, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return "", time.Time{}, false
	}
	var expiry time.Time
	if claims, ok := token.Claims.(*JwtCustomClaims); ok && claims.ExpiresAt > 0 {
		expiry = time.Unix(claims.ExpiresAt, 0)
	}
	return strings.TrimSpace(token.Raw), expiry, true
}
