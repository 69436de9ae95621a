package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/HSouheill/leadbridge_admin/security"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrFirebaseDisabled   = errors.New("firebase sign-in is not configured")
)

// TokenVerifier checks Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService resolves operator credentials into a session. Only admin accounts may sign in.
type AuthService struct {
	store    *repositories.Store
	verifier TokenVerifier
	clock    Clock
	logger   *zap.Logger
}

func NewAuthService(store *repositories.Store, verifier TokenVerifier, clock Clock, logger *zap.Logger) *AuthService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuthService{store: store, verifier: verifier, clock: clock, logger: logger}
}

// Login checks an email and bcrypt password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	user, err := s.store.Users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load operator: %w", err)
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		s.logger.Warn("failed login", zap.String("email", email))
		return nil, nil, ErrInvalidCredentials
	}
	return s.sessionFor(user)
}

// LoginWithFirebase accepts an ID token issued by the agent app's Firebase project. The uid
// must belong to an admin user document.
func (s *AuthService) LoginWithFirebase(ctx context.Context, idToken string) (*models.User, *models.Session, error) {
	if s.verifier == nil {
		return nil, nil, ErrFirebaseDisabled
	}
	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("firebase token rejected", zap.Error(err))
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.store.Users.FindByID(ctx, token.UID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load operator: %w", err)
	}
	return s.sessionFor(user)
}

func (s *AuthService) sessionFor(user *models.User) (*models.User, *models.Session, error) {
	if user.Role != models.RoleAdmin {
		return nil, nil, ErrForbidden
	}
	return user, &models.Session{OperatorID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// EnsureBootstrapAdmin creates the first operator account when it does not exist yet.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := s.store.Users.FindByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	admin := &models.User{
		FullName:     "Administrator",
		Email:        cfg.AdminEmail,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.store.Users.Create(ctx, admin); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin ensured", zap.String("email", cfg.AdminEmail))
	return nil
}
