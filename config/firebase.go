package config

import (
	"context"
	"encoding/base64"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK. It returns nil, nil when no credentials
// are configured; Firebase login and push are then disabled.
func InitFirebase(cfg FirebaseConfig, logger *zap.Logger) (*firebase.App, error) {
	ctx := context.Background()

	var opt option.ClientOption
	switch {
	case cfg.CredentialsBase64 != "":
		logger.Info("using Firebase credentials from base64 environment variable")
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode FIREBASE_CREDENTIALS_BASE64: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.CredentialsFile != "":
		logger.Info("using Firebase credentials file", zap.String("path", cfg.CredentialsFile))
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	default:
		logger.Warn("Firebase credentials not configured, Firebase login and push disabled")
		return nil, nil
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}
