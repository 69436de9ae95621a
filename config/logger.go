package config

import (
	"go.uber.org/zap"
)

// NewLogger builds a JSON production logger, or a console logger in development.
func NewLogger(cfg AppConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = cfg.GetLogLevel()
	return zc.Build()
}
