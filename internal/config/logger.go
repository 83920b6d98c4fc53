package config

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. Debug mode gets the
// human-readable development encoder.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
