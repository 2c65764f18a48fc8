package internal

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger writes JSON logs to path. The terminal belongs to the UI, so
// nothing is ever written to stdout or stderr.
func NewLogger(path string, verbose bool) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func AccountFields(acc Account) []zap.Field {
	return []zap.Field{
		zap.String("platform", acc.Platform),
		zap.Int64("account_id", acc.ID),
		zap.String("provider_id", acc.ProviderID),
	}
}
