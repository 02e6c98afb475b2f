package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a JSON production logger, or a human-readable development
// logger when env is "dev" or "local".
func New(env string) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	switch env {
	case "dev", "local":
		log, err = zap.NewDevelopment()
	default:
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}
	return log, nil
}
