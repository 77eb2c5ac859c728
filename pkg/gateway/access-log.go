package gateway

import (
	"cgibox/pkg/models"
	"fmt"

	"go.uber.org/zap"
)

// NewAccessLogger builds the per-request structured log. A disabled config yields a no-op logger.
func NewAccessLogger(cfg *models.AccessLogConfig) (*zap.Logger, error) {
	if cfg == nil || !cfg.Enabled {
		return zap.NewNop(), nil
	}

	zc := zap.NewProductionConfig()
	zc.Sampling = nil
	zc.DisableCaller = true
	zc.DisableStacktrace = true
	zc.OutputPaths = cfg.OutputPaths
	if len(zc.OutputPaths) == 0 {
		zc.OutputPaths = []string{"stdout"}
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build access logger: %w", err)
	}
	return l.Named("access"), nil
}
