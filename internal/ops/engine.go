package ops

import (
	"go.uber.org/zap"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/pattern"
	"github.com/hpungsan/pith/internal/tokens"
)

// NewEngine builds a compression engine from config. One engine should be
// shared per process so placeholder ids stay unique across calls.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*compress.Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	estimator, err := tokens.New(cfg.Estimator, cfg.TokenizerModel)
	if err != nil {
		return nil, err
	}

	detector := pattern.NewDetector(cfg.MinLength, pattern.WithTypes(cfg.EnabledContentTypes()...))
	return compress.NewEngine(detector,
		compress.WithEstimator(estimator),
		compress.WithLogger(logger),
	), nil
}
