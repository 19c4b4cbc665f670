package m6blend

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/motion.match/internal/config"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
)

var ErrInvalidConfig = errors.New("invalid player config")

// Config controls re-match timing and cross-fading.
type Config struct {
	MatchInterval time.Duration
	BlendDuration time.Duration // at most MatchInterval
	// ForceRematchAngle is the turn in desired direction, in radians, that
	// triggers an immediate re-match. Zero disables it.
	ForceRematchAngle float64
	Query             m4index.QueryOptions
}

// DefaultConfig returns the built-in player settings.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a player Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MatchInterval:     cfg.GetMatchInterval(),
		BlendDuration:     cfg.GetBlendDuration(),
		ForceRematchAngle: cfg.GetForceRematchAngleDeg() * math.Pi / 180,
		Query:             m4index.OptionsFromTuning(cfg).Query,
	}
}

// Validate rejects settings the player cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MatchInterval <= 0:
		return fmt.Errorf("%w: match interval %v must be positive", ErrInvalidConfig, c.MatchInterval)
	case c.BlendDuration <= 0 || c.BlendDuration > c.MatchInterval:
		return fmt.Errorf("%w: blend duration %v must be in (0, %v]", ErrInvalidConfig, c.BlendDuration, c.MatchInterval)
	case c.ForceRematchAngle < 0 || c.ForceRematchAngle > math.Pi:
		return fmt.Errorf("%w: force rematch angle %v must be in [0, π]", ErrInvalidConfig, c.ForceRematchAngle)
	case c.Query.MaxMatchCount < 1:
		return fmt.Errorf("%w: max match count %d must be at least 1", ErrInvalidConfig, c.Query.MaxMatchCount)
	}
	return nil
}
