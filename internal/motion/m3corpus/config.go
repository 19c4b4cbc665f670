package m3corpus

import (
	"errors"
	"fmt"

	"github.com/banshee-data/motion.match/internal/config"
)

var (
	ErrInvalidConfig   = errors.New("invalid corpus config")
	ErrInvalidSkeleton = errors.New("invalid clip skeleton")
)

// TrajectoryConfig fixes how root trajectories are sampled and windowed.
// HistoryCount indexes the anchor point inside each NumPoints window.
type TrajectoryConfig struct {
	IntervalTime float64
	NumPoints    int
	HistoryCount int
}

// BuildConfig controls corpus construction.
type BuildConfig struct {
	PoseInterval      float64 // expected source frame interval, seconds
	Trajectory        TrajectoryConfig
	UnitScale         float64 // clip units to feature units
	IntervalTolerance float64 // accepted |clip interval - PoseInterval|
}

// DefaultBuildConfig returns the built-in corpus settings.
func DefaultBuildConfig() BuildConfig {
	return BuildConfigFromTuning(config.EmptyTuningConfig())
}

// BuildConfigFromTuning builds a BuildConfig from a loaded TuningConfig.
func BuildConfigFromTuning(cfg *config.TuningConfig) BuildConfig {
	return BuildConfig{
		PoseInterval: cfg.GetPoseInterval(),
		Trajectory: TrajectoryConfig{
			IntervalTime: cfg.GetTrajectoryInterval(),
			NumPoints:    cfg.GetNumPoints(),
			HistoryCount: cfg.GetHistoryCount(),
		},
		UnitScale:         cfg.GetUnitScale(),
		IntervalTolerance: cfg.GetIntervalTolerance(),
	}
}

// Validate rejects configurations that cannot produce a usable corpus.
func (c BuildConfig) Validate() error {
	switch {
	case c.PoseInterval <= 0:
		return fmt.Errorf("%w: pose interval %v must be positive", ErrInvalidConfig, c.PoseInterval)
	case c.Trajectory.IntervalTime <= 0:
		return fmt.Errorf("%w: trajectory interval %v must be positive", ErrInvalidConfig, c.Trajectory.IntervalTime)
	case c.Trajectory.NumPoints < 2:
		return fmt.Errorf("%w: num points %d must be at least 2", ErrInvalidConfig, c.Trajectory.NumPoints)
	case c.Trajectory.HistoryCount < 0 || c.Trajectory.HistoryCount >= c.Trajectory.NumPoints:
		return fmt.Errorf("%w: history count %d must be in [0, %d)", ErrInvalidConfig, c.Trajectory.HistoryCount, c.Trajectory.NumPoints)
	case c.UnitScale <= 0:
		return fmt.Errorf("%w: unit scale %v must be positive", ErrInvalidConfig, c.UnitScale)
	case c.IntervalTolerance < 0:
		return fmt.Errorf("%w: interval tolerance %v must be non-negative", ErrInvalidConfig, c.IntervalTolerance)
	}
	return nil
}
