package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Strategy names accepted by the "strategy" field.
const (
	StrategyTree    = "tree"
	StrategyCluster = "cluster"
)

// TuningConfig represents the root configuration for motion matching.
// Every field is optional; the Get* methods supply defaults, so a partial
// file only overrides what it names.
type TuningConfig struct {
	// Corpus build params
	PoseInterval       *float64 `json:"pose_interval,omitempty"` // seconds between source frames
	IntervalTolerance  *float64 `json:"interval_tolerance,omitempty"`
	TrajectoryInterval *float64 `json:"trajectory_interval,omitempty"` // seconds between trajectory points
	NumPoints          *int     `json:"num_points,omitempty"`
	HistoryCount       *int     `json:"history_count,omitempty"`
	UnitScale          *float64 `json:"unit_scale,omitempty"`

	// Index params
	Strategy          *string  `json:"strategy,omitempty"` // "tree" or "cluster"
	ClusterK          *int     `json:"cluster_k,omitempty"`
	ClusterIterations *int     `json:"cluster_iterations,omitempty"`
	ClusterSeed       *uint64  `json:"cluster_seed,omitempty"`
	MaxMatchCount     *int     `json:"max_match_count,omitempty"`
	MatchThreshold    *float64 `json:"match_threshold,omitempty"`

	// Player params
	MatchInterval        *string  `json:"match_interval,omitempty"`  // duration string like "250ms"
	BlendDuration        *string  `json:"blend_duration,omitempty"`  // duration string like "200ms"
	ForceRematchAngleDeg *float64 `json:"force_rematch_angle_deg,omitempty"` // 0 disables
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the Get* defaults.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		PoseInterval:         ptrFloat64(empty.GetPoseInterval()),
		IntervalTolerance:    ptrFloat64(empty.GetIntervalTolerance()),
		TrajectoryInterval:   ptrFloat64(empty.GetTrajectoryInterval()),
		NumPoints:            ptrInt(empty.GetNumPoints()),
		HistoryCount:         ptrInt(empty.GetHistoryCount()),
		UnitScale:            ptrFloat64(empty.GetUnitScale()),
		Strategy:             ptrString(empty.GetStrategy()),
		ClusterK:             ptrInt(empty.GetClusterK()),
		ClusterIterations:    ptrInt(empty.GetClusterIterations()),
		ClusterSeed:          ptrUint64(empty.GetClusterSeed()),
		MaxMatchCount:        ptrInt(empty.GetMaxMatchCount()),
		MatchThreshold:       ptrFloat64(empty.GetMatchThreshold()),
		MatchInterval:        ptrString(empty.GetMatchInterval().String()),
		BlendDuration:        ptrString(empty.GetBlendDuration().String()),
		ForceRematchAngleDeg: ptrFloat64(empty.GetForceRematchAngleDeg()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfigCandidates are the places DefaultConfigPath is looked for:
// the current directory and the parents a package test runs from.
var defaultConfigCandidates = []string{
	DefaultConfigPath,
	"../../" + DefaultConfigPath,          // from internal/config/, cmd/motionmatch/
	"../../../" + DefaultConfigPath,       // from internal/motion/m3corpus/
	"../../../../" + DefaultConfigPath,    // from internal/motion/storage/sqlite/
	"../../../../../" + DefaultConfigPath, // even deeper
}

func findDefaultConfig() (*TuningConfig, bool) {
	for _, path := range defaultConfigCandidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg, true
		}
	}
	return nil, false
}

// LoadDefaultConfig loads DefaultConfigPath when it can be found and
// otherwise returns the built-in defaults, so installed binaries work from
// any directory.
func LoadDefaultConfig() *TuningConfig {
	if cfg, ok := findDefaultConfig(); ok {
		return cfg
	}
	return DefaultTuningConfig()
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	if cfg, ok := findDefaultConfig(); ok {
		return cfg
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.PoseInterval != nil && *c.PoseInterval <= 0 {
		return fmt.Errorf("pose_interval must be positive, got %f", *c.PoseInterval)
	}
	if c.IntervalTolerance != nil && *c.IntervalTolerance < 0 {
		return fmt.Errorf("interval_tolerance must be non-negative, got %f", *c.IntervalTolerance)
	}
	if c.TrajectoryInterval != nil && *c.TrajectoryInterval <= 0 {
		return fmt.Errorf("trajectory_interval must be positive, got %f", *c.TrajectoryInterval)
	}
	if c.NumPoints != nil && *c.NumPoints < 2 {
		return fmt.Errorf("num_points must be at least 2, got %d", *c.NumPoints)
	}
	if c.HistoryCount != nil && *c.HistoryCount < 0 {
		return fmt.Errorf("history_count must be non-negative, got %d", *c.HistoryCount)
	}
	if c.GetHistoryCount() >= c.GetNumPoints() {
		return fmt.Errorf("history_count (%d) must be less than num_points (%d)", c.GetHistoryCount(), c.GetNumPoints())
	}
	if c.UnitScale != nil && *c.UnitScale <= 0 {
		return fmt.Errorf("unit_scale must be positive, got %f", *c.UnitScale)
	}

	if c.Strategy != nil {
		switch *c.Strategy {
		case StrategyTree, StrategyCluster:
		default:
			return fmt.Errorf("strategy must be %q or %q, got %q", StrategyTree, StrategyCluster, *c.Strategy)
		}
	}
	if c.ClusterK != nil && *c.ClusterK < 1 {
		return fmt.Errorf("cluster_k must be at least 1, got %d", *c.ClusterK)
	}
	if c.ClusterIterations != nil && *c.ClusterIterations < 1 {
		return fmt.Errorf("cluster_iterations must be at least 1, got %d", *c.ClusterIterations)
	}
	if c.MaxMatchCount != nil && *c.MaxMatchCount < 1 {
		return fmt.Errorf("max_match_count must be at least 1, got %d", *c.MaxMatchCount)
	}
	if c.MatchThreshold != nil && *c.MatchThreshold <= 0 {
		return fmt.Errorf("match_threshold must be positive, got %f", *c.MatchThreshold)
	}

	if c.MatchInterval != nil && *c.MatchInterval != "" {
		if _, err := time.ParseDuration(*c.MatchInterval); err != nil {
			return fmt.Errorf("invalid match_interval '%s': %w", *c.MatchInterval, err)
		}
	}
	if c.BlendDuration != nil && *c.BlendDuration != "" {
		if _, err := time.ParseDuration(*c.BlendDuration); err != nil {
			return fmt.Errorf("invalid blend_duration '%s': %w", *c.BlendDuration, err)
		}
	}
	if c.GetBlendDuration() > c.GetMatchInterval() {
		return fmt.Errorf("blend_duration (%v) must not exceed match_interval (%v)", c.GetBlendDuration(), c.GetMatchInterval())
	}
	if c.ForceRematchAngleDeg != nil && (*c.ForceRematchAngleDeg < 0 || *c.ForceRematchAngleDeg > 180) {
		return fmt.Errorf("force_rematch_angle_deg must be between 0 and 180, got %f", *c.ForceRematchAngleDeg)
	}

	return nil
}

// GetPoseInterval returns the pose_interval value or the default (60 Hz).
func (c *TuningConfig) GetPoseInterval() float64 {
	if c.PoseInterval == nil {
		return 1.0 / 60.0
	}
	return *c.PoseInterval
}

// GetIntervalTolerance returns the interval_tolerance value or the default.
func (c *TuningConfig) GetIntervalTolerance() float64 {
	if c.IntervalTolerance == nil {
		return 1e-4
	}
	return *c.IntervalTolerance
}

// GetTrajectoryInterval returns the trajectory_interval value or the default.
func (c *TuningConfig) GetTrajectoryInterval() float64 {
	if c.TrajectoryInterval == nil {
		return 0.1
	}
	return *c.TrajectoryInterval
}

// GetNumPoints returns the num_points value or the default.
func (c *TuningConfig) GetNumPoints() int {
	if c.NumPoints == nil {
		return 7
	}
	return *c.NumPoints
}

// GetHistoryCount returns the history_count value or the default.
func (c *TuningConfig) GetHistoryCount() int {
	if c.HistoryCount == nil {
		return 3
	}
	return *c.HistoryCount
}

// GetUnitScale returns the unit_scale value or the default (centimetres to metres).
func (c *TuningConfig) GetUnitScale() float64 {
	if c.UnitScale == nil {
		return 0.01
	}
	return *c.UnitScale
}

// GetStrategy returns the strategy value or the default.
func (c *TuningConfig) GetStrategy() string {
	if c.Strategy == nil || *c.Strategy == "" {
		return StrategyTree
	}
	return *c.Strategy
}

// GetClusterK returns the cluster_k value or the default.
func (c *TuningConfig) GetClusterK() int {
	if c.ClusterK == nil {
		return 32
	}
	return *c.ClusterK
}

// GetClusterIterations returns the cluster_iterations value or the default.
func (c *TuningConfig) GetClusterIterations() int {
	if c.ClusterIterations == nil {
		return 10
	}
	return *c.ClusterIterations
}

// GetClusterSeed returns the cluster_seed value or the default.
func (c *TuningConfig) GetClusterSeed() uint64 {
	if c.ClusterSeed == nil {
		return 1
	}
	return *c.ClusterSeed
}

// GetMaxMatchCount returns the max_match_count value or the default.
func (c *TuningConfig) GetMaxMatchCount() int {
	if c.MaxMatchCount == nil {
		return 8
	}
	return *c.MaxMatchCount
}

// GetMatchThreshold returns the match_threshold value or the default.
func (c *TuningConfig) GetMatchThreshold() float64 {
	if c.MatchThreshold == nil {
		return 2.0
	}
	return *c.MatchThreshold
}

// GetMatchInterval parses and returns the MatchInterval as a time.Duration.
func (c *TuningConfig) GetMatchInterval() time.Duration {
	if c.MatchInterval == nil || *c.MatchInterval == "" {
		return 250 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.MatchInterval)
	if err != nil {
		return 250 * time.Millisecond // default on parse error
	}
	return d
}

// GetBlendDuration parses and returns the BlendDuration as a time.Duration.
func (c *TuningConfig) GetBlendDuration() time.Duration {
	if c.BlendDuration == nil || *c.BlendDuration == "" {
		return 200 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.BlendDuration)
	if err != nil {
		return 200 * time.Millisecond // default on parse error
	}
	return d
}

// GetForceRematchAngleDeg returns the force_rematch_angle_deg value or the default.
func (c *TuningConfig) GetForceRematchAngleDeg() float64 {
	if c.ForceRematchAngleDeg == nil {
		return 60
	}
	return *c.ForceRematchAngleDeg
}
