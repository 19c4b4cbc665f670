package clipio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/motion.match/internal/motion"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
)

// Ext is the file extension used for clip files.
const Ext = ".clip.json"

// maxClipSize caps a single clip file.
const maxClipSize = 256 * 1024 * 1024

var ErrNoFrames = errors.New("clip has no frames")

// Clip is a decoded motion-capture clip.
type Clip struct {
	ClipName string                 `json:"name"`
	Interval float64                `json:"frame_interval"`
	Loop     bool                   `json:"loopable"`
	Skeleton []m2skeleton.Joint     `json:"joints"`
	Frames   []m2skeleton.PoseFrame `json:"frames"`
}

func (c *Clip) Name() string                     { return c.ClipName }
func (c *Clip) Joints() []m2skeleton.Joint       { return c.Skeleton }
func (c *Clip) FrameInterval() float64           { return c.Interval }
func (c *Clip) FrameCount() int                  { return len(c.Frames) }
func (c *Clip) Frame(i int) m2skeleton.PoseFrame { return c.Frames[i] }
func (c *Clip) Loopable() bool                   { return c.Loop }

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if len(c.Frames) < 2 {
		return 0
	}
	return float64(len(c.Frames)-1) * c.Interval
}

// Load reads one clip file. A clip without a name takes its file name.
func Load(path string) (*Clip, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat clip: %w", err)
	}
	if info.Size() > maxClipSize {
		return nil, fmt.Errorf("clip file too large: %d bytes (max %d)", info.Size(), maxClipSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip: %w", err)
	}

	var c Clip
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse clip %s: %w", path, err)
	}
	if len(c.Frames) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFrames)
	}
	if c.ClipName == "" {
		c.ClipName = strings.TrimSuffix(filepath.Base(path), Ext)
	}
	return &c, nil
}

// LoadDir reads every clip file in dir, sorted by file name. Unreadable
// files are logged and skipped.
func LoadDir(dir string) ([]*Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	clips := make([]*Clip, 0, len(names))
	for _, name := range names {
		c, err := Load(filepath.Join(dir, name))
		if err != nil {
			motion.Opsf("clipio: skipping %s: %v", name, err)
			continue
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// Save writes c to path as indented JSON.
func Save(path string, c *Clip) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal clip: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write clip: %w", err)
	}
	return nil
}
