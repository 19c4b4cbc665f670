package m2skeleton

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/motion.match/internal/motion/geom"
)

// NoParent marks the root joint.
const NoParent = -1

var (
	ErrEmptySkeleton = errors.New("skeleton has no joints")
	ErrMissingRoot   = errors.New("joint 0 must be the root and have no parent")
	ErrMultipleRoots = errors.New("skeleton has more than one parentless joint")
	ErrParentOrder   = errors.New("joint parent must precede the joint")
	ErrChannelCount  = errors.New("joint must have 3 or 6 channels")
	ErrChannelLayout = errors.New("channel indices must cover the pose vector exactly once")
	ErrFrameLength   = errors.New("pose frame length does not match skeleton channel count")
)

// Joint is one entry in the skeleton arena. Parent refers to an earlier
// joint by index, or is NoParent for the root.
type Joint struct {
	Name     string    `json:"name"`
	Offset   r3.Vec    `json:"offset"`
	Parent   int       `json:"parent"`
	Channels []Channel `json:"channels"`
}

// PoseFrame is one sampled body pose: the flat channel vector of a frame.
// Rotation channels are in degrees.
type PoseFrame []float64

// Skeleton is an ordered, validated joint arena.
type Skeleton struct {
	joints       []Joint
	channelCount int
	byName       map[string]int
}

// New validates joints and builds a Skeleton. The slice is copied.
func New(joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, ErrEmptySkeleton
	}
	if joints[0].Parent != NoParent {
		return nil, fmt.Errorf("%w: joint %q has parent %d", ErrMissingRoot, joints[0].Name, joints[0].Parent)
	}

	s := &Skeleton{
		joints: make([]Joint, len(joints)),
		byName: make(map[string]int, len(joints)),
	}
	seen := make(map[int]bool)
	for i, j := range joints {
		if i > 0 {
			if j.Parent == NoParent {
				return nil, fmt.Errorf("%w: joint %d %q", ErrMultipleRoots, i, j.Name)
			}
			if j.Parent < 0 || j.Parent >= i {
				return nil, fmt.Errorf("%w: joint %d %q has parent %d", ErrParentOrder, i, j.Name, j.Parent)
			}
		}
		if n := len(j.Channels); n != 3 && n != 6 {
			return nil, fmt.Errorf("%w: joint %q has %d", ErrChannelCount, j.Name, n)
		}
		for _, ch := range j.Channels {
			if !ch.Kind.Valid() {
				return nil, fmt.Errorf("joint %q: invalid channel kind %d", j.Name, ch.Kind)
			}
			if ch.Index < 0 || seen[ch.Index] {
				return nil, fmt.Errorf("%w: joint %q index %d", ErrChannelLayout, j.Name, ch.Index)
			}
			seen[ch.Index] = true
		}
		s.channelCount += len(j.Channels)

		cp := j
		cp.Channels = append([]Channel(nil), j.Channels...)
		s.joints[i] = cp
		if _, dup := s.byName[j.Name]; !dup {
			s.byName[j.Name] = i
		}
	}
	for idx := range seen {
		if idx >= s.channelCount {
			return nil, fmt.Errorf("%w: index %d beyond %d channels", ErrChannelLayout, idx, s.channelCount)
		}
	}
	return s, nil
}

// Joints returns the joint arena. Callers must not modify it.
func (s *Skeleton) Joints() []Joint { return s.joints }

// NumJoints returns the number of joints.
func (s *Skeleton) NumJoints() int { return len(s.joints) }

// ChannelCount returns the pose vector length.
func (s *Skeleton) ChannelCount() int { return s.channelCount }

// Root returns the root joint.
func (s *Skeleton) Root() Joint { return s.joints[0] }

// JointIndex returns the index of the first joint called name.
func (s *Skeleton) JointIndex(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// CheckFrame reports whether frame has the skeleton's channel count and finite values.
func (s *Skeleton) CheckFrame(frame PoseFrame) error {
	if len(frame) != s.channelCount {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameLength, len(frame), s.channelCount)
	}
	for i, v := range frame {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("pose channel %d is not finite", i)
		}
	}
	return nil
}

// Equivalent reports whether other has the same joint names, parents and
// channel layout, so pose frames from one are valid for the other.
func (s *Skeleton) Equivalent(other *Skeleton) bool {
	if other == nil || len(s.joints) != len(other.joints) || s.channelCount != other.channelCount {
		return false
	}
	for i, a := range s.joints {
		b := other.joints[i]
		if a.Name != b.Name || a.Parent != b.Parent || len(a.Channels) != len(b.Channels) {
			return false
		}
		for c := range a.Channels {
			if a.Channels[c] != b.Channels[c] {
				return false
			}
		}
	}
	return true
}

// LocalTransform returns joint j's transform relative to its parent for
// frame. Translation is the rest offset plus any position channels; rotation
// composes the Euler channels in channel order. frame must pass CheckFrame.
func (s *Skeleton) LocalTransform(frame PoseFrame, j int) geom.Transform {
	joint := s.joints[j]
	t := joint.Offset
	rot := geom.IdentityRotation
	for _, ch := range joint.Channels {
		v := frame[ch.Index]
		if ch.Kind.IsRotation() {
			rot = quat.Mul(rot, geom.AxisAngle(ch.Kind.Axis(), v*math.Pi/180))
			continue
		}
		t = r3.Add(t, r3.Scale(v, ch.Kind.Axis()))
	}
	return geom.Transform{Rotation: geom.Normalize(rot), Translation: t}
}

// LocalTransforms fills dst with every joint's local transform for frame.
// dst is grown as needed and returned.
func (s *Skeleton) LocalTransforms(frame PoseFrame, dst []geom.Transform) []geom.Transform {
	dst = resize(dst, len(s.joints))
	for j := range s.joints {
		dst[j] = s.LocalTransform(frame, j)
	}
	return dst
}

// SampleLocal blends frames a and b joint by joint at factor t: linear on
// translation, spherical on rotation.
func (s *Skeleton) SampleLocal(a, b PoseFrame, t float64, dst []geom.Transform) []geom.Transform {
	dst = resize(dst, len(s.joints))
	for j := range s.joints {
		dst[j] = geom.Interpolate(s.LocalTransform(a, j), s.LocalTransform(b, j), t)
	}
	return dst
}

// ModelTransforms composes local transforms down the hierarchy, returning
// each joint's transform relative to the skeleton origin.
func (s *Skeleton) ModelTransforms(local []geom.Transform, dst []geom.Transform) []geom.Transform {
	dst = resize(dst, len(s.joints))
	for j, joint := range s.joints {
		if joint.Parent == NoParent {
			dst[j] = local[j]
			continue
		}
		dst[j] = geom.Mul(dst[joint.Parent], local[j])
	}
	return dst
}

func resize(dst []geom.Transform, n int) []geom.Transform {
	if cap(dst) < n {
		return make([]geom.Transform, n)
	}
	return dst[:n]
}
