package m6blend

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/motion.match/internal/motion"
	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
	"github.com/banshee-data/motion.match/internal/motion/m5match"
)

// SlotID names one of the two blend slots.
type SlotID uint8

const (
	SlotA SlotID = iota
	SlotB
)

func (s SlotID) String() string {
	if s == SlotA {
		return "A"
	}
	return "B"
}

func (s SlotID) other() SlotID { return 1 - s }

// Slot is one half of the player: a matched window and the placement
// captured when it was matched.
type Slot struct {
	Occupied  bool
	Candidate m4index.Candidate
	// CapturedRoot is the yaw-only root transform at the candidate's
	// anchor time.
	CapturedRoot geom.Transform
	// CapturedLive is the character's placement when the slot was filled.
	CapturedLive geom.Transform2D
	Elapsed      float64 // clip time, seconds
}

// LiveInput is what the host supplies each frame.
type LiveInput struct {
	Trajectory m5match.LiveTrajectory
	Character  geom.Transform2D
	// Pose is the character's current pose, used to re-rank candidates.
	// With a nil Pose the nearest trajectory wins.
	Pose m2skeleton.PoseFrame
}

// Frame is the player's output for one Advance.
type Frame struct {
	// Joints are local joint transforms. The root joint carries only its
	// height and yaw-free rotation; its planar placement is World. The
	// slice is reused by the next Advance.
	Joints     []geom.Transform
	World      geom.Transform2D
	RootHeight float64
	Interp     float64 // weight of slot B
	Target     SlotID
	Idle       bool
	Rematched  bool
}

// Player cross-fades between matched clip windows. It is not safe for
// concurrent use; the Asset and Index it reads may be shared.
type Player struct {
	asset   *m3corpus.Asset
	matcher *m5match.Matcher
	cfg     Config

	matchInterval float64
	blendDuration float64

	slots      [2]Slot
	target     SlotID
	matchTimer float64
	blendTimer float64

	lastDirection float64
	haveDirection bool
	pendingForce  bool
	attempted     bool // a match has been tried at least once

	slotJoints [2][]geom.Transform
	out        []geom.Transform
}

// New returns a player over asset and index. A nil or empty asset or index
// gives a player that stays idle.
func New(asset *m3corpus.Asset, index *m4index.Index, cfg Config) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Player{
		asset:         asset,
		cfg:           cfg,
		matchInterval: cfg.MatchInterval.Seconds(),
		blendDuration: cfg.BlendDuration.Seconds(),
		target:        SlotB,
	}
	if !asset.Empty() && index != nil && index.Len() > 0 {
		p.matcher = m5match.NewMatcher(index, cfg.Query)
	} else {
		motion.Opsf("player: no matchable corpus, staying idle")
	}
	return p, nil
}

// Slot returns the current contents of slot id.
func (p *Player) Slot(id SlotID) Slot { return p.slots[id] }

// Target returns the slot the blend is moving toward.
func (p *Player) Target() SlotID { return p.target }

// Advance steps the player by dt seconds. A matching error leaves the slots
// unchanged and is returned alongside the frame.
func (p *Player) Advance(dt float64, in LiveInput) (Frame, error) {
	if p.matcher == nil {
		return Frame{Idle: true, World: in.Character, Target: p.target}, nil
	}

	rematched, err := p.maybeRematch(dt, in)

	for id := range p.slots {
		if p.slots[id].Occupied {
			p.slots[id].Elapsed += dt
		}
	}
	p.blendTimer = math.Min(p.blendTimer+dt, p.blendDuration)

	if !p.slots[SlotA].Occupied && !p.slots[SlotB].Occupied {
		return Frame{Idle: true, World: in.Character, Target: p.target}, err
	}

	frame, evalErr := p.evaluate()
	if evalErr != nil {
		return Frame{Idle: true, World: in.Character, Target: p.target}, evalErr
	}
	frame.Rematched = rematched
	motion.Tracef("player: interp=%.3f target=%s world=(%.2f, %.2f) heading=%.3f",
		frame.Interp, frame.Target, frame.World.Position.X, frame.World.Position.Y, frame.World.Heading)
	return frame, err
}

// interp is the weight of slot B.
func (p *Player) interp() float64 {
	f := math.Max(0, math.Min(1, p.blendTimer/p.blendDuration))
	if p.target == SlotA {
		return 1 - f
	}
	return f
}

func (p *Player) blending() bool {
	return p.slots[SlotA].Occupied && p.slots[SlotB].Occupied && p.blendTimer < p.blendDuration
}

// maybeRematch runs the timer and direction triggers and re-matches when
// either fires. A direction trigger during a blend waits for it to finish.
// The first Advance always tries to match.
func (p *Player) maybeRematch(dt float64, in LiveInput) (bool, error) {
	p.matchTimer += dt

	dir, haveDir := in.Trajectory.Direction(p.asset.Config().Trajectory.HistoryCount)
	if haveDir && p.haveDirection && p.cfg.ForceRematchAngle > 0 &&
		math.Abs(geom.WrapAngle(dir-p.lastDirection)) > p.cfg.ForceRematchAngle {
		p.pendingForce = true
	}

	force := p.pendingForce && !p.blending()
	// Only the very first frame skips the timer; an empty player whose
	// query found nothing retries at the match interval.
	first := !p.attempted
	if !first && !force && p.matchTimer < p.matchInterval {
		return false, nil
	}

	p.attempted = true
	p.matchTimer = 0
	p.pendingForce = false
	if haveDir {
		p.lastDirection, p.haveDirection = dir, true
	}
	return p.rematch(in)
}

// rematch fills the non-targeted slot with the best match for in and
// flips the target. With no candidate the slots are left as they are.
func (p *Player) rematch(in LiveInput) (bool, error) {
	candidates, err := p.matcher.MatchTrajectory(in.Trajectory)
	if err != nil {
		return false, fmt.Errorf("match trajectory: %w", err)
	}
	if len(candidates) == 0 {
		motion.Diagf("player: no trajectory within threshold, keeping slots")
		return false, nil
	}

	best, score := candidates[0], math.NaN()
	if in.Pose != nil {
		c, d, ok, err := m5match.ScorePoses(p.asset, candidates, in.Pose)
		if err != nil {
			return false, fmt.Errorf("score poses: %w", err)
		}
		if !ok {
			motion.Diagf("player: no scorable candidate, keeping slots")
			return false, nil
		}
		best, score = c, d
	}

	t := m5match.CandidateTime(p.asset, best)
	root, err := p.asset.RootAt(best.ChunkIndex, t)
	if err != nil {
		return false, fmt.Errorf("capture root: %w", err)
	}

	id := p.target.other()
	wasEmpty := !p.slots[SlotA].Occupied && !p.slots[SlotB].Occupied
	p.slots[id] = Slot{
		Occupied:  true,
		Candidate: best,
		CapturedRoot: geom.Transform{
			Rotation:    geom.YawRotation(geom.Yaw(root.Rotation)),
			Translation: root.Translation,
		},
		CapturedLive: in.Character,
		Elapsed:      t,
	}
	p.target = id
	p.blendTimer = 0
	if wasEmpty {
		p.blendTimer = p.blendDuration
	}
	motion.Diagf("player: slot %s <- %s chunk %d offset %d at %.3fs (trajectory %.4f, pose %.4f)",
		id, p.asset.ClipName(best.ChunkIndex), best.ChunkIndex, best.ChunkOffset, t, best.Distance, score)
	return true, nil
}

// slotOutput is one slot's proposed placement and local pose.
type slotOutput struct {
	world  geom.Transform2D
	height float64
	joints []geom.Transform
}

// sample reprojects slot id's root motion onto the live placement
// captured with it.
func (p *Player) sample(id SlotID) (slotOutput, error) {
	s := p.slots[id]
	joints, err := p.asset.LocalPoseAt(s.Candidate.ChunkIndex, s.Elapsed, p.slotJoints[id])
	if err != nil {
		return slotOutput{}, err
	}
	p.slotJoints[id] = joints

	root, err := p.asset.RootAt(s.Candidate.ChunkIndex, s.Elapsed)
	if err != nil {
		return slotOutput{}, err
	}
	offset := geom.Mul(s.CapturedRoot.Inverse(), root)
	world := geom.Transform2D{
		Position: s.CapturedLive.FromLocal(geom.Planar(offset.Translation)),
		Heading:  geom.WrapAngle(s.CapturedLive.Heading + geom.Yaw(offset.Rotation)),
	}

	// The root joint keeps its height and yaw-free rotation; World places it.
	height := joints[0].Translation.Y
	joints[0] = geom.Transform{
		Rotation:    geom.StripYaw(joints[0].Rotation),
		Translation: r3.Vec{Y: height},
	}
	return slotOutput{world: world, height: height, joints: joints}, nil
}

// evaluate blends the occupied slots into a Frame.
func (p *Player) evaluate() (Frame, error) {
	interp := p.interp()
	frame := Frame{Interp: interp, Target: p.target}

	var outs [2]slotOutput
	for id := range p.slots {
		if !p.slots[id].Occupied {
			continue
		}
		o, err := p.sample(SlotID(id))
		if err != nil {
			return frame, fmt.Errorf("sample slot %s: %w", SlotID(id), err)
		}
		outs[id] = o
	}

	switch {
	case !p.slots[SlotB].Occupied:
		frame.Interp = 0
		return p.single(frame, outs[SlotA]), nil
	case !p.slots[SlotA].Occupied:
		frame.Interp = 1
		return p.single(frame, outs[SlotB]), nil
	}

	a, b := outs[SlotA], outs[SlotB]
	frame.World = geom.Interpolate2D(a.world, b.world, interp)
	frame.RootHeight = a.height + interp*(b.height-a.height)
	p.out = resize(p.out, len(a.joints))
	for j := range a.joints {
		p.out[j] = geom.Interpolate(a.joints[j], b.joints[j], interp)
	}
	frame.Joints = p.out
	return frame, nil
}

func (p *Player) single(frame Frame, o slotOutput) Frame {
	p.out = resize(p.out, len(o.joints))
	copy(p.out, o.joints)
	frame.World = o.world
	frame.RootHeight = o.height
	frame.Joints = p.out
	return frame
}

func resize(dst []geom.Transform, n int) []geom.Transform {
	if cap(dst) < n {
		return make([]geom.Transform, n)
	}
	return dst[:n]
}
