package m5match

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/motion.match/internal/motion"
	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
)

var ErrPoseLength = errors.New("pose does not match skeleton")

// CandidateTime is the clip time of a candidate's anchor point.
func CandidateTime(asset *m3corpus.Asset, c m4index.Candidate) float64 {
	tc := asset.Config().Trajectory
	return float64(c.ChunkOffset+tc.HistoryCount) * tc.IntervalTime
}

// ScorePoses re-ranks trajectory candidates by the distance between their
// anchor pose and the live pose. Candidates that do not address a window of
// asset are skipped. ok is false when no candidate could be scored.
//
// Scoring uses PoseDistance, so the root's position channels do not count
// and rotation channels compare by their wrapped angle: a live pose at
// another world placement, or with a heading past ±180°, scores the same
// as one at the clip's own origin.
func ScorePoses(asset *m3corpus.Asset, candidates []m4index.Candidate, live m2skeleton.PoseFrame) (best m4index.Candidate, distance float64, ok bool, err error) {
	if asset.Empty() || len(candidates) == 0 {
		return best, 0, false, nil
	}
	skel := asset.Skeleton()
	if err := skel.CheckFrame(live); err != nil {
		return best, 0, false, fmt.Errorf("%w: %w", ErrPoseLength, err)
	}

	distance = math.Inf(1)
	for _, c := range candidates {
		if _, err := asset.TrajectoryWindow(c.ChunkIndex, c.ChunkOffset); err != nil {
			motion.Diagf("score: skipping candidate %d/%d: %v", c.ChunkIndex, c.ChunkOffset, err)
			continue
		}
		s, err := asset.PoseAt(c.ChunkIndex, CandidateTime(asset, c))
		if err != nil {
			motion.Diagf("score: skipping candidate %d/%d: %v", c.ChunkIndex, c.ChunkOffset, err)
			continue
		}
		if d := PoseDistance(skel, s.Nearest(), live); d < distance {
			best, distance, ok = c, d, true
		}
	}
	if !ok {
		return best, 0, false, nil
	}
	return best, distance, true, nil
}

// PoseDistance is the two-level RMS between poses a and b: per joint the
// root of the summed squared channel differences, then the root of the sum
// over joints. Rotation differences are wrapped to (-180, 180] degrees. The
// root's position channels place the clip in its own space and are ignored.
func PoseDistance(skel *m2skeleton.Skeleton, a, b m2skeleton.PoseFrame) float64 {
	var total float64
	for j, joint := range skel.Joints() {
		var sum float64
		for _, ch := range joint.Channels {
			if j == 0 && !ch.Kind.IsRotation() {
				continue
			}
			d := a[ch.Index] - b[ch.Index]
			if ch.Kind.IsRotation() {
				d = geom.WrapAngle(d*math.Pi/180) * 180 / math.Pi
			}
			sum += d * d
		}
		total += math.Sqrt(sum)
	}
	return math.Sqrt(total)
}
