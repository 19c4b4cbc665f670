package m3corpus

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m1series"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
)

// ErrCorruptAsset is returned when an artifact cannot be decoded into a
// valid Asset.
var ErrCorruptAsset = errors.New("corrupt motion asset")

const (
	assetMagic   = "motion.match/asset"
	assetVersion = 1

	// Values stored per trajectory point: qw qx qy qz tx ty tz vx vz.
	pointStride = 9

	// Cap on artifacts read through ReadAsset.
	maxArtifactSize = 1 << 30
)

// Top-level field numbers.
const (
	fieldMagic             protowire.Number = 1
	fieldVersion           protowire.Number = 2
	fieldPoseInterval      protowire.Number = 3
	fieldTrajInterval      protowire.Number = 4
	fieldNumPoints         protowire.Number = 5
	fieldHistoryCount      protowire.Number = 6
	fieldUnitScale         protowire.Number = 7
	fieldJoint             protowire.Number = 8
	fieldPoseOffsets       protowire.Number = 9
	fieldPoseValues        protowire.Number = 10
	fieldTrajOffsets       protowire.Number = 11
	fieldTrajValues        protowire.Number = 12
	fieldLoopable          protowire.Number = 13
	fieldClipName          protowire.Number = 14
	fieldIntervalTolerance protowire.Number = 15
)

// Joint message field numbers.
const (
	jointName    protowire.Number = 1
	jointOffset  protowire.Number = 2
	jointParent  protowire.Number = 3
	jointKinds   protowire.Number = 4
	jointIndices protowire.Number = 5
)

// Encode serialises a to its artifact form.
func Encode(a *Asset) ([]byte, error) {
	if a == nil {
		return nil, errors.New("encode: nil asset")
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	var b []byte
	b = protowire.AppendTag(b, fieldMagic, protowire.BytesType)
	b = protowire.AppendString(b, assetMagic)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, assetVersion)

	b = appendFloat(b, fieldPoseInterval, a.cfg.PoseInterval)
	b = appendFloat(b, fieldTrajInterval, a.cfg.Trajectory.IntervalTime)
	b = protowire.AppendTag(b, fieldNumPoints, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.cfg.Trajectory.NumPoints))
	b = protowire.AppendTag(b, fieldHistoryCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.cfg.Trajectory.HistoryCount))
	b = appendFloat(b, fieldUnitScale, a.cfg.UnitScale)
	b = appendFloat(b, fieldIntervalTolerance, a.cfg.IntervalTolerance)

	for _, j := range a.Joints() {
		b = protowire.AppendTag(b, fieldJoint, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeJoint(j))
	}

	b = appendPackedVarint(b, fieldPoseOffsets, intsToUint(a.poses.ChunkOffsets().Offsets()))
	poseValues := make([]float64, 0, a.poses.Len()*channelCount(a))
	for _, f := range a.poses.Items() {
		poseValues = append(poseValues, f...)
	}
	b = appendPackedFloat(b, fieldPoseValues, poseValues)

	b = appendPackedVarint(b, fieldTrajOffsets, intsToUint(a.trajectories.ChunkOffsets().Offsets()))
	trajValues := make([]float64, 0, a.trajectories.Len()*pointStride)
	for _, p := range a.trajectories.Items() {
		q, t := p.Transform.Rotation, p.Transform.Translation
		trajValues = append(trajValues, q.Real, q.Imag, q.Jmag, q.Kmag, t.X, t.Y, t.Z, p.Velocity.X, p.Velocity.Y)
	}
	b = appendPackedFloat(b, fieldTrajValues, trajValues)

	loops := make([]uint64, len(a.loopable))
	for i, l := range a.loopable {
		if l {
			loops[i] = 1
		}
	}
	b = appendPackedVarint(b, fieldLoopable, loops)
	for _, name := range a.clipNames {
		b = protowire.AppendTag(b, fieldClipName, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	return b, nil
}

// WriteTo writes the encoded asset to w. It implements io.WriterTo.
func (a *Asset) WriteTo(w io.Writer) (int64, error) {
	b, err := Encode(a)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// ReadAsset reads and decodes an artifact from r.
func ReadAsset(r io.Reader) (*Asset, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("%w: artifact exceeds %d bytes", ErrCorruptAsset, maxArtifactSize)
	}
	return Decode(data)
}

// Decode parses an artifact produced by Encode. The skeleton and every
// chunk invariant are re-validated.
func Decode(data []byte) (*Asset, error) {
	var (
		magic, version     bool
		cfg                BuildConfig
		joints             []m2skeleton.Joint
		poseOffs, trajOffs []uint64
		poseVals, trajVals []float64
		loops              []uint64
		names              []string
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldMagic && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			if n >= 0 && s != assetMagic {
				return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptAsset, s)
			}
			magic = true
		case num == fieldVersion && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			if n >= 0 && v != assetVersion {
				return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptAsset, v)
			}
			version = true
		case num == fieldPoseInterval && typ == protowire.Fixed64Type:
			cfg.PoseInterval, n = consumeFloat(data)
		case num == fieldTrajInterval && typ == protowire.Fixed64Type:
			cfg.Trajectory.IntervalTime, n = consumeFloat(data)
		case num == fieldUnitScale && typ == protowire.Fixed64Type:
			cfg.UnitScale, n = consumeFloat(data)
		case num == fieldIntervalTolerance && typ == protowire.Fixed64Type:
			cfg.IntervalTolerance, n = consumeFloat(data)
		case num == fieldNumPoints && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			cfg.Trajectory.NumPoints = int(v)
		case num == fieldHistoryCount && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			cfg.Trajectory.HistoryCount = int(v)
		case num == fieldJoint && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				j, err := decodeJoint(raw)
				if err != nil {
					return nil, err
				}
				joints = append(joints, j)
			}
		case num == fieldPoseOffsets && typ == protowire.BytesType:
			poseOffs, n = consumePackedVarint(data, poseOffs)
		case num == fieldPoseValues && typ == protowire.BytesType:
			poseVals, n = consumePackedFloat(data, poseVals)
		case num == fieldTrajOffsets && typ == protowire.BytesType:
			trajOffs, n = consumePackedVarint(data, trajOffs)
		case num == fieldTrajValues && typ == protowire.BytesType:
			trajVals, n = consumePackedFloat(data, trajVals)
		case num == fieldLoopable && typ == protowire.BytesType:
			loops, n = consumePackedVarint(data, loops)
		case num == fieldClipName && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			names = append(names, s)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}
		data = data[n:]
	}

	if !magic || !version {
		return nil, fmt.Errorf("%w: missing header", ErrCorruptAsset)
	}
	if err := cfg.Validate(); err != nil {
		return nil, corrupt(err)
	}

	a := newAsset(cfg)
	if len(joints) > 0 {
		skel, err := m2skeleton.New(joints)
		if err != nil {
			return nil, corrupt(err)
		}
		a.skeleton = skel
	}

	poses, err := decodePoses(poseOffs, poseVals, channelCount(a))
	if err != nil {
		return nil, corrupt(err)
	}
	a.poses = poses

	trajectories, err := decodeTrajectories(trajOffs, trajVals)
	if err != nil {
		return nil, corrupt(err)
	}
	a.trajectories = trajectories

	a.loopable = make([]bool, len(loops))
	for i, l := range loops {
		a.loopable[i] = l != 0
	}
	a.clipNames = names

	if err := a.Validate(); err != nil {
		return nil, corrupt(err)
	}
	return a, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %w", ErrCorruptAsset, err)
}

func channelCount(a *Asset) int {
	if a.skeleton == nil {
		return 0
	}
	return a.skeleton.ChannelCount()
}

func encodeJoint(j m2skeleton.Joint) []byte {
	var b []byte
	b = protowire.AppendTag(b, jointName, protowire.BytesType)
	b = protowire.AppendString(b, j.Name)
	b = appendPackedFloat(b, jointOffset, []float64{j.Offset.X, j.Offset.Y, j.Offset.Z})
	b = protowire.AppendTag(b, jointParent, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(j.Parent)))

	kinds := make([]uint64, len(j.Channels))
	indices := make([]uint64, len(j.Channels))
	for i, ch := range j.Channels {
		kinds[i] = uint64(ch.Kind)
		indices[i] = uint64(ch.Index)
	}
	b = appendPackedVarint(b, jointKinds, kinds)
	b = appendPackedVarint(b, jointIndices, indices)
	return b
}

func decodeJoint(data []byte) (m2skeleton.Joint, error) {
	var (
		j              m2skeleton.Joint
		offset         []float64
		kinds, indices []uint64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return j, corrupt(protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == jointName && typ == protowire.BytesType:
			j.Name, n = protowire.ConsumeString(data)
		case num == jointOffset && typ == protowire.BytesType:
			offset, n = consumePackedFloat(data, offset)
		case num == jointParent && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			j.Parent = int(protowire.DecodeZigZag(v))
		case num == jointKinds && typ == protowire.BytesType:
			kinds, n = consumePackedVarint(data, kinds)
		case num == jointIndices && typ == protowire.BytesType:
			indices, n = consumePackedVarint(data, indices)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return j, corrupt(protowire.ParseError(n))
		}
		data = data[n:]
	}

	if len(offset) != 3 {
		return j, fmt.Errorf("%w: joint %q offset has %d values", ErrCorruptAsset, j.Name, len(offset))
	}
	if len(kinds) != len(indices) {
		return j, fmt.Errorf("%w: joint %q has %d kinds and %d indices", ErrCorruptAsset, j.Name, len(kinds), len(indices))
	}
	j.Offset = r3.Vec{X: offset[0], Y: offset[1], Z: offset[2]}
	j.Channels = make([]m2skeleton.Channel, len(kinds))
	for i := range kinds {
		if kinds[i] > uint64(m2skeleton.ZRotation) {
			return j, fmt.Errorf("%w: joint %q channel kind %d", ErrCorruptAsset, j.Name, kinds[i])
		}
		j.Channels[i] = m2skeleton.Channel{Kind: m2skeleton.ChannelKind(kinds[i]), Index: int(indices[i])}
	}
	return j, nil
}

func decodePoses(rawOffsets []uint64, values []float64, channels int) (*m1series.Series[m2skeleton.PoseFrame], error) {
	offsets, err := decodeOffsets(rawOffsets)
	if err != nil {
		return nil, fmt.Errorf("pose offsets: %w", err)
	}
	total := offsets.Total()
	// Divide rather than multiply so a huge total cannot overflow.
	switch {
	case channels <= 0 && (total > 0 || len(values) > 0):
		return nil, fmt.Errorf("pose values: %d frames with no skeleton channels", total)
	case channels > 0 && (len(values)%channels != 0 || len(values)/channels != total):
		return nil, fmt.Errorf("pose values: have %d, want %d frames of %d channels", len(values), total, channels)
	}
	frames := make([]m2skeleton.PoseFrame, total)
	for i := range frames {
		frames[i] = m2skeleton.PoseFrame(values[i*channels : (i+1)*channels : (i+1)*channels])
	}
	return m1series.SeriesFrom(offsets.Offsets(), frames)
}

func decodeTrajectories(rawOffsets []uint64, values []float64) (*m1series.Series[TrajectoryPoint], error) {
	offsets, err := decodeOffsets(rawOffsets)
	if err != nil {
		return nil, fmt.Errorf("trajectory offsets: %w", err)
	}
	if len(values)%pointStride != 0 {
		return nil, fmt.Errorf("trajectory values: %d is not a multiple of %d", len(values), pointStride)
	}
	points := make([]TrajectoryPoint, len(values)/pointStride)
	for i := range points {
		v := values[i*pointStride:]
		points[i] = TrajectoryPoint{
			Transform: geom.Transform{
				Rotation:    quat.Number{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]},
				Translation: r3.Vec{X: v[4], Y: v[5], Z: v[6]},
			},
			Velocity: r2.Vec{X: v[7], Y: v[8]},
		}
	}
	return m1series.SeriesFrom(offsets.Offsets(), points)
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func consumeFloat(b []byte) (float64, int) {
	v, n := protowire.ConsumeFixed64(b)
	return math.Float64frombits(v), n
}

func appendPackedFloat(b []byte, num protowire.Number, vals []float64) []byte {
	if len(vals) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(8*len(vals)))
	for _, v := range vals {
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	return b
}

func consumePackedFloat(b []byte, dst []float64) ([]float64, int) {
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return dst, n
	}
	for len(raw) > 0 {
		v, m := protowire.ConsumeFixed64(raw)
		if m < 0 {
			return dst, m
		}
		dst = append(dst, math.Float64frombits(v))
		raw = raw[m:]
	}
	return dst, n
}

func appendPackedVarint(b []byte, num protowire.Number, vals []uint64) []byte {
	if len(vals) == 0 {
		return b
	}
	size := 0
	for _, v := range vals {
		size += protowire.SizeVarint(v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for _, v := range vals {
		b = protowire.AppendVarint(b, v)
	}
	return b
}

func consumePackedVarint(b []byte, dst []uint64) ([]uint64, int) {
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return dst, n
	}
	for len(raw) > 0 {
		v, m := protowire.ConsumeVarint(raw)
		if m < 0 {
			return dst, m
		}
		dst = append(dst, v)
		raw = raw[m:]
	}
	return dst, n
}

func intsToUint(vals []int) []uint64 {
	out := make([]uint64, len(vals))
	for i, v := range vals {
		out[i] = uint64(v)
	}
	return out
}

// decodeOffsets validates raw chunk offsets before anything is sized
// from them. A missing field means no chunks.
func decodeOffsets(raw []uint64) (m1series.ChunkOffsets, error) {
	if len(raw) == 0 {
		return m1series.NewChunkOffsets(), nil
	}
	offsets := make([]int, len(raw))
	for i, v := range raw {
		if v > math.MaxInt {
			return m1series.ChunkOffsets{}, fmt.Errorf("%w: offsets[%d]=%d overflows int", m1series.ErrInvalidOffsets, i, v)
		}
		offsets[i] = int(v)
	}
	return m1series.ChunkOffsetsFrom(offsets)
}
