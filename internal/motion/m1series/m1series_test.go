package m1series

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushChunk(t *testing.T) {
	co := NewChunkOffsets()
	require.NoError(t, co.PushChunk(3))
	require.NoError(t, co.PushChunk(2))

	assert.Equal(t, []int{0, 3, 5}, co.Offsets())
	assert.Equal(t, 2, co.NumChunks())

	start, end, err := co.GetChunk(0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 3}, [2]int{start, end})

	start, end, err = co.GetChunk(1)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 5}, [2]int{start, end})

	_, _, err = co.GetChunk(2)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, _, err = co.GetChunk(-1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestZeroValueOffsets(t *testing.T) {
	var co ChunkOffsets
	assert.Equal(t, 0, co.NumChunks())
	assert.Equal(t, []int{0}, co.Offsets())

	require.NoError(t, co.PushChunk(4))
	assert.Equal(t, []int{0, 4}, co.Offsets())
}

func TestPushChunkRejectsEmpty(t *testing.T) {
	co := NewChunkOffsets()
	assert.True(t, errors.Is(co.PushChunk(0), ErrEmptyChunk))
	assert.True(t, errors.Is(co.PushChunk(-2), ErrEmptyChunk))
	assert.Equal(t, 0, co.NumChunks())
}

func TestOffsetsStrictlyIncreasing(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	co := NewChunkOffsets()
	for i := 0; i < 200; i++ {
		require.NoError(t, co.PushChunk(1+rng.IntN(50)))
	}
	offs := co.Offsets()
	assert.Equal(t, 0, offs[0])
	assert.Equal(t, len(offs)-1, co.NumChunks())
	for i := 1; i < len(offs); i++ {
		assert.Greater(t, offs[i], offs[i-1])
	}
}

func TestChunkOf(t *testing.T) {
	co := NewChunkOffsets()
	require.NoError(t, co.PushChunk(3))
	require.NoError(t, co.PushChunk(2))
	require.NoError(t, co.PushChunk(1))

	tests := []struct {
		item, chunk, offset int
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 1, 0},
		{4, 1, 1},
		{5, 2, 0},
	}
	for _, tt := range tests {
		chunk, offset, err := co.ChunkOf(tt.item)
		require.NoError(t, err)
		assert.Equal(t, tt.chunk, chunk, "item %d", tt.item)
		assert.Equal(t, tt.offset, offset, "item %d", tt.item)
	}

	_, _, err := co.ChunkOf(6)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestChunkOffsetsFrom(t *testing.T) {
	_, err := ChunkOffsetsFrom([]int{0, 3, 3})
	assert.True(t, errors.Is(err, ErrInvalidOffsets))
	_, err = ChunkOffsetsFrom([]int{1, 3})
	assert.True(t, errors.Is(err, ErrInvalidOffsets))
	_, err = ChunkOffsetsFrom(nil)
	assert.True(t, errors.Is(err, ErrInvalidOffsets))

	co, err := ChunkOffsetsFrom([]int{0, 2, 7})
	require.NoError(t, err)
	assert.Equal(t, 2, co.NumChunks())
	assert.Equal(t, 7, co.Total())
}

func TestSeriesChunks(t *testing.T) {
	s := NewSeries[string]()
	require.NoError(t, s.PushChunk([]string{"a", "b", "c"}))
	require.NoError(t, s.PushChunk([]string{"d", "e"}))

	c1, err := s.Chunk(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, c1)

	// Appending to a returned chunk must not overwrite the next one.
	c0, err := s.Chunk(0)
	require.NoError(t, err)
	_ = append(c0, "x")
	c1, _ = s.Chunk(1)
	assert.Equal(t, "d", c1[0])

	item, err := s.Item(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "e", item)
	_, err = s.Item(1, 2)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = s.Item(2, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	// The iterator is restartable and yields chunks in insertion order.
	for pass := 0; pass < 2; pass++ {
		var got [][]string
		for i, items := range s.Chunks() {
			assert.Equal(t, len(got), i)
			got = append(got, items)
		}
		assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e"}}, got)
	}

	// Early break stops the iteration.
	count := 0
	for range s.Chunks() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestSeriesFrom(t *testing.T) {
	s, err := SeriesFrom([]int{0, 2, 3}, []int{10, 11, 12})
	require.NoError(t, err)
	assert.Equal(t, 2, s.NumChunks())
	assert.Equal(t, 3, s.Len())

	_, err = SeriesFrom([]int{0, 2, 4}, []int{10, 11, 12})
	assert.True(t, errors.Is(err, ErrInvalidOffsets))
}

func TestSampleClockInverse(t *testing.T) {
	clock := SampleClock{Interval: 0.016667}
	for offset := 0; offset < 1000; offset++ {
		assert.Equal(t, offset, clock.OffsetFromTime(clock.TimeFromOffset(offset)))
	}
	assert.Equal(t, 5, clock.OffsetFromTime(clock.TimeFromOffset(5)))
}

func TestSampleClockLeak(t *testing.T) {
	clock := SampleClock{Interval: 0.016667}
	assert.Equal(t, 1, clock.OffsetFromTime(0.03))
	assert.InDelta(t, 0.013333, clock.Leak(0.03), 1e-9)
	assert.InDelta(t, 0.8, clock.InterpFactor(0.03), 1e-3)

	assert.Equal(t, 0, clock.OffsetFromTime(0))
	assert.Equal(t, 0.0, clock.Leak(0))
	assert.False(t, math.IsNaN(clock.InterpFactor(1e9)))
}
