package m1series

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOutOfRange is returned for a chunk or item index beyond the stored range.
	ErrOutOfRange = errors.New("index out of range")
	// ErrEmptyChunk is returned when pushing a chunk with no items.
	ErrEmptyChunk = errors.New("chunk length must be positive")
	// ErrInvalidOffsets is returned when rebuilding offsets that are not
	// strictly increasing from zero.
	ErrInvalidOffsets = errors.New("chunk offsets must start at 0 and strictly increase")
)

// ChunkOffsets stores the cumulative boundaries of clip-grouped runs inside
// a flat array. The zero value holds no chunks.
type ChunkOffsets struct {
	offsets []int // offsets[0] == 0 once initialised
}

// NewChunkOffsets returns offsets holding no chunks.
func NewChunkOffsets() ChunkOffsets {
	return ChunkOffsets{offsets: []int{0}}
}

// ChunkOffsetsFrom rebuilds offsets from their raw form, validating that they
// start at zero and strictly increase.
func ChunkOffsetsFrom(raw []int) (ChunkOffsets, error) {
	if len(raw) == 0 || raw[0] != 0 {
		return ChunkOffsets{}, ErrInvalidOffsets
	}
	for i := 1; i < len(raw); i++ {
		if raw[i] <= raw[i-1] {
			return ChunkOffsets{}, fmt.Errorf("%w: offsets[%d]=%d after %d", ErrInvalidOffsets, i, raw[i], raw[i-1])
		}
	}
	out := make([]int, len(raw))
	copy(out, raw)
	return ChunkOffsets{offsets: out}, nil
}

func (c *ChunkOffsets) init() {
	if len(c.offsets) == 0 {
		c.offsets = []int{0}
	}
}

// PushChunk appends a boundary at last+n.
func (c *ChunkOffsets) PushChunk(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", ErrEmptyChunk, n)
	}
	c.init()
	c.offsets = append(c.offsets, c.offsets[len(c.offsets)-1]+n)
	return nil
}

// NumChunks returns len(offsets)-1.
func (c ChunkOffsets) NumChunks() int {
	if len(c.offsets) == 0 {
		return 0
	}
	return len(c.offsets) - 1
}

// Total returns the number of items covered by all chunks.
func (c ChunkOffsets) Total() int {
	if len(c.offsets) == 0 {
		return 0
	}
	return c.offsets[len(c.offsets)-1]
}

// GetChunk returns the half-open item range [start, end) of chunk i.
func (c ChunkOffsets) GetChunk(i int) (start, end int, err error) {
	if i < 0 || i >= c.NumChunks() {
		return 0, 0, fmt.Errorf("%w: chunk %d of %d", ErrOutOfRange, i, c.NumChunks())
	}
	return c.offsets[i], c.offsets[i+1], nil
}

// ChunkLen returns the number of items in chunk i.
func (c ChunkOffsets) ChunkLen(i int) (int, error) {
	start, end, err := c.GetChunk(i)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// ChunkOf maps a flat item index to its chunk and the offset inside that chunk.
func (c ChunkOffsets) ChunkOf(item int) (chunk, offset int, err error) {
	if item < 0 || item >= c.Total() {
		return 0, 0, fmt.Errorf("%w: item %d of %d", ErrOutOfRange, item, c.Total())
	}
	// First boundary strictly greater than item closes the owning chunk.
	chunk = sort.SearchInts(c.offsets, item+1) - 1
	return chunk, item - c.offsets[chunk], nil
}

// Offsets returns a copy of the raw boundaries, including the leading zero.
func (c ChunkOffsets) Offsets() []int {
	if len(c.offsets) == 0 {
		return []int{0}
	}
	out := make([]int, len(c.offsets))
	copy(out, c.offsets)
	return out
}
