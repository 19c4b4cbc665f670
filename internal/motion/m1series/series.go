package m1series

import (
	"fmt"
	"iter"
)

// Series is an append-only flat sequence of items grouped into chunks.
// Poses and trajectory points both use it, one chunk per source clip.
type Series[T any] struct {
	offsets ChunkOffsets
	items   []T
}

// NewSeries returns an empty series.
func NewSeries[T any]() *Series[T] {
	return &Series[T]{offsets: NewChunkOffsets()}
}

// SeriesFrom rebuilds a series from its offsets and flat items.
func SeriesFrom[T any](offsets []int, items []T) (*Series[T], error) {
	co, err := ChunkOffsetsFrom(offsets)
	if err != nil {
		return nil, err
	}
	if co.Total() != len(items) {
		return nil, fmt.Errorf("%w: offsets cover %d items, have %d", ErrInvalidOffsets, co.Total(), len(items))
	}
	return &Series[T]{offsets: co, items: items}, nil
}

// PushChunk appends items as a new chunk.
func (s *Series[T]) PushChunk(items []T) error {
	if err := s.offsets.PushChunk(len(items)); err != nil {
		return err
	}
	s.items = append(s.items, items...)
	return nil
}

// NumChunks returns the number of chunks.
func (s *Series[T]) NumChunks() int { return s.offsets.NumChunks() }

// Len returns the total number of items across all chunks.
func (s *Series[T]) Len() int { return len(s.items) }

// ChunkOffsets returns the chunk boundaries.
func (s *Series[T]) ChunkOffsets() ChunkOffsets { return s.offsets }

// Items returns the flat item slice. Callers must not modify it.
func (s *Series[T]) Items() []T { return s.items }

// Chunk returns the items of chunk i. The returned slice has its capacity
// clipped so appends cannot spill into the next chunk.
func (s *Series[T]) Chunk(i int) ([]T, error) {
	start, end, err := s.offsets.GetChunk(i)
	if err != nil {
		return nil, err
	}
	return s.items[start:end:end], nil
}

// Item returns the item at offset inside chunk.
func (s *Series[T]) Item(chunk, offset int) (T, error) {
	var zero T
	start, end, err := s.offsets.GetChunk(chunk)
	if err != nil {
		return zero, err
	}
	if offset < 0 || start+offset >= end {
		return zero, fmt.Errorf("%w: offset %d in chunk %d of length %d", ErrOutOfRange, offset, chunk, end-start)
	}
	return s.items[start+offset], nil
}

// Chunks yields (index, items) for every chunk in insertion order. The
// sequence is lazy and may be ranged over any number of times.
func (s *Series[T]) Chunks() iter.Seq2[int, []T] {
	return func(yield func(int, []T) bool) {
		for i := 0; i < s.NumChunks(); i++ {
			start, end, _ := s.offsets.GetChunk(i)
			if !yield(i, s.items[start:end:end]) {
				return
			}
		}
	}
}
