package syscall

import (
	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/types"
)

type readOnlySegment struct {
	start types.Relocatable
	size  uint64
}

// ReadOnlySegments records segments a handler filled for the program, so
// that writes past their end can be detected once the run is over.
type ReadOnlySegments struct {
	segments Segments
	entries  []readOnlySegment
}

func NewReadOnlySegments(segments Segments) *ReadOnlySegments {
	return &ReadOnlySegments{segments: segments}
}

// Allocate creates a new segment holding data and records it.
func (r *ReadOnlySegments) Allocate(data []types.MaybeRelocatable) (types.Relocatable, error) {
	start := r.segments.Add()

	end, err := r.segments.Write(start, data...)
	if err != nil {
		return start, err
	}

	size, err := end.Sub(start)
	if err != nil {
		return start, err
	}

	r.entries = append(r.entries, readOnlySegment{start: start, size: size})

	return start, nil
}

func (r *ReadOnlySegments) AllocateFelts(data []*felt.Felt) (types.Relocatable, error) {
	return r.Allocate(feltValues(data))
}

func (r *ReadOnlySegments) Len() int {
	return len(r.entries)
}

// Validate checks no recorded segment grew past its allocated size, and
// marks every recorded segment as accessed.
func (r *ReadOnlySegments) Validate(runner Runner) error {
	for _, e := range r.entries {
		used, err := r.segments.GetSegmentUsedSize(e.start.SegmentIndex)
		if err != nil {
			return err
		}

		if used != e.size {
			return NewStarknetError(CodeSecurityError,
				"out of bounds write to a read-only segment %d: used %d, allocated %d",
				e.start.SegmentIndex, used, e.size)
		}

		if err := runner.MarkAsAccessed(e.start, e.size); err != nil {
			return err
		}
	}

	return nil
}

func feltValues(fs []*felt.Felt) []types.MaybeRelocatable {
	values := make([]types.MaybeRelocatable, len(fs))
	for i, f := range fs {
		values[i] = types.FeltValue(f)
	}

	return values
}
