package types

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
)

var (
	ErrDifferentSegments = errors.New("pointers belong to different segments")
	ErrNegativeOffset    = errors.New("pointer difference is negative")
)

// Relocatable is a pointer into VM memory. Temporary segments have a
// negative index.
type Relocatable struct {
	SegmentIndex int
	Offset       uint64
}

func NewRelocatable(segment int, offset uint64) Relocatable {
	return Relocatable{SegmentIndex: segment, Offset: offset}
}

func (r Relocatable) Add(n uint64) Relocatable {
	return Relocatable{SegmentIndex: r.SegmentIndex, Offset: r.Offset + n}
}

// Sub returns r - other when both point into the same segment and r is not
// before other.
func (r Relocatable) Sub(other Relocatable) (uint64, error) {
	if r.SegmentIndex != other.SegmentIndex {
		return 0, fmt.Errorf("%w: %s - %s", ErrDifferentSegments, r, other)
	}

	if r.Offset < other.Offset {
		return 0, fmt.Errorf("%w: %s - %s", ErrNegativeOffset, r, other)
	}

	return r.Offset - other.Offset, nil
}

func (r Relocatable) IsTemp() bool {
	return r.SegmentIndex < 0
}

func (r Relocatable) String() string {
	return fmt.Sprintf("%d:%d", r.SegmentIndex, r.Offset)
}

// MaybeRelocatable is the content of one memory cell: a felt or a pointer.
type MaybeRelocatable struct {
	felt *felt.Felt
	ptr  *Relocatable
}

func FeltValue(f *felt.Felt) MaybeRelocatable {
	return MaybeRelocatable{felt: f}
}

func Uint64Value(v uint64) MaybeRelocatable {
	return MaybeRelocatable{felt: FeltFromUint64(v)}
}

func PtrValue(r Relocatable) MaybeRelocatable {
	return MaybeRelocatable{ptr: &r}
}

func (m MaybeRelocatable) IsFelt() bool {
	return m.felt != nil
}

func (m MaybeRelocatable) IsRelocatable() bool {
	return m.ptr != nil
}

// Felt returns the felt held by the cell, or false if the cell holds a pointer.
func (m MaybeRelocatable) Felt() (*felt.Felt, bool) {
	return m.felt, m.felt != nil
}

// Relocatable returns the pointer held by the cell, or false if the cell
// holds a felt.
func (m MaybeRelocatable) Relocatable() (Relocatable, bool) {
	if m.ptr == nil {
		return Relocatable{}, false
	}

	return *m.ptr, true
}

func (m MaybeRelocatable) Equal(other MaybeRelocatable) bool {
	switch {
	case m.felt != nil && other.felt != nil:
		return m.felt.Equal(other.felt)
	case m.ptr != nil && other.ptr != nil:
		return *m.ptr == *other.ptr
	default:
		return m.felt == nil && m.ptr == nil && other.felt == nil && other.ptr == nil
	}
}

func (m MaybeRelocatable) String() string {
	switch {
	case m.felt != nil:
		return m.felt.String()
	case m.ptr != nil:
		return m.ptr.String()
	default:
		return "<empty>"
	}
}
