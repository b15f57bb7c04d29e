package memory

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/types"
)

var (
	ErrUnknownSegment = errors.New("unknown segment")
	ErrUnknownCell    = errors.New("memory cell is not initialized")
	ErrInconsistent   = errors.New("inconsistent memory assignment")
	ErrNotFelt        = errors.New("memory cell does not hold a felt")
)

type segment struct {
	cells    []*types.MaybeRelocatable
	accessed map[uint64]struct{}
}

func (s *segment) usedSize() uint64 {
	return uint64(len(s.cells))
}

// SegmentManager is a write-once, segmented VM memory.
type SegmentManager struct {
	segments     []*segment
	tempSegments []*segment
}

func NewSegmentManager() *SegmentManager {
	return &SegmentManager{}
}

// Add creates a new segment and returns its base.
func (m *SegmentManager) Add() types.Relocatable {
	m.segments = append(m.segments, &segment{accessed: make(map[uint64]struct{})})

	return types.NewRelocatable(len(m.segments)-1, 0)
}

// AddTempSegment creates a temporary segment; its index is negative.
func (m *SegmentManager) AddTempSegment() types.Relocatable {
	m.tempSegments = append(m.tempSegments, &segment{accessed: make(map[uint64]struct{})})

	return types.NewRelocatable(-len(m.tempSegments), 0)
}

func (m *SegmentManager) NumSegments() int {
	return len(m.segments)
}

func (m *SegmentManager) segment(index int) (*segment, error) {
	switch {
	case index >= 0 && index < len(m.segments):
		return m.segments[index], nil
	case index < 0 && -index <= len(m.tempSegments):
		return m.tempSegments[-index-1], nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSegment, index)
	}
}

// Write stores values starting at addr and returns the address right after
// the last one. A cell may be rewritten only with the value it already holds.
func (m *SegmentManager) Write(addr types.Relocatable, values ...types.MaybeRelocatable) (types.Relocatable, error) {
	seg, err := m.segment(addr.SegmentIndex)
	if err != nil {
		return addr, err
	}

	for i, v := range values {
		offset := addr.Offset + uint64(i)

		for uint64(len(seg.cells)) <= offset {
			seg.cells = append(seg.cells, nil)
		}

		if old := seg.cells[offset]; old != nil {
			if !old.Equal(v) {
				return addr, fmt.Errorf("%w at %s: %s != %s", ErrInconsistent, addr.Add(uint64(i)), old, v)
			}

			continue
		}

		value := v
		seg.cells[offset] = &value
	}

	return addr.Add(uint64(len(values))), nil
}

// WriteFelts stores a felt array starting at addr.
func (m *SegmentManager) WriteFelts(addr types.Relocatable, fs []*felt.Felt) (types.Relocatable, error) {
	values := make([]types.MaybeRelocatable, len(fs))
	for i, f := range fs {
		values[i] = types.FeltValue(f)
	}

	return m.Write(addr, values...)
}

func (m *SegmentManager) Get(addr types.Relocatable) (types.MaybeRelocatable, error) {
	seg, err := m.segment(addr.SegmentIndex)
	if err != nil {
		return types.MaybeRelocatable{}, err
	}

	if addr.Offset >= seg.usedSize() || seg.cells[addr.Offset] == nil {
		return types.MaybeRelocatable{}, fmt.Errorf("%w: %s", ErrUnknownCell, addr)
	}

	return *seg.cells[addr.Offset], nil
}

// GetRange reads size consecutive initialized cells. The range must lie
// within the written part of the segment.
func (m *SegmentManager) GetRange(addr types.Relocatable, size uint64) ([]types.MaybeRelocatable, error) {
	seg, err := m.segment(addr.SegmentIndex)
	if err != nil {
		return nil, err
	}

	if used := seg.usedSize(); addr.Offset > used || size > used-addr.Offset {
		return nil, fmt.Errorf("%w: %d cells from %s past segment end", ErrUnknownCell, size, addr)
	}

	out := make([]types.MaybeRelocatable, size)

	for i := uint64(0); i < size; i++ {
		v, err := m.Get(addr.Add(i))
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func (m *SegmentManager) GetFelt(addr types.Relocatable) (*felt.Felt, error) {
	v, err := m.Get(addr)
	if err != nil {
		return nil, err
	}

	f, ok := v.Felt()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFelt, addr)
	}

	return f, nil
}

// GetSegmentUsedSize is one past the highest written offset of the segment.
func (m *SegmentManager) GetSegmentUsedSize(index int) (uint64, error) {
	seg, err := m.segment(index)
	if err != nil {
		return 0, err
	}

	return seg.usedSize(), nil
}

// MarkAsAccessed flags size cells from addr as read by the program.
func (m *SegmentManager) MarkAsAccessed(addr types.Relocatable, size uint64) error {
	seg, err := m.segment(addr.SegmentIndex)
	if err != nil {
		return err
	}

	for i := uint64(0); i < size; i++ {
		seg.accessed[addr.Offset+i] = struct{}{}
	}

	return nil
}

// IsAccessed reports whether the cell at addr was marked as accessed.
func (m *SegmentManager) IsAccessed(addr types.Relocatable) bool {
	seg, err := m.segment(addr.SegmentIndex)
	if err != nil {
		return false
	}

	_, ok := seg.accessed[addr.Offset]

	return ok
}
