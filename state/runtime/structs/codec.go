package structs

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/types"
)

var (
	ErrInvalidFieldType = errors.New("invalid field type")
	ErrUnknownField     = errors.New("unknown field")
)

type FieldKind uint8

const (
	KindFelt FieldKind = iota
	KindPointer
)

func (k FieldKind) String() string {
	if k == KindPointer {
		return "pointer"
	}

	return "felt"
}

type Field struct {
	Name string
	Kind FieldKind
}

// F declares a felt field.
func F(name string) Field {
	return Field{Name: name, Kind: KindFelt}
}

// P declares a pointer field.
func P(name string) Field {
	return Field{Name: name, Kind: KindPointer}
}

// Layout is the flat memory layout of a Cairo struct: field i lives at
// offset i.
type Layout struct {
	Name   string
	Fields []Field
	index  map[string]int
}

func NewLayout(name string, fields ...Field) *Layout {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}

	return &Layout{Name: name, Fields: fields, index: index}
}

func (l *Layout) Size() uint64 {
	return uint64(len(l.Fields))
}

// New builds a record from positional values. Arity mismatch is a
// programming error.
func (l *Layout) New(values ...types.MaybeRelocatable) *Record {
	if len(values) != len(l.Fields) {
		panic(fmt.Sprintf("%s: expected %d values, got %d", l.Name, len(l.Fields), len(values)))
	}

	return &Record{layout: l, values: values}
}

// Record is a decoded (or to-be-encoded) instance of a Layout.
type Record struct {
	layout *Layout
	values []types.MaybeRelocatable
}

func (r *Record) Layout() *Layout {
	return r.layout
}

func (r *Record) Size() uint64 {
	return r.layout.Size()
}

func (r *Record) Values() []types.MaybeRelocatable {
	return r.values
}

func (r *Record) Get(name string) types.MaybeRelocatable {
	i, ok := r.layout.index[name]
	if !ok {
		panic(fmt.Sprintf("%v: %s.%s", ErrUnknownField, r.layout.Name, name))
	}

	return r.values[i]
}

// Felt returns a felt field of a validated record.
func (r *Record) Felt(name string) *felt.Felt {
	f, ok := r.Get(name).Felt()
	if !ok {
		panic(fmt.Sprintf("%s.%s is not a felt", r.layout.Name, name))
	}

	return f
}

// Ptr returns a pointer field of a validated record.
func (r *Record) Ptr(name string) types.Relocatable {
	p, ok := r.Get(name).Relocatable()
	if !ok {
		panic(fmt.Sprintf("%s.%s is not a pointer", r.layout.Name, name))
	}

	return p
}

// Memory is the part of VM memory the codec needs.
type Memory interface {
	GetRange(addr types.Relocatable, size uint64) ([]types.MaybeRelocatable, error)
	Write(addr types.Relocatable, values ...types.MaybeRelocatable) (types.Relocatable, error)
}

// Read decodes a record of the given layout at addr and checks every field
// holds a value of its declared kind.
func Read(layout *Layout, mem Memory, addr types.Relocatable) (*Record, error) {
	values, err := mem.GetRange(addr, layout.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", layout.Name, addr, err)
	}

	for i, f := range layout.Fields {
		ok := values[i].IsFelt()
		if f.Kind == KindPointer {
			ok = values[i].IsRelocatable()
		}

		if !ok {
			return nil, fmt.Errorf("%w: %s.%s expected %s, got %s",
				ErrInvalidFieldType, layout.Name, f.Name, f.Kind, values[i])
		}
	}

	return &Record{layout: layout, values: values}, nil
}

// Write encodes rec at addr and returns the address right after it.
func Write(mem Memory, addr types.Relocatable, rec *Record) (types.Relocatable, error) {
	end, err := mem.Write(addr, rec.values...)
	if err != nil {
		return addr, fmt.Errorf("write %s at %s: %w", rec.layout.Name, addr, err)
	}

	return end, nil
}
