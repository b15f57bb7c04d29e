package types

import (
	"sort"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/dogechain-lab/fastrlp"
)

type RLPMarshaler interface {
	MarshalRLPTo(dst []byte) []byte
}

type marshalRLPFunc func(ar *fastrlp.Arena) *fastrlp.Value

func MarshalRLPTo(obj marshalRLPFunc, dst []byte) []byte {
	ar := fastrlp.DefaultArenaPool.Get()
	dst = obj(ar).MarshalTo(dst)
	fastrlp.DefaultArenaPool.Put(ar)

	return dst
}

// marshalFelt encodes a nil felt as empty bytes and any other felt as its
// 32-byte big-endian form.
func marshalFelt(a *fastrlp.Arena, f *felt.Felt) *fastrlp.Value {
	if f == nil {
		return a.NewNull()
	}

	b := f.Bytes()

	return a.NewCopyBytes(b[:])
}

func marshalFelts(a *fastrlp.Arena, fs []*felt.Felt) *fastrlp.Value {
	if len(fs) == 0 {
		return a.NewNullArray()
	}

	vv := a.NewArray()
	for _, f := range fs {
		vv.Set(marshalFelt(a, f))
	}

	return vv
}

// marshalCounter encodes a name->count map as a list of pairs sorted by name.
func marshalCounter(a *fastrlp.Arena, m map[string]uint64) *fastrlp.Value {
	if len(m) == 0 {
		return a.NewNullArray()
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	vv := a.NewArray()

	for _, name := range names {
		pair := a.NewArray()
		pair.Set(a.NewCopyBytes([]byte(name)))
		pair.Set(a.NewUint(m[name]))
		vv.Set(pair)
	}

	return vv
}

func marshalBool(a *fastrlp.Arena, b bool) *fastrlp.Value {
	if b {
		return a.NewUint(1)
	}

	return a.NewUint(0)
}
