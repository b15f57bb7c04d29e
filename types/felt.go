package types

import (
	"math/big"

	"github.com/NethermindEth/juno/core/crypto"
	"github.com/NethermindEth/juno/core/felt"
	"golang.org/x/crypto/sha3"
)

var (
	mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))
)

func FeltFromUint64(v uint64) *felt.Felt {
	return new(felt.Felt).SetUint64(v)
}

// FeltFromBig reduces v modulo the field prime.
func FeltFromBig(v *big.Int) *felt.Felt {
	return new(felt.Felt).SetBigInt(v)
}

func FeltToBig(f *felt.Felt) *big.Int {
	return f.BigInt(new(big.Int))
}

// FeltToUint64 returns false when f does not fit in 64 bits.
func FeltToUint64(f *felt.Felt) (uint64, bool) {
	b := FeltToBig(f)
	if !b.IsUint64() {
		return 0, false
	}

	return b.Uint64(), true
}

func FeltsFromUint64s(vs ...uint64) []*felt.Felt {
	out := make([]*felt.Felt, len(vs))
	for i, v := range vs {
		out[i] = FeltFromUint64(v)
	}

	return out
}

func FeltsEqual(a, b []*felt.Felt) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}

	return true
}

func CopyFelts(fs []*felt.Felt) []*felt.Felt {
	out := make([]*felt.Felt, len(fs))
	for i, f := range fs {
		out[i] = new(felt.Felt).Set(f)
	}

	return out
}

// ShortString encodes up to 31 ASCII characters as a felt, big-endian.
func ShortString(s string) *felt.Felt {
	return FeltFromBig(new(big.Int).SetBytes([]byte(s)))
}

// DecodeShortString is the inverse of ShortString.
func DecodeShortString(f *felt.Felt) string {
	return string(FeltToBig(f).Bytes())
}

// StarknetKeccak is keccak256 truncated to 250 bits, used for entry point
// selectors.
func StarknetKeccak(data []byte) *felt.Felt {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)

	digest := new(big.Int).SetBytes(h.Sum(nil))

	return FeltFromBig(digest.And(digest, mask250))
}

// PedersenArray hashes elems and their count.
func PedersenArray(elems ...*felt.Felt) *felt.Felt {
	return asFelt(crypto.PedersenArray(elems...))
}

// Pedersen hashes a pair.
func Pedersen(a, b *felt.Felt) *felt.Felt {
	return asFelt(crypto.Pedersen(a, b))
}

// asFelt accepts both the pointer and value results of juno hash functions.
func asFelt(v any) *felt.Felt {
	switch f := v.(type) {
	case *felt.Felt:
		return f
	case felt.Felt:
		return &f
	}

	panic("unexpected hash result type")
}
