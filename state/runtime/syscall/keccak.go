package syscall

import (
	"encoding/binary"
	"math/bits"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/types"
)

var keccakRoundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808A, 0x8000000080008000,
	0x000000000000808B, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008A, 0x0000000000000088, 0x0000000080008009, 0x000000008000000A,
	0x000000008000808B, 0x800000000000008B, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800A, 0x800000008000000A,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

var keccakRotations = [25]int{
	0, 1, 62, 28, 27,
	36, 44, 6, 55, 20,
	3, 10, 43, 25, 39,
	41, 45, 15, 21, 8,
	18, 2, 61, 56, 14,
}

// keccakF1600 applies the Keccak-f[1600] permutation in place. Lane (x, y)
// is a[x+5*y].
func keccakF1600(a *[25]uint64) {
	var c, d [5]uint64

	var b [25]uint64

	for round := 0; round < 24; round++ {
		// theta
		for x := 0; x < 5; x++ {
			c[x] = a[x] ^ a[x+5] ^ a[x+10] ^ a[x+15] ^ a[x+20]
		}

		for x := 0; x < 5; x++ {
			d[x] = c[(x+4)%5] ^ bits.RotateLeft64(c[(x+1)%5], 1)
		}

		for i := 0; i < 25; i++ {
			a[i] ^= d[i%5]
		}

		// rho and pi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				b[y+5*((2*x+3*y)%5)] = bits.RotateLeft64(a[x+5*y], keccakRotations[x+5*y])
			}
		}

		// chi
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				a[x+5*y] = b[x+5*y] ^ (^b[(x+1)%5+5*y] & b[(x+2)%5+5*y])
			}
		}

		// iota
		a[0] ^= keccakRoundConstants[round]
	}
}

// keccakSponge absorbs full-rate blocks of 64-bit words and returns the
// first 32 bytes of the state as two little-endian 128-bit limbs.
func keccakSponge(words []uint64) (low, high *felt.Felt) {
	var state [25]uint64

	for start := 0; start < len(words); start += params.KeccakFullRateInU64s {
		for i, w := range words[start : start+params.KeccakFullRateInU64s] {
			state[i] ^= w
		}

		keccakF1600(&state)
	}

	var out [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(out[8*i:], state[i])
	}

	return leBytesToFelt(out[:16]), leBytesToFelt(out[16:])
}

func leBytesToFelt(le []byte) *felt.Felt {
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}

	return new(felt.Felt).SetBytes(be)
}

func feltsToWords(fs []*felt.Felt) ([]uint64, bool) {
	words := make([]uint64, len(fs))

	for i, f := range fs {
		w, ok := types.FeltToUint64(f)
		if !ok {
			return nil, false
		}

		words[i] = w
	}

	return words, true
}
