package structs

import (
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"

	"github.com/sunvim/starkos/types"
)

var mask128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// JoinUint256 computes high * 2**128 + low. Limbs are felts, so the result
// may exceed 256 bits; callers range-check it.
func JoinUint256(low, high *felt.Felt) *big.Int {
	v := new(big.Int).Lsh(types.FeltToBig(high), 128)

	return v.Add(v, types.FeltToBig(low))
}

// SplitUint256 returns the low and high 128-bit limbs of v.
func SplitUint256(v *uint256.Int) (low, high *felt.Felt) {
	lo := new(uint256.Int).And(v, mask128)
	hi := new(uint256.Int).Rsh(v, 128)

	return types.FeltFromBig(lo.ToBig()), types.FeltFromBig(hi.ToBig())
}

// SplitBig is SplitUint256 for a value known to fit in 256 bits.
func SplitBig(v *big.Int) (low, high *felt.Felt) {
	return SplitUint256(uint256.MustFromBig(v))
}

// Uint256Values returns the two limbs of v as memory values.
func Uint256Values(v *big.Int) (low, high types.MaybeRelocatable) {
	lo, hi := SplitBig(v)

	return types.FeltValue(lo), types.FeltValue(hi)
}
