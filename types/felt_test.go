package types

import (
	"math/big"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortString(t *testing.T) {
	f := ShortString("Out of gas")

	assert.Equal(t, "0x4f7574206f6620676173", f.String())
	assert.Equal(t, "Out of gas", DecodeShortString(f))
}

func TestConstructorSelector(t *testing.T) {
	assert.Equal(t,
		"0x28ffe4ff0f226a9107253e17a904099aa4f63a02a5621de0576e5aa71bc5194",
		ConstructorSelector.String(),
	)
}

func TestFeltToUint64(t *testing.T) {
	v, ok := FeltToUint64(FeltFromUint64(1 << 63))
	require.True(t, ok)
	assert.Equal(t, uint64(1<<63), v)

	big65 := new(big.Int).Lsh(big.NewInt(1), 64)
	_, ok = FeltToUint64(FeltFromBig(big65))
	assert.False(t, ok)
}

func TestRelocatableSub(t *testing.T) {
	a := NewRelocatable(3, 10)

	n, err := a.Add(5).Sub(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	_, err = a.Sub(a.Add(1))
	assert.ErrorIs(t, err, ErrNegativeOffset)

	_, err = a.Sub(NewRelocatable(4, 0))
	assert.ErrorIs(t, err, ErrDifferentSegments)
}

func TestMaybeRelocatable(t *testing.T) {
	f := Uint64Value(7)
	p := PtrValue(NewRelocatable(-1, 2))

	assert.True(t, f.IsFelt())
	assert.False(t, f.IsRelocatable())
	assert.True(t, p.IsRelocatable())
	assert.True(t, p.Equal(PtrValue(NewRelocatable(-1, 2))))
	assert.False(t, p.Equal(f))

	r, ok := p.Relocatable()
	require.True(t, ok)
	assert.True(t, r.IsTemp())
	assert.Equal(t, "-1:2", r.String())
}

func TestCalculateContractAddressFromHash(t *testing.T) {
	salt := FeltFromUint64(17)
	classHash := FeltFromUint64(0xc1a55)
	calldata := FeltsFromUint64s(1, 2, 3)

	a1 := CalculateContractAddressFromHash(salt, classHash, calldata, new(felt.Felt))
	a2 := CalculateContractAddressFromHash(salt, classHash, calldata, new(felt.Felt))
	a3 := CalculateContractAddressFromHash(salt, classHash, calldata, FeltFromUint64(5))

	assert.True(t, a1.Equal(a2))
	assert.False(t, a1.Equal(a3))
	assert.Negative(t, FeltToBig(a1).Cmp(L2AddressUpperBound))
}
