package structs

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunvim/starkos/state/runtime/memory"
	"github.com/sunvim/starkos/types"
)

func TestReadWriteRecord(t *testing.T) {
	mem := memory.NewSegmentManager()
	base := mem.Add()
	data := mem.Add()

	rec := EmitEventRequest.New(
		types.PtrValue(data), types.PtrValue(data.Add(2)),
		types.PtrValue(data.Add(2)), types.PtrValue(data.Add(3)),
	)

	end, err := Write(mem, base, rec)
	require.NoError(t, err)
	assert.Equal(t, base.Add(EmitEventRequest.Size()), end)

	got, err := Read(EmitEventRequest, mem, base)
	require.NoError(t, err)
	assert.Equal(t, data.Add(2), got.Ptr("keys_end"))
	assert.Equal(t, data.Add(3), got.Ptr("data_end"))
}

func TestReadRejectsWrongFieldKind(t *testing.T) {
	testCases := []struct {
		name   string
		layout *Layout
		values []types.MaybeRelocatable
	}{
		{
			name:   "felt where pointer expected",
			layout: KeccakRequest,
			values: []types.MaybeRelocatable{types.Uint64Value(1), types.Uint64Value(2)},
		},
		{
			name:   "pointer where felt expected",
			layout: StorageReadRequest,
			values: []types.MaybeRelocatable{types.Uint64Value(0), types.PtrValue(types.NewRelocatable(0, 0))},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mem := memory.NewSegmentManager()
			base := mem.Add()

			_, err := mem.Write(base, tc.values...)
			require.NoError(t, err)

			_, err = Read(tc.layout, mem, base)
			assert.ErrorIs(t, err, ErrInvalidFieldType)
		})
	}
}

func TestReadUninitialized(t *testing.T) {
	mem := memory.NewSegmentManager()
	base := mem.Add()

	_, err := Read(RequestHeader, mem, base)
	assert.ErrorIs(t, err, memory.ErrUnknownCell)
}

func TestLayoutNewArityPanics(t *testing.T) {
	assert.Panics(t, func() {
		ResponseHeader.New(types.Uint64Value(1))
	})
}

func TestUint256Limbs(t *testing.T) {
	v, ok := new(big.Int).SetString("fedcba9876543210fedcba9876543210"+"0123456789abcdef0123456789abcdef", 16)
	require.True(t, ok)

	low, high := SplitUint256(uint256.MustFromBig(v))
	assert.Equal(t, "0x123456789abcdef0123456789abcdef", low.String())
	assert.Equal(t, "0xfedcba9876543210fedcba9876543210", high.String())
	assert.Equal(t, 0, v.Cmp(JoinUint256(low, high)))
}
