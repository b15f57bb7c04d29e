package types

import (
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCallInfo() *CallInfo {
	leaf := &CallInfo{
		CallerAddress:      FeltFromUint64(2),
		CallType:           CallTypeDelegate,
		ContractAddress:    FeltFromUint64(2),
		ClassHash:          FeltFromUint64(0xc1a55),
		EntryPointSelector: FeltFromUint64(7),
		EntryPointType:     EntryPointTypeExternal,
		Retdata:            FeltsFromUint64s(1),
		GasConsumed:        300,
	}

	ctor := EmptyConstructorCall(FeltFromUint64(99), FeltFromUint64(2), FeltFromUint64(0xc1a55))

	mid := &CallInfo{
		CallerAddress:      FeltFromUint64(1),
		CallType:           CallTypeCall,
		ContractAddress:    FeltFromUint64(2),
		ClassHash:          FeltFromUint64(0xc1a55),
		EntryPointSelector: FeltFromUint64(5),
		EntryPointType:     EntryPointTypeExternal,
		Calldata:           FeltsFromUint64s(10, 20),
		Retdata:            FeltsFromUint64s(30),
		InitialGas:         5000,
		GasConsumed:        1000,
		Failed:             true,
		Resources: ExecutionResources{
			NSteps:                 42,
			BuiltinInstanceCounter: map[string]uint64{"range_check": 3, "pedersen": 1},
		},
		Events: []OrderedEvent{
			{Order: 0, EventContent: EventContent{Keys: FeltsFromUint64s(1, 2), Data: FeltsFromUint64s(9)}},
		},
		L2ToL1Messages: []OrderedL2ToL1Message{
			{Order: 0, ToAddress: FeltFromUint64(0xe7), Payload: FeltsFromUint64s(4)},
		},
		StorageReadValues:   FeltsFromUint64s(0, 42),
		AccessedStorageKeys: FeltsFromUint64s(5),
		InternalCalls:       []*CallInfo{leaf, ctor},
	}

	return &CallInfo{
		CallerAddress:      new(felt.Felt),
		CallType:           CallTypeCall,
		ContractAddress:    FeltFromUint64(1),
		ClassHash:          FeltFromUint64(0xabc),
		EntryPointSelector: FeltFromUint64(3),
		EntryPointType:     EntryPointTypeExternal,
		InternalCalls:      []*CallInfo{mid},
	}
}

func TestCallInfoFlattenIsPreOrder(t *testing.T) {
	root := sampleCallInfo()
	mid := root.InternalCalls[0]

	flat := root.Flatten()
	require.Len(t, flat, 4)

	assert.Same(t, root, flat[0])
	assert.Same(t, mid, flat[1])
	assert.Same(t, mid.InternalCalls[0], flat[2])
	assert.Same(t, mid.InternalCalls[1], flat[3])
	assert.True(t, flat[3].IsConstructor())
}

func TestTransactionExecutionInfoRLP(t *testing.T) {
	info := &TransactionExecutionInfo{
		ValidateInfo:    sampleCallInfo(),
		FeeTransferInfo: sampleCallInfo(),
		ActualFee:       12345,
		ActualResources: map[string]uint64{"n_steps": 100, "l1_gas_usage": 7},
		TxType:          "INVOKE_FUNCTION",
	}

	decoded := &TransactionExecutionInfo{}
	require.NoError(t, decoded.UnmarshalRLP(info.MarshalRLP()))

	assert.Nil(t, decoded.CallInfo)
	assert.Equal(t, info.ActualFee, decoded.ActualFee)
	assert.Equal(t, info.ActualResources, decoded.ActualResources)
	assert.Equal(t, info.TxType, decoded.TxType)
	assert.Len(t, decoded.NonOptionalCalls(), 2)

	want := info.FlattenCalls()
	got := decoded.FlattenCalls()
	require.Len(t, got, len(want))

	for i := range want {
		assert.Equal(t, want[i].MarshalRLP(), got[i].MarshalRLP())
	}

	mid := got[1]
	assert.True(t, mid.Failed)
	assert.Equal(t, uint64(5000), mid.InitialGas)
	assert.Equal(t, uint64(3), mid.Resources.BuiltinInstanceCounter["range_check"])
	assert.True(t, FeltsEqual(FeltsFromUint64s(1, 2), mid.Events[0].Keys))
	assert.Equal(t, "0xe7", mid.L2ToL1Messages[0].ToAddress.String())
	assert.Nil(t, got[3].Calldata)
}

func TestCallInfoRLPRejectsTruncatedInput(t *testing.T) {
	buf := sampleCallInfo().MarshalRLP()

	assert.Error(t, (&CallInfo{}).UnmarshalRLP(buf[:len(buf)/2]))
}

func TestSortedEvents(t *testing.T) {
	event := func(order uint64) OrderedEvent {
		return OrderedEvent{Order: order, EventContent: EventContent{Data: FeltsFromUint64s(order)}}
	}

	root := &CallInfo{
		ContractAddress: FeltFromUint64(1),
		Events:          []OrderedEvent{event(0), event(3)},
		InternalCalls: []*CallInfo{
			{ContractAddress: FeltFromUint64(2), Events: []OrderedEvent{event(1)}},
			{ContractAddress: FeltFromUint64(3), Events: []OrderedEvent{event(2)}, Failed: true},
			{ContractAddress: FeltFromUint64(4), Events: []OrderedEvent{event(4)}},
		},
	}

	events := root.SortedEvents()
	require.Len(t, events, 4)

	orders := make([]uint64, len(events))
	for i, ev := range events {
		orders[i] = ev.Order
	}

	assert.Equal(t, []uint64{0, 1, 3, 4}, orders)
	assert.True(t, FeltFromUint64(2).Equal(events[1].FromAddress))
}

func TestCallInfoSkipped(t *testing.T) {
	empty := EmptyConstructorCall(FeltFromUint64(99), FeltFromUint64(2), FeltFromUint64(0xc1a55))
	assert.True(t, empty.Skipped())

	// a constructor that ran without consuming steps still ran
	ran := &CallInfo{
		ContractAddress:    FeltFromUint64(99),
		ClassHash:          FeltFromUint64(0xc1a55),
		EntryPointSelector: ConstructorSelector,
		EntryPointType:     EntryPointTypeConstructor,
	}
	assert.False(t, ran.Skipped())

	decoded := &CallInfo{}
	require.NoError(t, decoded.UnmarshalRLP(empty.MarshalRLP()))
	assert.True(t, decoded.Skipped())

	decoded = &CallInfo{}
	require.NoError(t, decoded.UnmarshalRLP(ran.MarshalRLP()))
	assert.False(t, decoded.Skipped())
}
