package syscall_test

import (
	"context"
	"errors"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/memory"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/state/runtime/syscall/syscalltest"
	"github.com/sunvim/starkos/types"
)

var blockHashContract = types.FeltFromUint64(params.BlockHashContractAddress)

type mapStorage struct {
	address *felt.Felt
	values  map[felt.Felt]*felt.Felt
	err     error
}

func newMapStorage(address *felt.Felt, kv ...uint64) *mapStorage {
	s := &mapStorage{address: address, values: make(map[felt.Felt]*felt.Felt)}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[*types.FeltFromUint64(kv[i])] = types.FeltFromUint64(kv[i+1])
	}

	return s
}

func (s *mapStorage) Read(key *felt.Felt) (*felt.Felt, bool) {
	v, ok := s.values[*key]

	return v, ok
}

func (s *mapStorage) ComputeCommitment(ctx context.Context) (*types.StorageCommitment, error) {
	if s.err != nil {
		return nil, s.err
	}

	return &types.StorageCommitment{
		ContractAddress: s.address,
		PreviousRoot:    new(felt.Felt),
		UpdatedRoot:     types.FeltFromUint64(uint64(len(s.values))),
	}, ctx.Err()
}

func osStorages(storages ...*mapStorage) map[felt.Felt]syscall.OsStorage {
	out := make(map[felt.Felt]syscall.OsStorage, len(storages))
	for _, s := range storages {
		out[*s.address] = s
	}

	return out
}

// recordedTx is an invoke whose call read key 5 (value 42), called another
// contract and deployed a contract without a constructor.
func recordedTx() (*types.TransactionExecutionInfo, *felt.Felt) {
	deployed := types.FeltFromUint64(0xd0)

	inner := &types.CallInfo{
		CallType:           types.CallTypeCall,
		ContractAddress:    types.FeltFromUint64(0x777),
		EntryPointSelector: selectorFoo,
		EntryPointType:     types.EntryPointTypeExternal,
		CallerAddress:      contractAddr,
		Retdata:            types.FeltsFromUint64s(7, 8),
		GasConsumed:        500,
		Resources:          types.ExecutionResources{NSteps: 10},
	}

	ctor := types.EmptyConstructorCall(deployed, contractAddr, classNoCtor)

	outer := &types.CallInfo{
		CallType:           types.CallTypeCall,
		ContractAddress:    contractAddr,
		EntryPointSelector: selectorFoo,
		EntryPointType:     types.EntryPointTypeExternal,
		CallerAddress:      callerAddr,
		StorageReadValues:  types.FeltsFromUint64s(42),
		InternalCalls:      []*types.CallInfo{inner, ctor},
		Resources:          types.ExecutionResources{NSteps: 100},
	}

	return &types.TransactionExecutionInfo{CallInfo: outer}, deployed
}

type osEnv struct {
	segments *memory.SegmentManager
	helper   *syscall.ExecutionHelper
	handler  *syscall.OsHandler
}

func newOsEnv(t *testing.T, txs ...*types.TransactionExecutionInfo) *osEnv {
	t.Helper()

	block := &types.BlockInfo{BlockNumber: 1000, BlockTimestamp: 1_700_003_599}
	storages := osStorages(
		newMapStorage(blockHashContract, 990, 0xb10c, 985, 0xb0b),
		newMapStorage(contractAddr, 5, 42),
	)

	helper, err := syscall.NewExecutionHelper(txs, storages, block, nil)
	require.NoError(t, err)

	segments := memory.NewSegmentManager()

	return &osEnv{
		segments: segments,
		helper:   helper,
		handler:  syscall.NewOsHandler(helper, segments, nil, nil),
	}
}

func TestOsReplay(t *testing.T) {
	tx, deployed := recordedTx()
	env := newOsEnv(t, tx)

	require.NoError(t, env.helper.StartTx(nil))

	infoPtr, err := env.handler.AllocateExecutionInfo(&syscall.ExecutionInfoParams{
		Block:      env.helper.BlockInfo(),
		Tx:         types.NewTransactionExecutionContext(accountAddress, nil, nil, nil, nil, nil, 0, types.ExecutionModeGeneral),
		EntryPoint: &types.CallEntryPoint{ContractAddress: contractAddr, CallerAddress: callerAddr, EntryPointSelector: selectorFoo},
		Config:     params.DefaultGeneralConfig(),
	})
	require.NoError(t, err)

	require.NoError(t, env.helper.EnterCall(&infoPtr))

	ptr := env.segments.Add()
	require.NoError(t, env.handler.SetSyscallPtr(ptr))

	client := syscalltest.NewClient(env.segments, env.handler, ptr, testGas)

	read, err := client.StorageRead(types.FeltFromUint64(5))
	require.NoError(t, err)
	assert.Equal(t, types.FeltFromUint64(42), read.Body.Felt("value"))

	_, err = client.StorageWrite(types.FeltFromUint64(5), types.FeltFromUint64(43))
	require.NoError(t, err)

	call, err := client.CallContract(types.FeltFromUint64(0x777), selectorFoo, nil)
	require.NoError(t, err)
	assert.False(t, call.Failed)
	assert.Equal(t, types.FeltsFromUint64s(7, 8), call.Data)
	assert.Equal(t, read.Gas-params.RequiredGas("storage_write")-params.RequiredGas("call_contract")-500, call.Gas)
	assert.True(t, call.Body.Ptr("retdata_start").IsTemp())

	deploy, err := client.Deploy(classNoCtor, types.FeltFromUint64(1), nil, false)
	require.NoError(t, err)
	assert.Equal(t, deployed, deploy.Body.Felt("contract_address"))

	info, err := client.GetExecutionInfo()
	require.NoError(t, err)
	assert.Equal(t, infoPtr, info.Body.Ptr("execution_info"))

	hash, err := client.GetBlockHash(985)
	require.NoError(t, err)
	assert.Equal(t, types.FeltFromUint64(0xb0b), hash.Body.Felt("block_hash"))

	_, err = client.EmitEvent(types.FeltsFromUint64s(1), nil)
	require.NoError(t, err)

	require.NoError(t, env.handler.ValidateAndDiscardSyscallPtr(client.Ptr()))
	require.NoError(t, env.helper.ExitCall())

	// The inner call and the constructor ran no syscalls of their own.
	require.NoError(t, env.helper.SkipCall())
	require.NoError(t, env.helper.SkipCall())

	require.NoError(t, env.helper.EndTx())
	require.NoError(t, env.helper.CheckTxsExhausted())

	counter := env.handler.SyscallCounter()
	assert.Equal(t, uint64(1), counter["storage_read"])
	assert.Equal(t, uint64(1), counter["call_contract"])
	assert.Equal(t, uint64(1), counter["deploy"])
	assert.Equal(t, uint64(1), counter["emit_event"])
}

func TestOsReplayExhaustion(t *testing.T) {
	tx, _ := recordedTx()
	env := newOsEnv(t, tx)

	require.NoError(t, env.helper.StartTx(nil))
	require.NoError(t, env.helper.EnterCall(nil))

	ptr := env.segments.Add()
	require.NoError(t, env.handler.SetSyscallPtr(ptr))

	client := syscalltest.NewClient(env.segments, env.handler, ptr, testGas)

	_, err := client.StorageRead(types.FeltFromUint64(5))
	require.NoError(t, err)

	_, err = client.StorageRead(types.FeltFromUint64(5))
	assert.ErrorIs(t, err, syscall.ErrIteratorExhausted)

	_, err = client.GetExecutionInfo()
	assert.ErrorIs(t, err, syscall.ErrExecutionInfoPtrNotSet)

	// Two recorded inner calls were never replayed.
	err = env.helper.ExitCall()
	assert.ErrorIs(t, err, syscall.ErrIteratorNotExhausted)
}

func TestOsTxLifecycle(t *testing.T) {
	leaf := func(selector uint64) *types.CallInfo {
		return &types.CallInfo{
			ContractAddress:    contractAddr,
			EntryPointSelector: types.FeltFromUint64(selector),
			EntryPointType:     types.EntryPointTypeExternal,
		}
	}

	tx := &types.TransactionExecutionInfo{ValidateInfo: leaf(1), CallInfo: leaf(2)}
	env := newOsEnv(t, tx, &types.TransactionExecutionInfo{})

	require.NoError(t, env.helper.StartTx(nil))
	assert.ErrorIs(t, env.helper.StartTx(nil), syscall.ErrAlreadyInTx)

	_, err := env.helper.TxInfoPtr()
	assert.ErrorIs(t, err, syscall.ErrNotInTx)

	assert.ErrorIs(t, env.helper.EndTx(), syscall.ErrIteratorNotExhausted)
	assert.ErrorIs(t, env.helper.CheckTxsExhausted(), syscall.ErrIteratorNotExhausted)

	require.NoError(t, env.helper.EnterCall(nil))

	call, err := env.helper.CallInfo()
	require.NoError(t, err)
	assert.Equal(t, types.FeltFromUint64(1), call.EntryPointSelector)
	assert.ErrorIs(t, env.helper.EnterCall(nil), syscall.ErrAlreadyInCall)

	require.NoError(t, env.helper.ExitCall())
	assert.ErrorIs(t, env.helper.ExitCall(), syscall.ErrNotInCall)
	require.NoError(t, env.helper.SkipCall())

	_, err = env.helper.CallInfo()
	assert.ErrorIs(t, err, syscall.ErrNotInCall)
	assert.ErrorIs(t, env.helper.SkipCall(), syscall.ErrIteratorExhausted)

	require.NoError(t, env.helper.EndTx())
	require.NoError(t, env.helper.SkipTx())
	require.NoError(t, env.helper.CheckTxsExhausted())

	assert.ErrorIs(t, env.helper.SkipTx(), syscall.ErrIteratorExhausted)
}

func TestOsSyscallPtr(t *testing.T) {
	env := newOsEnv(t)

	ptr := env.segments.Add()

	assert.ErrorIs(t, env.handler.Syscall(ptr), syscall.ErrSyscallPtrNotSet)

	require.NoError(t, env.handler.SetSyscallPtr(ptr))
	assert.ErrorIs(t, env.handler.SetSyscallPtr(ptr), syscall.ErrSyscallPtrAlreadySet)

	assert.ErrorIs(t, env.handler.ValidateAndDiscardSyscallPtr(ptr.Add(1)), syscall.ErrSyscallPtrMismatch)
	require.NoError(t, env.handler.ValidateAndDiscardSyscallPtr(ptr))
	require.NoError(t, env.handler.SetSyscallPtr(ptr))
}

func TestOsBlockHashes(t *testing.T) {
	env := newOsEnv(t)

	number, hash, err := env.helper.OldBlockNumberAndHash()
	require.NoError(t, err)
	assert.Equal(t, uint64(990), number)
	assert.Equal(t, types.FeltFromUint64(0xb10c), hash)

	helper, err := syscall.NewExecutionHelper(nil, nil, &types.BlockInfo{BlockNumber: 3}, nil)
	require.NoError(t, err)

	_, _, err = helper.OldBlockNumberAndHash()
	assert.ErrorIs(t, err, syscall.ErrNoOldBlockHash)

	_, err = syscall.NewExecutionHelper(nil, nil, &types.BlockInfo{BlockNumber: 1000}, nil)
	assert.ErrorIs(t, err, syscall.ErrMissingStorage)

	_, err = syscall.NewExecutionHelper(nil, osStorages(newMapStorage(blockHashContract)),
		&types.BlockInfo{BlockNumber: 1000}, nil)
	assert.ErrorIs(t, err, syscall.ErrMissingStorage)
}

func TestOsDASegment(t *testing.T) {
	env := newOsEnv(t)

	_, err := env.helper.DASegment()
	assert.ErrorIs(t, err, syscall.ErrDASegmentNotSet)

	segment := types.FeltsFromUint64s(1, 2, 3)
	require.NoError(t, env.helper.StoreDASegment(segment))
	assert.ErrorIs(t, env.helper.StoreDASegment(segment), syscall.ErrDASegmentAlreadySet)

	stored, err := env.helper.DASegment()
	require.NoError(t, err)
	assert.Equal(t, segment, stored)
}

func TestComputeStorageCommitments(t *testing.T) {
	storages := []*mapStorage{
		newMapStorage(types.FeltFromUint64(0x30), 1, 1, 2, 2),
		newMapStorage(blockHashContract, 990, 0xb10c),
		newMapStorage(types.FeltFromUint64(0x20), 1, 1),
	}

	helper, err := syscall.NewExecutionHelper(nil, osStorages(storages...), &types.BlockInfo{BlockNumber: 1000}, nil)
	require.NoError(t, err)

	commitments, err := helper.ComputeStorageCommitments(context.Background())
	require.NoError(t, err)
	require.Len(t, commitments, 3)

	assert.Equal(t, blockHashContract, commitments[0].ContractAddress)
	assert.Equal(t, types.FeltFromUint64(0x20), commitments[1].ContractAddress)
	assert.Equal(t, types.FeltFromUint64(0x30), commitments[2].ContractAddress)
	assert.Equal(t, types.FeltFromUint64(2), commitments[2].UpdatedRoot)

	errBroken := errors.New("broken tree")
	storages[2].err = errBroken

	_, err = helper.ComputeStorageCommitments(context.Background())
	assert.ErrorIs(t, err, errBroken)
}
