package state

import (
	"context"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/state/storage"
	"github.com/sunvim/starkos/types"
)

// recordBlock executes outer once and returns what a replay needs: the
// trace, the storage snapshots and the runs seen during execution.
func recordBlock(t *testing.T) (*testEnv, *types.TransactionExecutionInfo, map[felt.Felt]syscall.OsStorage, []*callRecord) {
	t.Helper()

	env := newTestEnv(t)

	info, err := env.executor.ExecuteTx(&Transaction{
		Context: newTxContext(types.ExecutionModeGeneral),
		Call:    runCall(outerAddr),
	})
	require.NoError(t, err)

	records := env.rec.records
	env.rec.records = nil

	return env, info, storage.FromDiff(env.initial, env.state.StorageDiff()), records
}

func replay(env *testEnv, storages map[felt.Felt]syscall.OsStorage, txs ...*ReplayTx) (*ReplayResult, error) {
	r := NewReplayer(env.config, env.state, nil, nil)
	r.SetRuntime(env.runtime)

	return r.ReplayBlock(context.Background(), env.state.BlockInfo(), txs, storages)
}

func TestReplayMatchesExecution(t *testing.T) {
	env, info, storages, executed := recordBlock(t)

	result, err := replay(env, storages, &ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: info})
	require.NoError(t, err)

	replayed := env.rec.records
	require.Len(t, replayed, len(executed))

	for i := range executed {
		want, got := executed[i], replayed[i]

		assert.True(t, want.contract.Equal(got.contract), "call %d", i)
		require.Len(t, got.transcript, len(want.transcript), "call %d", i)

		for j := range want.transcript {
			w, g := want.transcript[j], got.transcript[j]

			assert.Equal(t, w.Name, g.Name, "call %d syscall %d", i, j)
			assert.Equal(t, w.Gas, g.Gas, "call %d %s", i, w.Name)
			assert.Equal(t, w.Failed, g.Failed, "call %d %s", i, w.Name)
			assert.True(t, types.FeltsEqual(w.Felts(), g.Felts()), "call %d %s", i, w.Name)
			assert.True(t, types.FeltsEqual(w.Data, g.Data), "call %d %s", i, w.Name)
		}

		assert.True(t, types.FeltsEqual(want.executionInfo, got.executionInfo), "call %d", i)
	}

	assert.Equal(t, uint64(2), result.SyscallCounter["call_contract"])
	assert.Equal(t, uint64(2), result.SyscallCounter["deploy"])
}

func TestReplayCommitments(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	result, err := replay(env, storages, &ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: info})
	require.NoError(t, err)

	require.Len(t, result.Commitments, 4)

	byAddress := make(map[felt.Felt]*types.StorageCommitment)
	for i, c := range result.Commitments {
		if i > 0 {
			assert.Equal(t, -1, result.Commitments[i-1].ContractAddress.Cmp(c.ContractAddress))
		}

		byAddress[*c.ContractAddress] = c
	}

	unchanged := byAddress[*calleeAddr]
	require.NotNil(t, unchanged)
	assert.True(t, unchanged.PreviousRoot.Equal(unchanged.UpdatedRoot))

	changed := byAddress[*outerAddr]
	require.NotNil(t, changed)
	assert.False(t, changed.PreviousRoot.Equal(changed.UpdatedRoot))

	deployed := byAddress[*ctorAddress()]
	require.NotNil(t, deployed)
	assert.True(t, deployed.PreviousRoot.IsZero())
	assert.False(t, deployed.UpdatedRoot.IsZero())
}

func TestReplaySkipsEmptyTx(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	_, err := replay(env, storages,
		&ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: &types.TransactionExecutionInfo{}},
		&ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: info},
	)
	require.NoError(t, err)
}

func TestReplayDetectsTamperedRetdata(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	info.CallInfo.InternalCalls[0].Retdata = types.FeltsFromUint64s(1, 2)

	_, err := replay(env, storages, &ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: info})
	assert.ErrorIs(t, err, ErrReplayMismatch)
}

func TestReplayDetectsUnusedReads(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	outer := info.CallInfo
	outer.StorageReadValues = append(outer.StorageReadValues, types.FeltFromUint64(1))

	_, err := replay(env, storages, &ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: info})
	assert.ErrorIs(t, err, syscall.ErrIteratorNotExhausted)
}

func TestReplayCanceled(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	r := NewReplayer(env.config, env.state, nil, nil)
	r.SetRuntime(env.runtime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReplayBlock(ctx, env.state.BlockInfo(), []*ReplayTx{{Context: newTxContext(types.ExecutionModeGeneral), Info: info}}, storages)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckBlockMatchesReplay(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	replayed, err := replay(env, storages, &ReplayTx{Context: newTxContext(types.ExecutionModeGeneral), Info: info})
	require.NoError(t, err)

	r := NewReplayer(env.config, env.state, nil, nil)

	checked, err := r.CheckBlock(context.Background(), env.state.BlockInfo(),
		[]*types.TransactionExecutionInfo{{}, info}, storages)
	require.NoError(t, err)

	require.Len(t, checked, len(replayed.Commitments))

	for i := range checked {
		assert.True(t, replayed.Commitments[i].ContractAddress.Equal(checked[i].ContractAddress))
		assert.True(t, replayed.Commitments[i].UpdatedRoot.Equal(checked[i].UpdatedRoot))
	}
}

func TestCheckBlockNeedsOldBlockHash(t *testing.T) {
	env, info, storages, _ := recordBlock(t)

	delete(storages, *blockHashAddr)

	r := NewReplayer(env.config, env.state, nil, nil)

	_, err := r.CheckBlock(context.Background(), env.state.BlockInfo(), []*types.TransactionExecutionInfo{info}, storages)
	assert.ErrorIs(t, err, syscall.ErrMissingStorage)
}
