package state

import (
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/require"

	"github.com/sunvim/starkos/ethdb/memorydb"
	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/syscall/syscalltest"
	"github.com/sunvim/starkos/types"
)

var (
	selectorRun = types.StarknetKeccak([]byte("run"))

	outerClass     = types.FeltFromUint64(0xa1)
	calleeClass    = types.FeltFromUint64(0xb1)
	ctorClass      = types.FeltFromUint64(0xc1)
	failingClass   = types.FeltFromUint64(0xf1)
	recursiveClass = types.FeltFromUint64(0xe1)
	legacyClass    = types.FeltFromUint64(0xd1)
	undeclared     = types.FeltFromUint64(0xdead)

	outerAddr     = types.FeltFromUint64(0xa)
	calleeAddr    = types.FeltFromUint64(0xb)
	failingAddr   = types.FeltFromUint64(0xf)
	recursiveAddr = types.FeltFromUint64(0xe)
	legacyAddr    = types.FeltFromUint64(0xd)

	blockHashAddr = types.FeltFromUint64(params.BlockHashContractAddress)

	counterKey = types.FeltFromUint64(5)
	l1Address  = types.FeltFromUint64(0xe7)
)

const (
	testBlock     uint64 = 1000
	testTimestamp uint64 = 1_700_003_599
	testGas       uint64 = 10_000_000
)

func externalClass() *types.CompiledClass {
	return &types.CompiledClass{
		EntryPointsByType: map[types.EntryPointType][]types.EntryPoint{
			types.EntryPointTypeExternal: {{Selector: selectorRun}},
		},
	}
}

// callRecord is what a program saw during one run: its syscall responses
// and the execution info it dereferenced, if any.
type callRecord struct {
	contract      *felt.Felt
	transcript    []*syscalltest.Response
	executionInfo []*felt.Felt
}

// recorder collects callRecords in the order runs start, which is pre-order
// in both execution and replay.
type recorder struct {
	records []*callRecord
}

func (r *recorder) start(call *types.CallEntryPoint) *callRecord {
	rec := &callRecord{contract: call.ContractAddress}
	r.records = append(r.records, rec)

	return rec
}

func outerProgram(rec *recorder) syscalltest.Program {
	return func(c *syscalltest.Client, call *types.CallEntryPoint) ([]*felt.Felt, bool, error) {
		r := rec.start(call)
		defer func() { r.transcript = c.Transcript() }()

		read, err := c.StorageRead(counterKey)
		if err != nil {
			return nil, false, err
		}

		counter := read.Body.Felt("value")
		next := new(felt.Felt).Add(counter, types.FeltFromUint64(1))

		if _, err := c.StorageWrite(counterKey, next); err != nil {
			return nil, false, err
		}

		if _, err := c.EmitEvent(types.FeltsFromUint64s(1), []*felt.Felt{next}); err != nil {
			return nil, false, err
		}

		callee, err := c.CallContract(calleeAddr, selectorRun, types.FeltsFromUint64s(3, 4))
		if err != nil {
			return nil, false, err
		}

		if _, err := c.Deploy(ctorClass, types.FeltFromUint64(7), types.FeltsFromUint64s(99), false); err != nil {
			return nil, false, err
		}

		if _, err := c.Deploy(undeclared, types.FeltFromUint64(1), nil, false); err != nil {
			return nil, false, err
		}

		info, err := c.GetExecutionInfo()
		if err != nil {
			return nil, false, err
		}

		ei, err := c.ReadExecutionInfo(info.Body.Ptr("execution_info"))
		if err != nil {
			return nil, false, err
		}

		r.executionInfo = ei.Felts()

		if _, err := c.GetBlockHash(testBlock - params.StoredBlockHashBuffer); err != nil {
			return nil, false, err
		}

		if _, err := c.Keccak(make([]uint64, params.KeccakFullRateInU64s)); err != nil {
			return nil, false, err
		}

		if _, err := c.CallContract(failingAddr, selectorRun, nil); err != nil {
			return nil, false, err
		}

		return callee.Data, false, nil
	}
}

// calleeProgram returns its stored value followed by the sum of its
// calldata, and reports the sum to L1.
func calleeProgram(rec *recorder) syscalltest.Program {
	return func(c *syscalltest.Client, call *types.CallEntryPoint) ([]*felt.Felt, bool, error) {
		r := rec.start(call)
		defer func() { r.transcript = c.Transcript() }()

		read, err := c.StorageRead(types.FeltFromUint64(1))
		if err != nil {
			return nil, false, err
		}

		sum := new(felt.Felt)
		for _, f := range call.Calldata {
			sum.Add(sum, f)
		}

		if _, err := c.SendMessageToL1(l1Address, []*felt.Felt{sum}); err != nil {
			return nil, false, err
		}

		return []*felt.Felt{read.Body.Felt("value"), sum}, false, nil
	}
}

func ctorProgram(rec *recorder) syscalltest.Program {
	return func(c *syscalltest.Client, call *types.CallEntryPoint) ([]*felt.Felt, bool, error) {
		r := rec.start(call)
		defer func() { r.transcript = c.Transcript() }()

		if _, err := c.StorageWrite(new(felt.Felt), call.Calldata[0]); err != nil {
			return nil, false, err
		}

		return nil, false, nil
	}
}

// failingProgram writes to its storage and reverts.
func failingProgram(rec *recorder) syscalltest.Program {
	return func(c *syscalltest.Client, call *types.CallEntryPoint) ([]*felt.Felt, bool, error) {
		r := rec.start(call)
		defer func() { r.transcript = c.Transcript() }()

		if _, err := c.StorageWrite(counterKey, types.FeltFromUint64(666)); err != nil {
			return nil, false, err
		}

		return []*felt.Felt{types.ShortString("boom")}, true, nil
	}
}

func recursiveProgram(c *syscalltest.Client, call *types.CallEntryPoint) ([]*felt.Felt, bool, error) {
	if _, err := c.CallContract(recursiveAddr, selectorRun, nil); err != nil {
		return nil, false, err
	}

	return nil, false, nil
}

type testEnv struct {
	state    *CachedState
	executor *Executor
	runtime  *syscalltest.FuncRuntime
	rec      *recorder
	config   *params.GeneralConfig

	initial map[felt.Felt]map[felt.Felt]*felt.Felt
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := NewCachedState(memorydb.New(), &types.BlockInfo{
		BlockNumber:      testBlock,
		BlockTimestamp:   testTimestamp,
		SequencerAddress: types.FeltFromUint64(0x5e9),
	}, nil, nil)

	ctor := &types.CompiledClass{
		EntryPointsByType: map[types.EntryPointType][]types.EntryPoint{
			types.EntryPointTypeConstructor: {{Selector: types.ConstructorSelector}},
		},
	}
	legacy := externalClass()
	legacy.Deprecated = true

	classes := []struct {
		hash, compiled *felt.Felt
		class          *types.CompiledClass
	}{
		{outerClass, types.FeltFromUint64(0x1a1), externalClass()},
		{calleeClass, types.FeltFromUint64(0x1b1), externalClass()},
		{ctorClass, types.FeltFromUint64(0x1c1), ctor},
		{failingClass, types.FeltFromUint64(0x1f1), externalClass()},
		{recursiveClass, types.FeltFromUint64(0x1e1), externalClass()},
		{legacyClass, new(felt.Felt), legacy},
	}

	for _, c := range classes {
		require.NoError(t, st.DeclareClass(c.hash, c.compiled, c.class))
	}

	for addr, class := range map[*felt.Felt]*felt.Felt{
		outerAddr:     outerClass,
		calleeAddr:    calleeClass,
		failingAddr:   failingClass,
		recursiveAddr: recursiveClass,
		legacyAddr:    legacyClass,
	} {
		require.NoError(t, st.DeployContract(addr, class))
	}

	initial := map[felt.Felt]map[felt.Felt]*felt.Felt{
		*outerAddr:     {*counterKey: types.FeltFromUint64(41)},
		*calleeAddr:    {*types.FeltFromUint64(1): types.FeltFromUint64(0xcafe)},
		*blockHashAddr: {*types.FeltFromUint64(testBlock - params.StoredBlockHashBuffer): types.FeltFromUint64(0xb10c)},
	}

	for addr, kv := range initial {
		for k, v := range kv {
			contract, key := addr, k
			require.NoError(t, st.SetStorageAt(types.DataAvailabilityModeL1, &contract, &key, v))
		}
	}

	st.Commit()

	rec := &recorder{}
	rt := syscalltest.NewFuncRuntime()
	rt.Register(outerClass, outerProgram(rec))
	rt.Register(calleeClass, calleeProgram(rec))
	rt.Register(ctorClass, ctorProgram(rec))
	rt.Register(failingClass, failingProgram(rec))
	rt.Register(recursiveClass, recursiveProgram)

	config := params.DefaultGeneralConfig()
	config.InitialGas = testGas

	executor := NewExecutor(config, st, nil)
	executor.SetRuntime(rt)

	return &testEnv{
		state:    st,
		executor: executor,
		runtime:  rt,
		rec:      rec,
		config:   config,
		initial:  initial,
	}
}

func newTxContext(mode types.ExecutionMode) *types.TransactionExecutionContext {
	return types.NewTransactionExecutionContext(
		outerAddr,
		types.FeltFromUint64(0x7a),
		types.FeltsFromUint64s(0x51, 0x52),
		types.FeltFromUint64(1_000_000),
		types.FeltFromUint64(3),
		types.FeltFromUint64(1),
		0,
		mode,
	)
}

func runCall(address *felt.Felt) *types.CallEntryPoint {
	return &types.CallEntryPoint{
		CallType:           types.CallTypeCall,
		ContractAddress:    address,
		EntryPointSelector: selectorRun,
		EntryPointType:     types.EntryPointTypeExternal,
		CallerAddress:      new(felt.Felt),
		InitialGas:         testGas,
	}
}

func storageAt(t *testing.T, st *CachedState, contract, key *felt.Felt) uint64 {
	t.Helper()

	v, err := st.GetStorageAt(types.DataAvailabilityModeL1, contract, key)
	require.NoError(t, err)

	n, ok := types.FeltToUint64(v)
	require.True(t, ok)

	return n
}
