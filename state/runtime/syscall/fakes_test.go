package syscall_test

import (
	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/memory"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/state/runtime/syscall/syscalltest"
	"github.com/sunvim/starkos/types"
)

var (
	accountAddress = types.FeltFromUint64(0xacc)
	contractAddr   = types.FeltFromUint64(0x1234)
	callerAddr     = types.FeltFromUint64(0x99)
	selectorFoo    = types.StarknetKeccak([]byte("foo"))

	classWithCtor = types.FeltFromUint64(0xc1)
	classNoCtor   = types.FeltFromUint64(0xc2)
)

type storageKey struct {
	contract, key felt.Felt
}

type fakeState struct {
	block       *types.BlockInfo
	storage     map[storageKey]*felt.Felt
	classHashes map[felt.Felt]*felt.Felt
	classes     map[felt.Felt]*types.CompiledClass
}

func newFakeState(blockNumber uint64) *fakeState {
	s := &fakeState{
		block: &types.BlockInfo{
			BlockNumber:      blockNumber,
			BlockTimestamp:   1_700_003_599,
			SequencerAddress: types.FeltFromUint64(0x5e9),
		},
		storage:     make(map[storageKey]*felt.Felt),
		classHashes: make(map[felt.Felt]*felt.Felt),
		classes:     make(map[felt.Felt]*types.CompiledClass),
	}

	s.classes[*classWithCtor] = &types.CompiledClass{
		EntryPointsByType: map[types.EntryPointType][]types.EntryPoint{
			types.EntryPointTypeConstructor: {{Selector: types.ConstructorSelector}},
		},
	}
	s.classes[*classNoCtor] = &types.CompiledClass{}
	s.classHashes[*contractAddr] = classNoCtor

	return s
}

func (s *fakeState) BlockInfo() *types.BlockInfo {
	return s.block
}

func (s *fakeState) GetStorageAt(_ types.DataAvailabilityMode, contract, key *felt.Felt) (*felt.Felt, error) {
	if v, ok := s.storage[storageKey{*contract, *key}]; ok {
		return v, nil
	}

	return new(felt.Felt), nil
}

func (s *fakeState) SetStorageAt(_ types.DataAvailabilityMode, contract, key, value *felt.Felt) error {
	s.storage[storageKey{*contract, *key}] = value

	return nil
}

func (s *fakeState) GetClassHashAt(contract *felt.Felt) (*felt.Felt, error) {
	if h, ok := s.classHashes[*contract]; ok {
		return h, nil
	}

	return new(felt.Felt), nil
}

func (s *fakeState) SetClassHashAt(contract, classHash *felt.Felt) error {
	s.classHashes[*contract] = classHash

	return nil
}

func (s *fakeState) GetCompiledClassHash(classHash *felt.Felt) (*felt.Felt, error) {
	if _, ok := s.classes[*classHash]; ok {
		return types.FeltFromUint64(1), nil
	}

	return new(felt.Felt), nil
}

func (s *fakeState) GetCompiledClass(classHash *felt.Felt) (*types.CompiledClass, error) {
	return s.classes[*classHash], nil
}

func (s *fakeState) DeployContract(contract, classHash *felt.Felt) error {
	if _, ok := s.classes[*classHash]; !ok {
		return syscall.NewStarknetError(syscall.CodeUndeclaredClass, "class %s is not declared", classHash)
	}

	if _, ok := s.classHashes[*contract]; ok {
		return syscall.NewStarknetError(syscall.CodeContractAddressUnavailable, "%s is taken", contract)
	}

	s.classHashes[*contract] = classHash

	return nil
}

// echoExecutor answers every nested call with its calldata reversed.
type echoExecutor struct {
	gasConsumed uint64
	fail        bool
	calls       []*types.CallEntryPoint
}

func (e *echoExecutor) Execute(call *types.CallEntryPoint, _ *syscall.CallContext) (*types.CallInfo, error) {
	e.calls = append(e.calls, call)

	retdata := make([]*felt.Felt, len(call.Calldata))
	for i, f := range call.Calldata {
		retdata[len(retdata)-1-i] = f
	}

	return &types.CallInfo{
		CallerAddress:      call.CallerAddress,
		CallType:           call.CallType,
		ContractAddress:    call.ContractAddress,
		ClassHash:          call.ClassHash,
		EntryPointSelector: call.EntryPointSelector,
		EntryPointType:     call.EntryPointType,
		Calldata:           call.Calldata,
		Retdata:            retdata,
		GasConsumed:        e.gasConsumed,
		Failed:             e.fail,
		Resources:          types.ExecutionResources{NSteps: 10},
	}, nil
}

type blEnv struct {
	segments *memory.SegmentManager
	state    *fakeState
	executor *echoExecutor
	ctx      *syscall.CallContext
	handler  *syscall.BusinessLogicHandler
	client   *syscalltest.Client
}

func newBLEnv(mode types.ExecutionMode, gas uint64) *blEnv {
	return newBLEnvAt(mode, gas, contractAddr)
}

// newBLEnvAt runs the handler as the contract at address.
func newBLEnvAt(mode types.ExecutionMode, gas uint64, address *felt.Felt) *blEnv {
	segments := memory.NewSegmentManager()
	state := newFakeState(1000)
	executor := &echoExecutor{gasConsumed: 1_000}

	ctx := &syscall.CallContext{
		State:     state,
		Executor:  executor,
		Resources: types.NewExecutionResourcesManager(),
		TxContext: types.NewTransactionExecutionContext(
			accountAddress, types.FeltFromUint64(0x7a),
			types.FeltsFromUint64s(11, 12),
			types.FeltFromUint64(1_000_000), types.FeltFromUint64(3), types.FeltFromUint64(1),
			1_000_000, mode,
		),
		Config: params.DefaultGeneralConfig(),
	}

	entryPoint := &types.CallEntryPoint{
		CallType:           types.CallTypeCall,
		ContractAddress:    address,
		EntryPointSelector: selectorFoo,
		EntryPointType:     types.EntryPointTypeExternal,
		CallerAddress:      callerAddr,
		InitialGas:         gas,
	}

	syscallPtr := segments.Add()
	handler := syscall.NewBusinessLogicHandler(ctx, entryPoint, segments, syscallPtr, nil, nil)

	return &blEnv{
		segments: segments,
		state:    state,
		executor: executor,
		ctx:      ctx,
		handler:  handler,
		client:   syscalltest.NewClient(segments, handler, syscallPtr, gas),
	}
}
