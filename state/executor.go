package state

import (
	"fmt"
	"sync/atomic"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime"
	"github.com/sunvim/starkos/state/runtime/deprecatedsyscall"
	"github.com/sunvim/starkos/state/runtime/memory"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

// callHandler is the business-logic syscall handler of one entry point, in
// either ABI.
type callHandler interface {
	runtime.SyscallHandler

	PostRun(runner syscall.Runner, syscallEndPtr types.Relocatable) error
	InternalCalls() []*types.CallInfo
	Events() []types.OrderedEvent
	L2ToL1Messages() []types.OrderedL2ToL1Message
	Storage() *syscall.ContractStorage
}

// Executor runs entry points against a CachedState. It is the nested-call
// executor business-logic syscall handlers call back into.
type Executor struct {
	logger   hclog.Logger
	config   *params.GeneralConfig
	runtimes []runtime.Runtime
	state    *CachedState
	tracer   runtime.CallTracer

	metrics        *Metrics
	syscallMetrics *syscall.Metrics

	depth   int
	stopped uint32 // atomic flag for stopping
}

// NewExecutor creates a new executor
func NewExecutor(config *params.GeneralConfig, s *CachedState, logger hclog.Logger) *Executor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Executor{
		logger:         logger.Named("executor"),
		config:         config,
		runtimes:       []runtime.Runtime{},
		state:          s,
		tracer:         runtime.NewDummyTracer(),
		metrics:        NilMetrics(),
		syscallMetrics: syscall.NilMetrics(),
	}
}

// SetRuntime adds a runtime to the runtime set
func (e *Executor) SetRuntime(r runtime.Runtime) {
	e.runtimes = append(e.runtimes, r)
}

// SetTracer sets a non nil call tracer
func (e *Executor) SetTracer(t runtime.CallTracer) {
	if t == nil {
		t = runtime.NewDummyTracer()
	}

	e.tracer = t
}

func (e *Executor) SetMetrics(m *Metrics, sm *syscall.Metrics) {
	e.metrics = NewDummyMetrics(m)
	e.syscallMetrics = syscall.NewDummyMetrics(sm)
}

func (e *Executor) State() *CachedState {
	return e.state
}

func (e *Executor) IsStopped() bool {
	return atomic.LoadUint32(&e.stopped) > 0
}

func (e *Executor) Stop() {
	atomic.StoreUint32(&e.stopped, 1)
}

// NewCallContext prepares the context every call of one transaction
// executes against.
func (e *Executor) NewCallContext(tx *types.TransactionExecutionContext) *syscall.CallContext {
	return &syscall.CallContext{
		State:     e.state,
		Executor:  e,
		Resources: types.NewExecutionResourcesManager(),
		TxContext: tx,
		Config:    e.config,
	}
}

// Transaction is an invocation to execute: an optional validation call
// followed by the call itself.
type Transaction struct {
	Context  *types.TransactionExecutionContext
	Validate *types.CallEntryPoint
	Call     *types.CallEntryPoint
	TxType   string
}

// ExecuteTx runs the validation and the execution of tx and returns its
// trace. A failed validation ends the transaction.
func (e *Executor) ExecuteTx(tx *Transaction) (*types.TransactionExecutionInfo, error) {
	if e.IsStopped() {
		// halt more elegantly
		return nil, ErrExecutionStop
	}

	info := &types.TransactionExecutionInfo{TxType: tx.TxType}
	resources := types.NewExecutionResourcesManager()

	run := func(call *types.CallEntryPoint, mode types.ExecutionMode) (*types.CallInfo, error) {
		if call == nil {
			return nil, nil
		}

		txCtx := *tx.Context
		txCtx.ExecutionMode = mode

		ctx := e.NewCallContext(&txCtx)
		ctx.Resources = resources

		result, err := e.Execute(call, ctx)

		// counters carry over from validation to execution
		tx.Context.NEmittedEvents, tx.Context.NSentMessages = txCtx.NEmittedEvents, txCtx.NSentMessages

		return result, err
	}

	validateInfo, err := run(tx.Validate, types.ExecutionModeValidate)
	if err != nil {
		return nil, err
	}

	info.ValidateInfo = validateInfo

	if validateInfo != nil && validateInfo.Failed {
		info.RevertError = "validation failed"

		return info, nil
	}

	callInfo, err := run(tx.Call, types.ExecutionModeGeneral)
	if err != nil {
		return nil, err
	}

	info.CallInfo = callInfo
	if callInfo != nil && callInfo.Failed {
		info.RevertError = "execution failed"
	}

	info.ActualResources = resourcesSummary(resources)

	return info, nil
}

func resourcesSummary(m *types.ExecutionResourcesManager) map[string]uint64 {
	out := map[string]uint64{"n_steps": m.CairoUsage.NSteps}

	for name, n := range m.SyscallCounter {
		out[name] = n
	}

	for name, n := range m.CairoUsage.BuiltinInstanceCounter {
		out[name] = n
	}

	return out
}

// Execute runs call to completion. A failed call leaves the state as it
// found it; a fatal error aborts the whole transaction.
func (e *Executor) Execute(call *types.CallEntryPoint, ctx *syscall.CallContext) (*types.CallInfo, error) {
	if e.depth >= params.MaxEntryPointDepth {
		return nil, runtime.ErrDepth
	}

	e.depth++
	defer func() { e.depth-- }()

	e.tracer.CaptureEnter(call, e.depth)

	info, err := e.execute(call, ctx)

	e.tracer.CaptureExit(info, e.depth, err)

	switch {
	case err != nil:
		e.metrics.Calls.With("outcome", "error").Add(1)
	case info.Failed:
		e.metrics.Calls.With("outcome", "failed").Add(1)
	default:
		e.metrics.Calls.With("outcome", "ok").Add(1)
	}

	return info, err
}

func (e *Executor) resolveClassHash(call *types.CallEntryPoint) (*felt.Felt, error) {
	if call.ClassHash != nil {
		return call.ClassHash, nil
	}

	codeAddress := call.ContractAddress
	if call.CodeAddress != nil {
		codeAddress = call.CodeAddress
	}

	classHash, err := e.state.GetClassHashAt(codeAddress)
	if err != nil {
		return nil, err
	}

	if classHash.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, codeAddress)
	}

	return classHash, nil
}

func (e *Executor) runtimeFor(class *types.CompiledClass) (runtime.Runtime, error) {
	for _, r := range e.runtimes {
		if r.CanRun(class) {
			return r, nil
		}
	}

	return nil, runtime.ErrNoRuntime
}

func (e *Executor) stepsLimit(mode types.ExecutionMode) uint64 {
	if mode == types.ExecutionModeValidate {
		return e.config.ValidateMaxNSteps
	}

	return e.config.InvokeTxMaxNSteps
}

func (e *Executor) execute(call *types.CallEntryPoint, ctx *syscall.CallContext) (*types.CallInfo, error) {
	classHash, err := e.resolveClassHash(call)
	if err != nil {
		return nil, err
	}

	class, err := e.state.GetCompiledClass(classHash)
	if err != nil {
		return nil, err
	}

	entryPoint, err := runtime.FindEntryPoint(class, call.EntryPointType, call.EntryPointSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: selector %s of class %s", err, call.EntryPointSelector, classHash)
	}

	rt, err := e.runtimeFor(class)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, classHash)
	}

	segments := memory.NewSegmentManager()
	syscallPtr := segments.Add()

	var handler callHandler
	if class.Deprecated {
		handler = deprecatedsyscall.NewBusinessLogicHandler(ctx, call, segments, syscallPtr, e.logger, e.syscallMetrics)
	} else {
		handler = syscall.NewBusinessLogicHandler(ctx, call, segments, syscallPtr, e.logger, e.syscallMetrics)
	}

	snap := e.state.Snapshot()

	revert := func() error {
		return e.state.RevertToSnapshot(snap)
	}

	e.logger.Debug("run entry point",
		"runtime", rt.Name(), "contract", call.ContractAddress, "class_hash", classHash,
		"selector", call.EntryPointSelector, "depth", e.depth)

	result, err := rt.Run(&runtime.RunRequest{
		ClassHash:  classHash,
		Class:      class,
		EntryPoint: entryPoint,
		Call:       call,
		Segments:   segments,
		SyscallPtr: syscallPtr,
		Handler:    handler,
	})
	if err != nil {
		if revertErr := revert(); revertErr != nil {
			return nil, revertErr
		}

		return nil, err
	}

	if err := handler.PostRun(segments, result.SyscallEndPtr); err != nil {
		if revertErr := revert(); revertErr != nil {
			return nil, revertErr
		}

		return nil, err
	}

	if result.GasConsumed > call.InitialGas {
		return nil, fmt.Errorf("%w: consumed %d of %d", syscall.ErrGasUnderflow, result.GasConsumed, call.InitialGas)
	}

	ctx.Resources.CairoUsage.NSteps += result.Resources.NSteps
	ctx.Resources.CairoUsage.NMemoryHoles += result.Resources.NMemoryHoles

	for name, n := range result.Resources.BuiltinInstanceCounter {
		if ctx.Resources.CairoUsage.BuiltinInstanceCounter == nil {
			ctx.Resources.CairoUsage.BuiltinInstanceCounter = make(map[string]uint64)
		}

		ctx.Resources.CairoUsage.BuiltinInstanceCounter[name] += n
	}

	if limit := e.stepsLimit(ctx.TxContext.ExecutionMode); limit > 0 && ctx.Resources.CairoUsage.NSteps > limit {
		return nil, fmt.Errorf("%w: %d steps, limit %d", ErrStepsLimit, ctx.Resources.CairoUsage.NSteps, limit)
	}

	if result.Failed {
		e.logger.Debug("entry point reverted", "contract", call.ContractAddress, "selector", call.EntryPointSelector)

		if err := revert(); err != nil {
			return nil, err
		}
	}

	storage := handler.Storage()

	return &types.CallInfo{
		CallerAddress:       call.CallerAddress,
		CallType:            call.CallType,
		ContractAddress:     call.ContractAddress,
		CodeAddress:         call.CodeAddress,
		ClassHash:           classHash,
		EntryPointSelector:  call.EntryPointSelector,
		EntryPointType:      call.EntryPointType,
		Calldata:            call.Calldata,
		Retdata:             result.Retdata,
		InitialGas:          call.InitialGas,
		GasConsumed:         result.GasConsumed,
		Failed:              result.Failed,
		Resources:           result.Resources,
		Events:              handler.Events(),
		L2ToL1Messages:      handler.L2ToL1Messages(),
		StorageReadValues:   storage.ReadValues(),
		AccessedStorageKeys: storage.AccessedKeys(),
		InternalCalls:       handler.InternalCalls(),
	}, nil
}
