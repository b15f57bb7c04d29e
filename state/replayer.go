package state

import (
	"context"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime"
	"github.com/sunvim/starkos/state/runtime/deprecatedsyscall"
	"github.com/sunvim/starkos/state/runtime/memory"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

// ClassReader resolves the classes recorded calls ran.
type ClassReader interface {
	GetCompiledClass(classHash *felt.Felt) (*types.CompiledClass, error)
}

// ReplayTx is one recorded transaction: the context it ran in and its trace.
type ReplayTx struct {
	Context *types.TransactionExecutionContext
	Info    *types.TransactionExecutionInfo
}

// ReplayResult is what replaying a block produced.
type ReplayResult struct {
	SyscallCounter map[string]uint64
	Commitments    []*types.StorageCommitment
	Segments       *memory.SegmentManager
}

// Replayer runs the recorded execution of a block again through the OS
// syscall handlers. Every call runs once, in pre-order; nested calls are
// answered from the trace and then run on their own.
type Replayer struct {
	logger   hclog.Logger
	config   *params.GeneralConfig
	classes  ClassReader
	runtimes []runtime.Runtime
	metrics  *syscall.Metrics
}

func NewReplayer(config *params.GeneralConfig, classes ClassReader, logger hclog.Logger, metrics *syscall.Metrics) *Replayer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Replayer{
		logger:  logger.Named("replayer"),
		config:  config,
		classes: classes,
		metrics: syscall.NewDummyMetrics(metrics),
	}
}

// SetRuntime adds a runtime to the runtime set
func (r *Replayer) SetRuntime(rt runtime.Runtime) {
	r.runtimes = append(r.runtimes, rt)
}

// blockReplay is the state of one ReplayBlock call.
type blockReplay struct {
	*Replayer

	helper     *syscall.ExecutionHelper
	segments   *memory.SegmentManager
	os         *syscall.OsHandler
	deprecated *deprecatedsyscall.OsHandler
}

// ReplayBlock replays txs on top of storages, the per-contract storage
// snapshots of the block, and returns the resulting storage commitments.
func (r *Replayer) ReplayBlock(
	ctx context.Context,
	block *types.BlockInfo,
	txs []*ReplayTx,
	storages map[felt.Felt]syscall.OsStorage,
) (*ReplayResult, error) {
	infos := make([]*types.TransactionExecutionInfo, len(txs))
	for i, tx := range txs {
		infos[i] = tx.Info
	}

	helper, err := syscall.NewExecutionHelper(infos, storages, block, r.logger)
	if err != nil {
		return nil, err
	}

	segments := memory.NewSegmentManager()

	b := &blockReplay{
		Replayer:   r,
		helper:     helper,
		segments:   segments,
		os:         syscall.NewOsHandler(helper, segments, r.logger, r.metrics),
		deprecated: deprecatedsyscall.NewOsHandler(helper, segments, r.logger, r.metrics),
	}

	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := b.replayTx(tx); err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
	}

	if err := helper.CheckTxsExhausted(); err != nil {
		return nil, err
	}

	commitments, err := helper.ComputeStorageCommitments(ctx)
	if err != nil {
		return nil, err
	}

	counter := make(map[string]uint64)
	for _, m := range []map[string]uint64{b.os.SyscallCounter(), b.deprecated.SyscallCounter()} {
		for name, n := range m {
			counter[name] += n
		}
	}

	return &ReplayResult{
		SyscallCounter: counter,
		Commitments:    commitments,
		Segments:       segments,
	}, nil
}

func (b *blockReplay) replayTx(tx *ReplayTx) error {
	if len(tx.Info.NonOptionalCalls()) == 0 {
		return b.helper.SkipTx()
	}

	txInfoPtr, err := b.deprecated.AllocateTxInfo(tx.Context, b.config.ChainID)
	if err != nil {
		return err
	}

	if err := b.helper.StartTx(&txInfoPtr); err != nil {
		return err
	}

	modes := []struct {
		call *types.CallInfo
		mode types.ExecutionMode
	}{
		{tx.Info.ValidateInfo, types.ExecutionModeValidate},
		{tx.Info.CallInfo, types.ExecutionModeGeneral},
		{tx.Info.FeeTransferInfo, types.ExecutionModeGeneral},
	}

	for _, m := range modes {
		if m.call == nil {
			continue
		}

		txCtx := *tx.Context
		txCtx.ExecutionMode = m.mode

		if err := b.replayCall(m.call, &txCtx); err != nil {
			return err
		}
	}

	return b.helper.EndTx()
}

func (b *blockReplay) runtimeFor(class *types.CompiledClass) (runtime.Runtime, error) {
	for _, rt := range b.runtimes {
		if rt.CanRun(class) {
			return rt, nil
		}
	}

	return nil, runtime.ErrNoRuntime
}

func (b *blockReplay) replayCall(call *types.CallInfo, txCtx *types.TransactionExecutionContext) error {
	if call.Skipped() {
		return b.helper.SkipCall()
	}

	class, err := b.classes.GetCompiledClass(call.ClassHash)
	if err != nil {
		return err
	}

	ep, err := runtime.FindEntryPoint(class, call.EntryPointType, call.EntryPointSelector)
	if err != nil {
		return fmt.Errorf("%w: selector %s of class %s", err, call.EntryPointSelector, call.ClassHash)
	}

	rt, err := b.runtimeFor(class)
	if err != nil {
		return err
	}

	entryPoint := &types.CallEntryPoint{
		CallType:           call.CallType,
		ContractAddress:    call.ContractAddress,
		CodeAddress:        call.CodeAddress,
		ClassHash:          call.ClassHash,
		EntryPointSelector: call.EntryPointSelector,
		EntryPointType:     call.EntryPointType,
		Calldata:           call.Calldata,
		CallerAddress:      call.CallerAddress,
		InitialGas:         call.InitialGas,
	}

	req := &runtime.RunRequest{
		ClassHash:  call.ClassHash,
		Class:      class,
		EntryPoint: ep,
		Call:       entryPoint,
		Segments:   b.segments,
		SyscallPtr: b.segments.Add(),
	}

	var result *runtime.RunResult

	if class.Deprecated {
		result, err = b.runDeprecated(rt, req)
	} else {
		result, err = b.run(rt, req, txCtx)
	}

	if err != nil {
		return err
	}

	if result.Failed != call.Failed || !types.FeltsEqual(result.Retdata, call.Retdata) {
		b.logger.Error("replay diverged",
			"contract", call.ContractAddress, "selector", call.EntryPointSelector,
			"recorded_failed", call.Failed, "replayed_failed", result.Failed)

		return fmt.Errorf("%w: %s on %s", ErrReplayMismatch, call.EntryPointSelector, call.ContractAddress)
	}

	for _, inner := range call.InternalCalls {
		if err := b.replayCall(inner, txCtx); err != nil {
			return err
		}
	}

	return nil
}

func (b *blockReplay) run(rt runtime.Runtime, req *runtime.RunRequest, txCtx *types.TransactionExecutionContext) (*runtime.RunResult, error) {
	infoPtr, err := b.os.AllocateExecutionInfo(&syscall.ExecutionInfoParams{
		Block:      b.helper.BlockInfo(),
		Tx:         txCtx,
		EntryPoint: req.Call,
		Config:     b.config,
	})
	if err != nil {
		return nil, err
	}

	if err := b.helper.EnterCall(&infoPtr); err != nil {
		return nil, err
	}

	if err := b.os.SetSyscallPtr(req.SyscallPtr); err != nil {
		return nil, err
	}

	req.Handler = b.os

	result, err := rt.Run(req)
	if err != nil {
		return nil, err
	}

	if err := b.os.ValidateAndDiscardSyscallPtr(result.SyscallEndPtr); err != nil {
		return nil, err
	}

	if err := b.helper.ExitCall(); err != nil {
		return nil, err
	}

	return result, nil
}

func (b *blockReplay) runDeprecated(rt runtime.Runtime, req *runtime.RunRequest) (*runtime.RunResult, error) {
	if err := b.helper.EnterCall(nil); err != nil {
		return nil, err
	}

	req.Handler = b.deprecated

	result, err := rt.Run(req)
	if err != nil {
		return nil, err
	}

	if err := b.helper.ExitCall(); err != nil {
		return nil, err
	}

	return result, nil
}

// CheckBlock walks the trace of txs through the OS bookkeeping without
// running any code: every recorded inner call result, deployment and
// storage read is consumed as a replay would. It catches traces a replay
// would reject for their shape alone, and returns the storage commitments.
func (r *Replayer) CheckBlock(
	ctx context.Context,
	block *types.BlockInfo,
	infos []*types.TransactionExecutionInfo,
	storages map[felt.Felt]syscall.OsStorage,
) ([]*types.StorageCommitment, error) {
	helper, err := syscall.NewExecutionHelper(infos, storages, block, r.logger)
	if err != nil {
		return nil, err
	}

	for i, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := checkTx(helper, info); err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
	}

	if err := helper.CheckTxsExhausted(); err != nil {
		return nil, err
	}

	return helper.ComputeStorageCommitments(ctx)
}

func checkTx(helper *syscall.ExecutionHelper, info *types.TransactionExecutionInfo) error {
	if len(info.NonOptionalCalls()) == 0 {
		return helper.SkipTx()
	}

	if err := helper.StartTx(nil); err != nil {
		return err
	}

	for _, call := range info.FlattenCalls() {
		if call.Skipped() {
			if err := helper.SkipCall(); err != nil {
				return err
			}

			continue
		}

		if err := checkCall(helper, call); err != nil {
			return err
		}
	}

	return helper.EndTx()
}

func checkCall(helper *syscall.ExecutionHelper, call *types.CallInfo) error {
	if err := helper.EnterCall(nil); err != nil {
		return err
	}

	for _, inner := range call.InternalCalls {
		if inner.IsConstructor() {
			if _, err := helper.NextDeployedContract(); err != nil {
				return err
			}
		}

		if _, err := helper.NextCallResult(); err != nil {
			return err
		}
	}

	for range call.StorageReadValues {
		if _, err := helper.NextStorageRead(); err != nil {
			return err
		}
	}

	return helper.ExitCall()
}
