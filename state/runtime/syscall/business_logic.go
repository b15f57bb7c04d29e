package syscall

import (
	"errors"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

// BusinessLogicHandler executes syscalls against live state: nested calls
// really run, storage is really read and written.
type BusinessLogicHandler struct {
	*Handler

	ctx        *CallContext
	entryPoint *types.CallEntryPoint
	storage    *ContractStorage
	readOnly   *ReadOnlySegments

	executionInfoPtr *types.Relocatable

	internalCalls  []*types.CallInfo
	events         []types.OrderedEvent
	l2ToL1Messages []types.OrderedL2ToL1Message
}

// NewBusinessLogicHandler creates the handler of one entry point execution
// whose syscall segment starts at syscallPtr.
func NewBusinessLogicHandler(
	ctx *CallContext,
	entryPoint *types.CallEntryPoint,
	segments Segments,
	syscallPtr types.Relocatable,
	logger hclog.Logger,
	metrics *Metrics,
) *BusinessLogicHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	b := &BusinessLogicHandler{
		ctx:        ctx,
		entryPoint: entryPoint,
		storage:    NewContractStorage(ctx.State, entryPoint.ContractAddress),
		readOnly:   NewReadOnlySegments(segments),
	}

	b.Handler = newHandler(b, segments, &syscallPtr, logger.Named("business-logic"), metrics)

	return b
}

func (b *BusinessLogicHandler) InternalCalls() []*types.CallInfo {
	return b.internalCalls
}

func (b *BusinessLogicHandler) Events() []types.OrderedEvent {
	return b.events
}

func (b *BusinessLogicHandler) L2ToL1Messages() []types.OrderedL2ToL1Message {
	return b.l2ToL1Messages
}

func (b *BusinessLogicHandler) Storage() *ContractStorage {
	return b.storage
}

// PostRun checks the program stopped where the handler expects the next
// request and that no read-only segment was written past its end.
func (b *BusinessLogicHandler) PostRun(runner Runner, syscallEndPtr types.Relocatable) error {
	expected, err := b.SyscallPtr()
	if err != nil {
		return err
	}

	if syscallEndPtr != expected {
		b.logger.Error("bad syscall stop pointer", "expected", expected, "actual", syscallEndPtr)

		return NewStarknetError(CodeSecurityError,
			"bad syscall_stop_ptr, expected %s, got %s", expected, syscallEndPtr)
	}

	return b.readOnly.Validate(runner)
}

func (b *BusinessLogicHandler) isValidate() bool {
	return b.ctx.TxContext.ExecutionMode == types.ExecutionModeValidate
}

func (b *BusinessLogicHandler) checkAllowed(syscallName string) error {
	if b.isValidate() {
		return NewStarknetError(CodeUnauthorizedActionOnValidate,
			"unauthorized syscall %s in execution mode %s", syscallName, b.ctx.TxContext.ExecutionMode)
	}

	return nil
}

func (b *BusinessLogicHandler) currentBlockNumber() uint64 {
	return b.ctx.State.BlockInfo().BlockNumber
}

func (b *BusinessLogicHandler) callContractHelper(gas uint64, req *structs.Record, syscallName string) (*types.CallResult, error) {
	calldata, err := b.getFeltRange(req.Ptr("calldata_start"), req.Ptr("calldata_end"))
	if err != nil {
		return nil, err
	}

	call := &types.CallEntryPoint{
		EntryPointSelector: req.Felt("selector"),
		EntryPointType:     types.EntryPointTypeExternal,
		Calldata:           calldata,
		InitialGas:         gas,
	}

	switch syscallName {
	case "call_contract":
		target := req.Felt("contract_address")
		if b.isValidate() && !target.Equal(b.entryPoint.ContractAddress) {
			return nil, NewStarknetError(CodeUnauthorizedActionOnValidate,
				"unauthorized syscall call_contract in execution mode %s", b.ctx.TxContext.ExecutionMode)
		}

		call.CallType = types.CallTypeCall
		call.ContractAddress = target
		call.CallerAddress = b.entryPoint.ContractAddress
	case "library_call":
		call.CallType = types.CallTypeDelegate
		call.ContractAddress = b.entryPoint.ContractAddress
		call.ClassHash = req.Felt("class_hash")
		call.CallerAddress = b.entryPoint.CallerAddress
	default:
		return nil, ErrUnsupportedSyscall
	}

	info, err := b.executeInnerCall(call)
	if err != nil {
		return nil, err
	}

	return types.NewCallResult(info), nil
}

func (b *BusinessLogicHandler) executeInnerCall(call *types.CallEntryPoint) (*types.CallInfo, error) {
	info, err := b.ctx.Executor.Execute(call, b.ctx)
	if err != nil {
		return nil, err
	}

	b.internalCalls = append(b.internalCalls, info)

	return info, nil
}

func (b *BusinessLogicHandler) deploy(gas uint64, req *structs.Record) (*felt.Felt, *types.CallResult, error) {
	fromZero, ok := types.FeltToUint64(req.Felt("deploy_from_zero"))
	if !ok || fromZero > 1 {
		return nil, nil, ErrInvalidDeployFromZero
	}

	deployer := b.entryPoint.ContractAddress
	if fromZero == 1 {
		deployer = new(felt.Felt)
	}

	calldata, err := b.getFeltRange(req.Ptr("constructor_calldata_start"), req.Ptr("constructor_calldata_end"))
	if err != nil {
		return nil, nil, err
	}

	classHash := req.Felt("class_hash")
	address := types.CalculateContractAddressFromHash(req.Felt("contract_address_salt"), classHash, calldata, deployer)

	if err := b.ctx.State.DeployContract(address, classHash); err != nil {
		var starknetErr *StarknetError
		if !errors.As(err, &starknetErr) {
			return nil, nil, err
		}

		switch starknetErr.Code {
		case CodeUndeclaredClass:
			return address, b.failedDeployment(address, classHash, FailureUndeclaredClass), nil
		case CodeContractAddressUnavailable:
			return address, b.failedDeployment(address, classHash, FailureAddressUnavailable), nil
		default:
			return nil, nil, err
		}
	}

	info, err := b.executeConstructor(address, classHash, calldata, gas)
	if err != nil {
		return nil, nil, err
	}

	return address, types.NewCallResult(info), nil
}

// failedDeployment records a deployment that was rejected before any code
// ran. Its retdata is the failure code.
func (b *BusinessLogicHandler) failedDeployment(address, classHash *felt.Felt, code FailureCode) *types.CallResult {
	b.logger.Debug("deployment rejected", "address", address, "class_hash", classHash, "code", string(code))

	info := types.EmptyConstructorCall(address, b.entryPoint.ContractAddress, classHash)
	info.Failed = true
	info.Retdata = []*felt.Felt{code.Felt()}

	b.internalCalls = append(b.internalCalls, info)

	return types.NewCallResult(info)
}

func (b *BusinessLogicHandler) executeConstructor(address, classHash *felt.Felt, calldata []*felt.Felt, gas uint64) (*types.CallInfo, error) {
	class, err := b.ctx.State.GetCompiledClass(classHash)
	if err != nil {
		return nil, err
	}

	if !class.HasConstructor() {
		if len(calldata) > 0 {
			return nil, ErrCalldataToNoCtor
		}

		info := types.EmptyConstructorCall(address, b.entryPoint.ContractAddress, classHash)
		b.internalCalls = append(b.internalCalls, info)

		return info, nil
	}

	return b.executeInnerCall(&types.CallEntryPoint{
		CallType:           types.CallTypeCall,
		ContractAddress:    address,
		ClassHash:          classHash,
		CodeAddress:        address,
		EntryPointSelector: types.ConstructorSelector,
		EntryPointType:     types.EntryPointTypeConstructor,
		Calldata:           calldata,
		CallerAddress:      b.entryPoint.ContractAddress,
		InitialGas:         gas,
	})
}

func (b *BusinessLogicHandler) getBlockHash(blockNumber uint64) (*felt.Felt, error) {
	return b.ctx.State.GetStorageAt(
		types.DataAvailabilityModeL1,
		types.FeltFromUint64(params.BlockHashContractAddress),
		types.FeltFromUint64(blockNumber),
	)
}

func (b *BusinessLogicHandler) getExecutionInfoPtr() (types.Relocatable, error) {
	if b.executionInfoPtr != nil {
		return *b.executionInfoPtr, nil
	}

	ptr, err := AllocateExecutionInfo(b.allocateSegment, &ExecutionInfoParams{
		Block:      b.ctx.State.BlockInfo(),
		Tx:         b.ctx.TxContext,
		EntryPoint: b.entryPoint,
		Config:     b.ctx.Config,
	})
	if err != nil {
		return types.Relocatable{}, err
	}

	b.executionInfoPtr = &ptr

	return ptr, nil
}

func (b *BusinessLogicHandler) storageRead(key *felt.Felt) (*felt.Felt, error) {
	return b.storage.Read(key)
}

func (b *BusinessLogicHandler) storageWrite(key, value *felt.Felt) error {
	return b.storage.Write(key, value)
}

func (b *BusinessLogicHandler) emitEvent(keys, data []*felt.Felt) error {
	tx := b.ctx.TxContext

	b.events = append(b.events, types.OrderedEvent{
		Order:        tx.NEmittedEvents,
		EventContent: types.EventContent{Keys: keys, Data: data},
	})
	tx.NEmittedEvents++

	return nil
}

func (b *BusinessLogicHandler) replaceClass(classHash *felt.Felt) error {
	compiledClassHash, err := b.ctx.State.GetCompiledClassHash(classHash)
	if err != nil {
		return err
	}

	if compiledClassHash.IsZero() {
		return NewStarknetError(CodeUndeclaredClass, "class with hash %s is not declared", classHash)
	}

	return b.ctx.State.SetClassHashAt(b.entryPoint.ContractAddress, classHash)
}

func (b *BusinessLogicHandler) sendMessageToL1(toAddress *felt.Felt, payload []*felt.Felt) error {
	tx := b.ctx.TxContext

	b.l2ToL1Messages = append(b.l2ToL1Messages, types.OrderedL2ToL1Message{
		Order:     tx.NSentMessages,
		ToAddress: toAddress,
		Payload:   payload,
	})
	tx.NSentMessages++

	return nil
}

// keccak counts rounds rather than invocations.
func (b *BusinessLogicHandler) keccak(nRounds uint64) {
	b.ctx.Resources.IncSyscallCounter("keccak", nRounds)
}

func (b *BusinessLogicHandler) countSyscall(name string) {
	b.ctx.Resources.IncSyscallCounter(name, 1)
}

func (b *BusinessLogicHandler) allocateSegment(data []types.MaybeRelocatable) (types.Relocatable, error) {
	return b.readOnly.Allocate(data)
}

func (b *BusinessLogicHandler) allocateSegmentForRetdata(retdata []*felt.Felt) (types.Relocatable, error) {
	return b.readOnly.AllocateFelts(retdata)
}
