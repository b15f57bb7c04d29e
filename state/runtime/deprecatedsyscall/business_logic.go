package deprecatedsyscall

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

// BusinessLogicHandler executes deprecated syscalls against live state.
type BusinessLogicHandler struct {
	*Handler

	ctx        *syscall.CallContext
	entryPoint *types.CallEntryPoint
	storage    *syscall.ContractStorage
	readOnly   *syscall.ReadOnlySegments

	txInfo *types.Relocatable

	internalCalls  []*types.CallInfo
	events         []types.OrderedEvent
	l2ToL1Messages []types.OrderedL2ToL1Message
}

func NewBusinessLogicHandler(
	ctx *syscall.CallContext,
	entryPoint *types.CallEntryPoint,
	segments syscall.Segments,
	syscallPtr types.Relocatable,
	logger hclog.Logger,
	metrics *syscall.Metrics,
) *BusinessLogicHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	b := &BusinessLogicHandler{
		ctx:        ctx,
		entryPoint: entryPoint,
		storage:    syscall.NewContractStorage(ctx.State, entryPoint.ContractAddress),
		readOnly:   syscall.NewReadOnlySegments(segments),
	}

	b.Handler = newHandler(b, segments, &syscallPtr, logger.Named("deprecated-business-logic"), metrics)

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

func (b *BusinessLogicHandler) Storage() *syscall.ContractStorage {
	return b.storage
}

// PostRun checks the program stopped right after the last syscall and left
// the read-only segments alone.
func (b *BusinessLogicHandler) PostRun(runner syscall.Runner, syscallEndPtr types.Relocatable) error {
	if syscallEndPtr != *b.expectedPtr {
		b.logger.Error("bad syscall stop pointer", "expected", *b.expectedPtr, "actual", syscallEndPtr)

		return syscall.NewStarknetError(syscall.CodeSecurityError,
			"bad syscall_stop_ptr, expected %s, got %s", *b.expectedPtr, syscallEndPtr)
	}

	return b.readOnly.Validate(runner)
}

func (b *BusinessLogicHandler) callContract(syscallName string, req *structs.Record) ([]*felt.Felt, error) {
	calldata, err := b.readArray(req, "calldata_size", "calldata")
	if err != nil {
		return nil, err
	}

	call := &types.CallEntryPoint{
		EntryPointSelector: req.Felt("function_selector"),
		EntryPointType:     types.EntryPointTypeExternal,
		Calldata:           calldata,
		InitialGas:         b.ctx.Config.InitialGas,
	}

	switch syscallName {
	case "call_contract":
		target := req.Felt("contract_address")
		if b.ctx.TxContext.ExecutionMode == types.ExecutionModeValidate && !target.Equal(b.entryPoint.ContractAddress) {
			return nil, syscall.NewStarknetError(syscall.CodeUnauthorizedActionOnValidate,
				"unauthorized syscall call_contract in execution mode %s", b.ctx.TxContext.ExecutionMode)
		}

		call.CallType = types.CallTypeCall
		call.ContractAddress = target
		call.CallerAddress = b.entryPoint.ContractAddress
	case "delegate_call", "delegate_l1_handler":
		call.CallType = types.CallTypeDelegate
		call.ContractAddress = b.entryPoint.ContractAddress
		call.CodeAddress = req.Felt("contract_address")
		call.CallerAddress = b.entryPoint.CallerAddress
	case "library_call", "library_call_l1_handler":
		call.CallType = types.CallTypeDelegate
		call.ContractAddress = b.entryPoint.ContractAddress
		call.ClassHash = req.Felt("class_hash")
		call.CallerAddress = b.entryPoint.CallerAddress
	default:
		return nil, syscall.ErrUnsupportedSyscall
	}

	if syscallName == "delegate_l1_handler" || syscallName == "library_call_l1_handler" {
		call.EntryPointType = types.EntryPointTypeL1Handler
	}

	info, err := b.executeInnerCall(call)
	if err != nil {
		return nil, err
	}

	if info.Failed {
		return nil, fmt.Errorf("%w: %s on %s", ErrNestedCallFailed, call.EntryPointSelector, call.ContractAddress)
	}

	return info.Retdata, nil
}

func (b *BusinessLogicHandler) executeInnerCall(call *types.CallEntryPoint) (*types.CallInfo, error) {
	info, err := b.ctx.Executor.Execute(call, b.ctx)
	if err != nil {
		return nil, err
	}

	b.internalCalls = append(b.internalCalls, info)

	return info, nil
}

// deploy fails the whole run on an undeclared class or a taken address;
// the deprecated ABI has no failure responses.
func (b *BusinessLogicHandler) deploy(req *structs.Record) (*felt.Felt, error) {
	fromZero, ok := types.FeltToUint64(req.Felt("deploy_from_zero"))
	if !ok || fromZero > 1 {
		return nil, syscall.ErrInvalidDeployFromZero
	}

	deployer := b.entryPoint.ContractAddress
	if fromZero == 1 {
		deployer = new(felt.Felt)
	}

	calldata, err := b.readArray(req, "constructor_calldata_size", "constructor_calldata")
	if err != nil {
		return nil, err
	}

	classHash := req.Felt("class_hash")
	address := types.CalculateContractAddressFromHash(req.Felt("contract_address_salt"), classHash, calldata, deployer)

	if err := b.ctx.State.DeployContract(address, classHash); err != nil {
		return nil, err
	}

	class, err := b.ctx.State.GetCompiledClass(classHash)
	if err != nil {
		return nil, err
	}

	if !class.HasConstructor() {
		if len(calldata) > 0 {
			return nil, syscall.ErrCalldataToNoCtor
		}

		b.internalCalls = append(b.internalCalls, types.EmptyConstructorCall(address, b.entryPoint.ContractAddress, classHash))

		return address, nil
	}

	info, err := b.executeInnerCall(&types.CallEntryPoint{
		CallType:           types.CallTypeCall,
		ContractAddress:    address,
		ClassHash:          classHash,
		CodeAddress:        address,
		EntryPointSelector: types.ConstructorSelector,
		EntryPointType:     types.EntryPointTypeConstructor,
		Calldata:           calldata,
		CallerAddress:      b.entryPoint.ContractAddress,
		InitialGas:         b.ctx.Config.InitialGas,
	})
	if err != nil {
		return nil, err
	}

	if info.Failed {
		return nil, fmt.Errorf("%w: constructor of %s", ErrNestedCallFailed, address)
	}

	return address, nil
}

func (b *BusinessLogicHandler) storageRead(address *felt.Felt) (*felt.Felt, error) {
	return b.storage.Read(address)
}

func (b *BusinessLogicHandler) storageWrite(address, value *felt.Felt) error {
	return b.storage.Write(address, value)
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
		return syscall.NewStarknetError(syscall.CodeUndeclaredClass, "class with hash %s is not declared", classHash)
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

func (b *BusinessLogicHandler) blockInfo() *types.BlockInfo {
	return b.ctx.State.BlockInfo()
}

func (b *BusinessLogicHandler) callerAddress() (*felt.Felt, error) {
	return orZero(b.entryPoint.CallerAddress), nil
}

func (b *BusinessLogicHandler) contractAddress() (*felt.Felt, error) {
	return b.entryPoint.ContractAddress, nil
}

// txInfoPtr lays out the signature and the TxInfo once per call.
func (b *BusinessLogicHandler) txInfoPtr() (types.Relocatable, error) {
	if b.txInfo != nil {
		return *b.txInfo, nil
	}

	tx := b.ctx.TxContext

	signature, err := b.readOnly.AllocateFelts(tx.Signature)
	if err != nil {
		return types.Relocatable{}, err
	}

	ptr, err := b.readOnly.Allocate(txInfoRecord(tx, b.ctx.Config.ChainID, signature).Values())
	if err != nil {
		return types.Relocatable{}, err
	}

	b.txInfo = &ptr

	return ptr, nil
}

func (b *BusinessLogicHandler) allocateSegment(data []types.MaybeRelocatable) (types.Relocatable, error) {
	return b.readOnly.Allocate(data)
}

func (b *BusinessLogicHandler) countSyscall(name string) {
	b.ctx.Resources.IncSyscallCounter(name, 1)
}
