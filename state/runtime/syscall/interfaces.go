package syscall

import (
	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

// Segments is the VM memory as seen by a syscall handler.
type Segments interface {
	structs.Memory

	Add() types.Relocatable
	AddTempSegment() types.Relocatable
	GetSegmentUsedSize(index int) (uint64, error)
}

// Runner is the part of the Cairo runner a handler reports to after a run.
type Runner interface {
	MarkAsAccessed(addr types.Relocatable, size uint64) error
}

// State is the mutable chain state business-logic execution runs against.
type State interface {
	BlockInfo() *types.BlockInfo

	GetStorageAt(domain types.DataAvailabilityMode, contract, key *felt.Felt) (*felt.Felt, error)
	SetStorageAt(domain types.DataAvailabilityMode, contract, key, value *felt.Felt) error

	GetClassHashAt(contract *felt.Felt) (*felt.Felt, error)
	SetClassHashAt(contract, classHash *felt.Felt) error

	// GetCompiledClassHash returns zero for undeclared classes.
	GetCompiledClassHash(classHash *felt.Felt) (*felt.Felt, error)
	GetCompiledClass(classHash *felt.Felt) (*types.CompiledClass, error)

	// DeployContract fails with an UNDECLARED_CLASS or
	// CONTRACT_ADDRESS_UNAVAILABLE StarknetError.
	DeployContract(contract, classHash *felt.Felt) error
}

// EntryPointExecutor runs a nested call to completion.
type EntryPointExecutor interface {
	Execute(call *types.CallEntryPoint, ctx *CallContext) (*types.CallInfo, error)
}

// CallContext is what every call of a transaction executes against.
type CallContext struct {
	State     State
	Executor  EntryPointExecutor
	Resources *types.ExecutionResourcesManager
	TxContext *types.TransactionExecutionContext
	Config    *params.GeneralConfig
}

// hooks are the mode-specific halves of the syscalls. The dispatcher owns
// request decoding, gas and response encoding; hooks own the effects.
type hooks interface {
	callContractHelper(gas uint64, req *structs.Record, syscallName string) (*types.CallResult, error)
	deploy(gas uint64, req *structs.Record) (*felt.Felt, *types.CallResult, error)
	getBlockHash(blockNumber uint64) (*felt.Felt, error)
	getExecutionInfoPtr() (types.Relocatable, error)
	storageRead(key *felt.Felt) (*felt.Felt, error)
	storageWrite(key, value *felt.Felt) error
	emitEvent(keys, data []*felt.Felt) error
	replaceClass(classHash *felt.Felt) error
	sendMessageToL1(toAddress *felt.Felt, payload []*felt.Felt) error
	keccak(nRounds uint64)

	allocateSegment(data []types.MaybeRelocatable) (types.Relocatable, error)
	allocateSegmentForRetdata(retdata []*felt.Felt) (types.Relocatable, error)

	countSyscall(name string)
	currentBlockNumber() uint64
	checkAllowed(syscallName string) error
}
