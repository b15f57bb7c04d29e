package syscall

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

// OsHandler replays syscalls from a recorded execution. Nothing is executed
// again; nested call results and storage reads come from the helper, and
// side effects are dropped.
type OsHandler struct {
	*Handler

	helper         *ExecutionHelper
	syscallCounter map[string]uint64
}

func NewOsHandler(helper *ExecutionHelper, segments Segments, logger hclog.Logger, metrics *Metrics) *OsHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	o := &OsHandler{
		helper:         helper,
		syscallCounter: make(map[string]uint64),
	}

	o.Handler = newHandler(o, segments, nil, logger.Named("os"), metrics)

	return o
}

func (o *OsHandler) Helper() *ExecutionHelper {
	return o.helper
}

// SyscallCounter returns the number of replayed syscalls per name.
func (o *OsHandler) SyscallCounter() map[string]uint64 {
	return o.syscallCounter
}

// SetSyscallPtr starts the replay of a call whose syscall segment starts at
// ptr.
func (o *OsHandler) SetSyscallPtr(ptr types.Relocatable) error {
	if o.syscallPtr != nil {
		return ErrSyscallPtrAlreadySet
	}

	o.syscallPtr = &ptr

	return nil
}

// ValidateAndDiscardSyscallPtr ends the replay of a call that stopped at end.
func (o *OsHandler) ValidateAndDiscardSyscallPtr(end types.Relocatable) error {
	expected, err := o.SyscallPtr()
	if err != nil {
		return err
	}

	if expected != end {
		o.logger.Error("bad syscall_ptr_end", "expected", expected, "actual", end)

		return fmt.Errorf("%w: bad syscall_ptr_end, expected %s, got %s", ErrSyscallPtrMismatch, expected, end)
	}

	o.syscallPtr = nil

	return nil
}

func (o *OsHandler) checkAllowed(string) error {
	return nil
}

func (o *OsHandler) currentBlockNumber() uint64 {
	return o.helper.BlockInfo().BlockNumber
}

func (o *OsHandler) callContractHelper(uint64, *structs.Record, string) (*types.CallResult, error) {
	return o.helper.NextCallResult()
}

func (o *OsHandler) deploy(uint64, *structs.Record) (*felt.Felt, *types.CallResult, error) {
	result, err := o.helper.NextCallResult()
	if err != nil {
		return nil, nil, err
	}

	address, err := o.helper.NextDeployedContract()
	if err != nil {
		return nil, nil, err
	}

	return address, result, nil
}

// getBlockHash reads the block-hash contract directly. It is written only at
// the start of the block, so the read does not depend on replay order.
func (o *OsHandler) getBlockHash(blockNumber uint64) (*felt.Felt, error) {
	return o.helper.readBlockHash(blockNumber)
}

func (o *OsHandler) getExecutionInfoPtr() (types.Relocatable, error) {
	return o.helper.CallExecutionInfoPtr()
}

func (o *OsHandler) storageRead(*felt.Felt) (*felt.Felt, error) {
	return o.helper.NextStorageRead()
}

func (o *OsHandler) storageWrite(_, _ *felt.Felt) error {
	return nil
}

func (o *OsHandler) emitEvent(_, _ []*felt.Felt) error {
	return nil
}

func (o *OsHandler) replaceClass(*felt.Felt) error {
	return nil
}

func (o *OsHandler) sendMessageToL1(*felt.Felt, []*felt.Felt) error {
	return nil
}

func (o *OsHandler) keccak(uint64) {}

func (o *OsHandler) countSyscall(name string) {
	o.syscallCounter[name]++
}

func (o *OsHandler) allocateSegment(data []types.MaybeRelocatable) (types.Relocatable, error) {
	start := o.segments.Add()
	if _, err := o.segments.Write(start, data...); err != nil {
		return start, err
	}

	return start, nil
}

// allocateSegmentForRetdata uses a temporary segment; it is not size-checked.
func (o *OsHandler) allocateSegmentForRetdata(retdata []*felt.Felt) (types.Relocatable, error) {
	start := o.segments.AddTempSegment()
	if _, err := o.segments.Write(start, feltValues(retdata)...); err != nil {
		return start, err
	}

	return start, nil
}

// AllocateExecutionInfo lays out an ExecutionInfo in fresh segments for the
// OS to hand to EnterCall.
func (o *OsHandler) AllocateExecutionInfo(p *ExecutionInfoParams) (types.Relocatable, error) {
	return AllocateExecutionInfo(o.allocateSegment, p)
}
