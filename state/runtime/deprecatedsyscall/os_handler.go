package deprecatedsyscall

import (
	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

// OsHandler replays deprecated syscalls from the recorded execution held by
// the execution helper. It does not track the syscall pointer.
type OsHandler struct {
	*Handler

	helper         *syscall.ExecutionHelper
	syscallCounter map[string]uint64
}

func NewOsHandler(helper *syscall.ExecutionHelper, segments syscall.Segments, logger hclog.Logger, metrics *syscall.Metrics) *OsHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	o := &OsHandler{
		helper:         helper,
		syscallCounter: make(map[string]uint64),
	}

	o.Handler = newHandler(o, segments, nil, logger.Named("deprecated-os"), metrics)

	return o
}

func (o *OsHandler) SyscallCounter() map[string]uint64 {
	return o.syscallCounter
}

// AllocateTxInfo lays out the deprecated TxInfo of tx for StartTx.
func (o *OsHandler) AllocateTxInfo(tx *types.TransactionExecutionContext, chainID string) (types.Relocatable, error) {
	signature, err := o.allocateSegment(feltValues(tx.Signature))
	if err != nil {
		return types.Relocatable{}, err
	}

	return o.allocateSegment(txInfoRecord(tx, chainID, signature).Values())
}

func (o *OsHandler) callContract(string, *structs.Record) ([]*felt.Felt, error) {
	result, err := o.helper.NextCallResult()
	if err != nil {
		return nil, err
	}

	return result.Retdata, nil
}

func (o *OsHandler) deploy(*structs.Record) (*felt.Felt, error) {
	if _, err := o.helper.NextCallResult(); err != nil {
		return nil, err
	}

	return o.helper.NextDeployedContract()
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

func (o *OsHandler) blockInfo() *types.BlockInfo {
	return o.helper.BlockInfo()
}

func (o *OsHandler) callerAddress() (*felt.Felt, error) {
	call, err := o.helper.CallInfo()
	if err != nil {
		return nil, err
	}

	return orZero(call.CallerAddress), nil
}

func (o *OsHandler) contractAddress() (*felt.Felt, error) {
	call, err := o.helper.CallInfo()
	if err != nil {
		return nil, err
	}

	return call.ContractAddress, nil
}

func (o *OsHandler) txInfoPtr() (types.Relocatable, error) {
	return o.helper.TxInfoPtr()
}

func (o *OsHandler) allocateSegment(data []types.MaybeRelocatable) (types.Relocatable, error) {
	start := o.segments.Add()
	if _, err := o.segments.Write(start, data...); err != nil {
		return start, err
	}

	return start, nil
}

func (o *OsHandler) countSyscall(name string) {
	o.syscallCounter[name]++
}
