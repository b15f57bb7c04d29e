package types

import (
	"github.com/NethermindEth/juno/core/felt"
)

type ExecutionMode uint8

const (
	ExecutionModeGeneral ExecutionMode = iota
	ExecutionModeValidate
)

func (m ExecutionMode) String() string {
	switch m {
	case ExecutionModeGeneral:
		return "GENERAL"
	case ExecutionModeValidate:
		return "VALIDATE"
	default:
		return "UNKNOWN"
	}
}

// DataAvailabilityMode selects the storage domain of a read or write.
type DataAvailabilityMode uint8

const (
	DataAvailabilityModeL1 DataAvailabilityMode = iota
	DataAvailabilityModeL2
)

type BlockInfo struct {
	BlockNumber      uint64     `json:"block_number"`
	BlockTimestamp   uint64     `json:"block_timestamp"`
	SequencerAddress *felt.Felt `json:"sequencer_address"`
	StarknetVersion  string     `json:"starknet_version,omitempty"`
}

// TransactionExecutionContext holds the per-transaction data syscalls read,
// plus the running event and message counters.
type TransactionExecutionContext struct {
	AccountContractAddress *felt.Felt
	TransactionHash        *felt.Felt
	Signature              []*felt.Felt
	MaxFee                 *felt.Felt
	Nonce                  *felt.Felt
	Version                *felt.Felt
	NSteps                 uint64
	ExecutionMode          ExecutionMode

	NEmittedEvents uint64
	NSentMessages  uint64
}

func NewTransactionExecutionContext(
	account, txHash *felt.Felt,
	signature []*felt.Felt,
	maxFee, nonce, version *felt.Felt,
	nSteps uint64,
	mode ExecutionMode,
) *TransactionExecutionContext {
	return &TransactionExecutionContext{
		AccountContractAddress: account,
		TransactionHash:        txHash,
		Signature:              signature,
		MaxFee:                 maxFee,
		Nonce:                  nonce,
		Version:                version,
		NSteps:                 nSteps,
		ExecutionMode:          mode,
	}
}

// TransactionExecutionInfo is the trace of one executed transaction.
type TransactionExecutionInfo struct {
	ValidateInfo    *CallInfo         `json:"validate_info,omitempty"`
	CallInfo        *CallInfo         `json:"call_info,omitempty"`
	FeeTransferInfo *CallInfo         `json:"fee_transfer_info,omitempty"`
	ActualFee       uint64            `json:"actual_fee"`
	ActualResources map[string]uint64 `json:"actual_resources,omitempty"`
	TxType          string            `json:"tx_type,omitempty"`
	RevertError     string            `json:"revert_error,omitempty"`
}

// NonOptionalCalls returns the top-level calls that were actually executed,
// in execution order.
func (t *TransactionExecutionInfo) NonOptionalCalls() []*CallInfo {
	calls := make([]*CallInfo, 0, 3)

	for _, c := range []*CallInfo{t.ValidateInfo, t.CallInfo, t.FeeTransferInfo} {
		if c != nil {
			calls = append(calls, c)
		}
	}

	return calls
}

// FlattenCalls returns every call of the transaction in pre-order.
func (t *TransactionExecutionInfo) FlattenCalls() []*CallInfo {
	var out []*CallInfo
	for _, c := range t.NonOptionalCalls() {
		out = append(out, c.Flatten()...)
	}

	return out
}

// EntryPoint is one entry of a compiled class.
type EntryPoint struct {
	Selector *felt.Felt `json:"selector"`
	Offset   uint64     `json:"offset"`
}

// CompiledClass is the executable form of a declared class. Deprecated
// classes use the old syscall ABI.
type CompiledClass struct {
	Deprecated        bool                            `json:"deprecated"`
	EntryPointsByType map[EntryPointType][]EntryPoint `json:"entry_points_by_type"`
	Bytecode          []*felt.Felt                    `json:"bytecode,omitempty"`
}

func (c *CompiledClass) EntryPoints(typ EntryPointType) []EntryPoint {
	return c.EntryPointsByType[typ]
}

// HasConstructor reports whether the class declares a constructor.
func (c *CompiledClass) HasConstructor() bool {
	return len(c.EntryPointsByType[EntryPointTypeConstructor]) > 0
}

// StorageCommitment is the storage root of one contract before and after
// the block's writes.
type StorageCommitment struct {
	ContractAddress *felt.Felt `json:"contract_address"`
	PreviousRoot    *felt.Felt `json:"previous_root"`
	UpdatedRoot     *felt.Felt `json:"updated_root"`
}
