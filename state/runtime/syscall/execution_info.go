package syscall

import (
	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

// Allocator writes data into a fresh segment and returns its start.
type Allocator func(data []types.MaybeRelocatable) (types.Relocatable, error)

// ExecutionInfoParams is what an ExecutionInfo struct is built from.
type ExecutionInfoParams struct {
	Block      *types.BlockInfo
	Tx         *types.TransactionExecutionContext
	EntryPoint *types.CallEntryPoint
	Config     *params.GeneralConfig
}

// AllocateExecutionInfo lays out the ExecutionInfo of a call, with its
// BlockInfo, TxInfo and signature in segments of their own, and returns the
// pointer to it. In VALIDATE mode the block info is coarsened.
func AllocateExecutionInfo(alloc Allocator, p *ExecutionInfoParams) (types.Relocatable, error) {
	signature := p.Tx.Signature

	signatureStart, err := alloc(feltValues(signature))
	if err != nil {
		return types.Relocatable{}, err
	}

	blockInfoPtr, err := alloc(blockInfoRecord(p.Block, p.Tx.ExecutionMode, p.Config).Values())
	if err != nil {
		return types.Relocatable{}, err
	}

	txInfo := TxInfoRecord(p.Tx, p.Config.ChainID, signatureStart)

	txInfoPtr, err := alloc(txInfo.Values())
	if err != nil {
		return types.Relocatable{}, err
	}

	info := structs.ExecutionInfo.New(
		types.PtrValue(blockInfoPtr),
		types.PtrValue(txInfoPtr),
		types.FeltValue(orZero(p.EntryPoint.CallerAddress)),
		types.FeltValue(orZero(p.EntryPoint.ContractAddress)),
		types.FeltValue(orZero(p.EntryPoint.EntryPointSelector)),
	)

	return alloc(info.Values())
}

func blockInfoRecord(block *types.BlockInfo, mode types.ExecutionMode, cfg *params.GeneralConfig) *structs.Record {
	number, timestamp := block.BlockNumber, block.BlockTimestamp
	sequencer := orZero(block.SequencerAddress)

	if mode == types.ExecutionModeValidate {
		number = number / cfg.ValidateBlockNumberRounding * cfg.ValidateBlockNumberRounding
		timestamp = timestamp / cfg.ValidateTimestampRounding * cfg.ValidateTimestampRounding
		sequencer = new(felt.Felt)
	}

	return structs.BlockInfo.New(
		types.Uint64Value(number),
		types.Uint64Value(timestamp),
		types.FeltValue(sequencer),
	)
}

// TxInfoRecord builds the TxInfo of a pre-v3 transaction whose signature was
// written at signatureStart. The v3 fields are zero.
func TxInfoRecord(tx *types.TransactionExecutionContext, chainID string, signatureStart types.Relocatable) *structs.Record {
	zero := types.Uint64Value(0)

	return structs.TxInfo.New(
		types.FeltValue(orZero(tx.Version)),
		types.FeltValue(orZero(tx.AccountContractAddress)),
		types.FeltValue(orZero(tx.MaxFee)),
		types.PtrValue(signatureStart),
		types.PtrValue(signatureStart.Add(uint64(len(tx.Signature)))),
		types.FeltValue(orZero(tx.TransactionHash)),
		types.FeltValue(types.ShortString(chainID)),
		types.FeltValue(orZero(tx.Nonce)),
		zero, zero,
		zero,
		zero, zero,
		zero, zero,
		zero, zero,
	)
}

func orZero(f *felt.Felt) *felt.Felt {
	if f == nil {
		return new(felt.Felt)
	}

	return f
}
