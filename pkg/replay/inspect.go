package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/dogechain-lab/dogechain/helper/hex"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/ethdb/memorydb"
	"github.com/sunvim/starkos/state"
	"github.com/sunvim/starkos/types"
)

var errBlockMismatch = errors.New("bundle holds another block")

// InspectResult is what inspecting one bundle found.
type InspectResult struct {
	Block        uint64                     `json:"block"`
	Transactions int                        `json:"transactions"`
	Calls        int                        `json:"calls"`
	SkippedCalls int                        `json:"skipped_calls"`
	Commitments  []*types.StorageCommitment `json:"commitments"`
}

func (r *InspectResult) GetOutput() string {
	var buf bytes.Buffer

	buf.WriteString("[BLOCK]\n")
	fmt.Fprintf(&buf, "Number        = %d\n", r.Block)
	fmt.Fprintf(&buf, "Transactions  = %d\n", r.Transactions)
	fmt.Fprintf(&buf, "Calls         = %d\n", r.Calls)
	fmt.Fprintf(&buf, "Skipped calls = %d\n", r.SkippedCalls)

	buf.WriteString("\n[STORAGE COMMITMENTS]\n")

	for _, c := range r.Commitments {
		fmt.Fprintf(&buf, "%s\n  previous = %s\n  updated  = %s\n",
			c.ContractAddress, feltHex(c.PreviousRoot), feltHex(c.UpdatedRoot))
	}

	return buf.String()
}

func feltHex(f *felt.Felt) string {
	b := f.Bytes()

	return hex.EncodeToHex(b[:])
}

// Inspect imports bundle into a scratch trace store, reads the block back
// and checks its traces against the OS bookkeeping.
func Inspect(ctx context.Context, config *InspectConfig, bundle *Bundle, logger hclog.Logger) (*InspectResult, error) {
	number := bundle.BlockInfo.BlockNumber
	if config.Block != nil && *config.Block != number {
		return nil, fmt.Errorf("%w: want %d, found %d", errBlockMismatch, *config.Block, number)
	}

	db := memorydb.New()
	defer db.Close()

	if err := importBundle(db, bundle); err != nil {
		return nil, fmt.Errorf("could not import bundle, %w", err)
	}

	info, txs, err := loadBlock(db, number)
	if err != nil {
		return nil, err
	}

	storages, err := bundle.storages()
	if err != nil {
		return nil, err
	}

	logger.Info("inspect block", "number", number, "txs", len(txs), "contracts", len(storages))

	commitments, err := state.NewReplayer(config.General, nil, logger, nil).CheckBlock(ctx, info, txs, storages)
	if err != nil {
		return nil, err
	}

	result := &InspectResult{
		Block:        number,
		Transactions: len(txs),
		Commitments:  commitments,
	}

	for _, tx := range txs {
		for _, call := range tx.FlattenCalls() {
			result.Calls++

			if call.Skipped() {
				result.SkippedCalls++
			}
		}
	}

	return result, nil
}
