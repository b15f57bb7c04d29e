package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/dogechain-lab/dogechain/helper/hex"

	"github.com/sunvim/starkos/ethdb"
	"github.com/sunvim/starkos/rawdb"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/state/storage"
	"github.com/sunvim/starkos/types"
)

// Bundle is a recorded block: its info, the execution trace of every
// transaction and the storage of every contract the block touched. Storage
// keys and values are hex strings.
type Bundle struct {
	BlockInfo    *types.BlockInfo                  `json:"block_info"`
	Transactions []*types.TransactionExecutionInfo `json:"transactions"`
	Storage      map[string]*ContractStorage       `json:"storage"`
}

// ContractStorage is the storage of one contract before the block and the
// writes the block made to it.
type ContractStorage struct {
	Initial map[string]string `json:"initial"`
	Writes  map[string]string `json:"writes"`
}

func readBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{}
	if err := json.Unmarshal(data, bundle); err != nil {
		return nil, fmt.Errorf("could not parse trace bundle %s, %w", path, err)
	}

	if bundle.BlockInfo == nil {
		return nil, fmt.Errorf("trace bundle %s has no block_info", path)
	}

	return bundle, nil
}

func parseFelt(s string) (*felt.Felt, error) {
	digits := strings.TrimPrefix(s, "0x")
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}

	b, err := hex.DecodeHex(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid felt %q, %w", s, err)
	}

	if len(b) > 32 {
		return nil, fmt.Errorf("invalid felt %q, longer than 32 bytes", s)
	}

	return new(felt.Felt).SetBytes(b), nil
}

func parseStorageMap(m map[string]string) (map[felt.Felt]*felt.Felt, error) {
	out := make(map[felt.Felt]*felt.Felt, len(m))

	for k, v := range m {
		key, err := parseFelt(k)
		if err != nil {
			return nil, err
		}

		value, err := parseFelt(v)
		if err != nil {
			return nil, err
		}

		out[*key] = value
	}

	return out, nil
}

// storages builds the per-contract storage snapshots of the bundle.
func (b *Bundle) storages() (map[felt.Felt]syscall.OsStorage, error) {
	initial := make(map[felt.Felt]map[felt.Felt]*felt.Felt)
	writes := make(map[felt.Felt]map[felt.Felt]*felt.Felt)

	for addr, s := range b.Storage {
		address, err := parseFelt(addr)
		if err != nil {
			return nil, err
		}

		if initial[*address], err = parseStorageMap(s.Initial); err != nil {
			return nil, fmt.Errorf("storage of %s, %w", addr, err)
		}

		if writes[*address], err = parseStorageMap(s.Writes); err != nil {
			return nil, fmt.Errorf("storage of %s, %w", addr, err)
		}
	}

	return storage.FromDiff(initial, writes), nil
}

// importBundle stores the block info and the traces of b in db.
func importBundle(db ethdb.Database, b *Bundle) error {
	if err := rawdb.WriteBlockInfo(db, b.BlockInfo); err != nil {
		return err
	}

	return rawdb.WriteTxExecutionInfos(db, b.BlockInfo.BlockNumber, b.Transactions)
}

// loadBlock reads back what importBundle stored for block number.
func loadBlock(db ethdb.Database, number uint64) (*types.BlockInfo, []*types.TransactionExecutionInfo, error) {
	info, ok, err := rawdb.ReadBlockInfo(db, number)
	if err != nil {
		return nil, nil, err
	}

	if !ok {
		return nil, nil, fmt.Errorf("%w: block %d", ethdb.ErrNotFound, number)
	}

	txs, err := rawdb.ReadTxExecutionInfos(db, number)
	if err != nil {
		return nil, nil, err
	}

	return info, txs, nil
}
