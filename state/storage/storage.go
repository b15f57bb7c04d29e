// Package storage holds the per-contract storage the OS replays a block
// against: the storage before the block plus the block's writes, and the
// commitment of both.
package storage

import (
	"context"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

var _ syscall.OsStorage = (*OsSingleStarknetStorage)(nil)

// OsSingleStarknetStorage is the storage of one contract across a block.
// Keys are stored big endian, so walking a tree visits them in ascending
// order.
type OsSingleStarknetStorage struct {
	address  *felt.Felt
	previous *iradix.Tree
	updated  *iradix.Tree
}

func keyBytes(key *felt.Felt) []byte {
	b := key.Bytes()

	return b[:]
}

func buildTree(base *iradix.Tree, values map[felt.Felt]*felt.Felt) *iradix.Tree {
	txn := base.Txn()

	for k, v := range values {
		key := k
		txn.Insert(keyBytes(&key), new(felt.Felt).Set(v))
	}

	return txn.Commit()
}

// NewOsSingleStarknetStorage builds the storage of address from its values
// before the block and the block's writes.
func NewOsSingleStarknetStorage(address *felt.Felt, previous, writes map[felt.Felt]*felt.Felt) *OsSingleStarknetStorage {
	prev := buildTree(iradix.New(), previous)

	return &OsSingleStarknetStorage{
		address:  address,
		previous: prev,
		updated:  buildTree(prev, writes),
	}
}

func (s *OsSingleStarknetStorage) Address() *felt.Felt {
	return s.address
}

// Read returns the value of key after the block's writes.
func (s *OsSingleStarknetStorage) Read(key *felt.Felt) (*felt.Felt, bool) {
	v, ok := s.updated.Get(keyBytes(key))
	if !ok {
		return nil, false
	}

	return new(felt.Felt).Set(v.(*felt.Felt)), true
}

func leaves(t *iradix.Tree) []leaf {
	out := make([]leaf, 0, t.Len())

	t.Root().Walk(func(k []byte, v interface{}) bool {
		value := v.(*felt.Felt)
		if !value.IsZero() {
			out = append(out, leaf{key: new(big.Int).SetBytes(k), value: value})
		}

		return false
	})

	return out
}

// ComputeCommitment returns the storage root before and after the block.
func (s *OsSingleStarknetStorage) ComputeCommitment(ctx context.Context) (*types.StorageCommitment, error) {
	previous := root(leaves(s.previous))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &types.StorageCommitment{
		ContractAddress: s.address,
		PreviousRoot:    previous,
		UpdatedRoot:     root(leaves(s.updated)),
	}, nil
}

// FromDiff builds the storage of every contract in initial or diff.
func FromDiff(initial, diff map[felt.Felt]map[felt.Felt]*felt.Felt) map[felt.Felt]syscall.OsStorage {
	out := make(map[felt.Felt]syscall.OsStorage)

	for _, m := range []map[felt.Felt]map[felt.Felt]*felt.Felt{initial, diff} {
		for addr := range m {
			if _, ok := out[addr]; ok {
				continue
			}

			address := addr
			out[addr] = NewOsSingleStarknetStorage(&address, initial[addr], diff[addr])
		}
	}

	return out
}
