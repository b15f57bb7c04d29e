package storage

import (
	"math/big"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/types"
)

// TreeHeight is the height of a contract storage tree: keys are 251-bit.
const TreeHeight = 251

type leaf struct {
	key   *big.Int
	value *felt.Felt
}

// subtree is a node together with the edge leading down to it.
type subtree struct {
	hash   *felt.Felt
	path   *big.Int
	length int
}

// hash is the value the parent sees: an edge hashes as
// H(child, path) + length.
func (s subtree) edgeHash() *felt.Felt {
	if s.length == 0 {
		return s.hash
	}

	h := types.Pedersen(s.hash, types.FeltFromBig(s.path))

	return new(felt.Felt).Add(h, types.FeltFromUint64(uint64(s.length)))
}

// commit hashes the leaves below depth. leaves are sorted by key, non-empty
// and share the first depth bits.
func commit(leaves []leaf, depth int) subtree {
	if depth == TreeHeight {
		return subtree{hash: leaves[0].value, path: new(big.Int)}
	}

	bit := uint(TreeHeight - 1 - depth)

	split := len(leaves)
	for i, l := range leaves {
		if l.key.Bit(int(bit)) == 1 {
			split = i

			break
		}
	}

	if split == 0 || split == len(leaves) {
		child := commit(leaves, depth+1)

		path := new(big.Int).Set(child.path)
		if split == 0 {
			path.SetBit(path, child.length, 1)
		}

		return subtree{hash: child.hash, path: path, length: child.length + 1}
	}

	left := commit(leaves[:split], depth+1).edgeHash()
	right := commit(leaves[split:], depth+1).edgeHash()

	return subtree{hash: types.Pedersen(left, right), path: new(big.Int)}
}

// root is the Patricia-Merkle root of a storage whose non-zero values are
// given in ascending key order. An empty storage has root zero.
func root(leaves []leaf) *felt.Felt {
	if len(leaves) == 0 {
		return new(felt.Felt)
	}

	return commit(leaves, 0).edgeHash()
}
