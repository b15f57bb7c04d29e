package state

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"
	iradix "github.com/hashicorp/go-immutable-radix"
	lru "github.com/hashicorp/golang-lru"

	"github.com/sunvim/starkos/ethdb"
	"github.com/sunvim/starkos/rawdb"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

const (
	classLruCacheSize = 1024
	feltLen           = 32
)

// Key prefixes of the single radix tree holding the state.
const (
	storagePrefix   byte = 's'
	classHashPrefix byte = 'c'
	declaredPrefix  byte = 'd'
)

// CachedState is the mutable state a block executes against. Storage,
// deployed contracts and declared classes live in one immutable radix tree,
// so a snapshot is a committed root and reverting is swapping it back.
// Compiled classes are read from the database through an LRU cache.
//
// A CachedState is not safe for concurrent use.
type CachedState struct {
	logger    hclog.Logger
	db        ethdb.Database
	blockInfo *types.BlockInfo

	base      *iradix.Tree
	txn       *iradix.Txn
	snapshots []*iradix.Tree

	classCache *lru.Cache
	metrics    *Metrics
}

func NewCachedState(db ethdb.Database, blockInfo *types.BlockInfo, logger hclog.Logger, metrics *Metrics) *CachedState {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	classCache, _ := lru.New(classLruCacheSize)
	base := iradix.New()

	return &CachedState{
		logger:     logger.Named("state"),
		db:         db,
		blockInfo:  blockInfo,
		base:       base,
		txn:        base.Txn(),
		classCache: classCache,
		metrics:    NewDummyMetrics(metrics),
	}
}

func storageKey(domain types.DataAvailabilityMode, contract, key *felt.Felt) []byte {
	c, k := contract.Bytes(), key.Bytes()

	out := make([]byte, 0, 2+2*feltLen)
	out = append(out, storagePrefix, byte(domain))
	out = append(out, c[:]...)

	return append(out, k[:]...)
}

func feltKey(prefix byte, f *felt.Felt) []byte {
	b := f.Bytes()

	return append([]byte{prefix}, b[:]...)
}

func (s *CachedState) getFelt(k []byte) *felt.Felt {
	v, ok := s.txn.Get(k)
	if !ok {
		return new(felt.Felt)
	}

	return new(felt.Felt).Set(v.(*felt.Felt))
}

func (s *CachedState) setFelt(k []byte, f *felt.Felt) {
	s.txn.Insert(k, new(felt.Felt).Set(f))
}

func (s *CachedState) BlockInfo() *types.BlockInfo {
	return s.blockInfo
}

// SetBlockInfo moves the state on to the next block.
func (s *CachedState) SetBlockInfo(info *types.BlockInfo) {
	s.blockInfo = info
}

func (s *CachedState) GetStorageAt(domain types.DataAvailabilityMode, contract, key *felt.Felt) (*felt.Felt, error) {
	return s.getFelt(storageKey(domain, contract, key)), nil
}

func (s *CachedState) SetStorageAt(domain types.DataAvailabilityMode, contract, key, value *felt.Felt) error {
	s.setFelt(storageKey(domain, contract, key), value)

	return nil
}

func (s *CachedState) GetClassHashAt(contract *felt.Felt) (*felt.Felt, error) {
	return s.getFelt(feltKey(classHashPrefix, contract)), nil
}

func (s *CachedState) SetClassHashAt(contract, classHash *felt.Felt) error {
	s.setFelt(feltKey(classHashPrefix, contract), classHash)

	return nil
}

// GetCompiledClassHash returns zero for undeclared classes and for
// declared deprecated classes.
func (s *CachedState) GetCompiledClassHash(classHash *felt.Felt) (*felt.Felt, error) {
	return s.getFelt(feltKey(declaredPrefix, classHash)), nil
}

func (s *CachedState) isDeclared(classHash *felt.Felt) bool {
	_, ok := s.txn.Get(feltKey(declaredPrefix, classHash))

	return ok
}

// DeclareClass stores class under classHash. compiledClassHash is zero for
// deprecated classes.
func (s *CachedState) DeclareClass(classHash, compiledClassHash *felt.Felt, class *types.CompiledClass) error {
	if err := rawdb.WriteCompiledClass(s.db, classHash, class); err != nil {
		return err
	}

	s.classCache.Add(*classHash, class)
	s.metrics.ClassLruCacheWrite.Add(1)

	s.setFelt(feltKey(declaredPrefix, classHash), compiledClassHash)

	return nil
}

func (s *CachedState) GetCompiledClass(classHash *felt.Felt) (*types.CompiledClass, error) {
	defer s.metrics.ClassLruCacheRead.Add(1)

	if cached, ok := s.classCache.Get(*classHash); ok {
		if class, ok := cached.(*types.CompiledClass); ok {
			s.metrics.ClassLruCacheHit.Add(1)

			return class, nil
		}
	}

	s.metrics.ClassLruCacheMiss.Add(1)

	class, ok, err := rawdb.ReadCompiledClass(s.db, classHash)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, classHash)
	}

	s.classCache.Add(*classHash, class)
	s.metrics.ClassLruCacheWrite.Add(1)

	return class, nil
}

func (s *CachedState) DeployContract(contract, classHash *felt.Felt) error {
	if !s.isDeclared(classHash) {
		return syscall.NewStarknetError(syscall.CodeUndeclaredClass, "class with hash %s is not declared", classHash)
	}

	current, err := s.GetClassHashAt(contract)
	if err != nil {
		return err
	}

	if !current.IsZero() {
		return syscall.NewStarknetError(syscall.CodeContractAddressUnavailable,
			"requested contract address %s is unavailable for deployment", contract)
	}

	s.logger.Trace("deploy contract", "address", contract, "class_hash", classHash)

	return s.SetClassHashAt(contract, classHash)
}

// Snapshot returns an id RevertToSnapshot can roll the state back to.
func (s *CachedState) Snapshot() int {
	t := s.txn.CommitOnly()

	id := len(s.snapshots)
	s.snapshots = append(s.snapshots, t)

	return id
}

// RevertToSnapshot drops every change made since snapshot id was taken,
// along with the snapshots taken after it.
func (s *CachedState) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("%w: %d", ErrInvalidSnapshot, id)
	}

	s.txn = s.snapshots[id].Txn()
	s.snapshots = s.snapshots[:id]
	s.metrics.Reverts.Add(1)

	return nil
}

// StorageDiff returns the L1-domain storage values that differ from the
// committed base, by contract and key.
func (s *CachedState) StorageDiff() map[felt.Felt]map[felt.Felt]*felt.Felt {
	diff := make(map[felt.Felt]map[felt.Felt]*felt.Felt)
	current := s.txn.CommitOnly()

	current.Root().WalkPrefix([]byte{storagePrefix, byte(types.DataAvailabilityModeL1)}, func(k []byte, v interface{}) bool {
		value := v.(*felt.Felt)

		if old, ok := s.base.Get(k); ok && old.(*felt.Felt).Equal(value) {
			return false
		}

		contract := new(felt.Felt).SetBytes(k[2 : 2+feltLen])
		key := new(felt.Felt).SetBytes(k[2+feltLen:])

		if diff[*contract] == nil {
			diff[*contract] = make(map[felt.Felt]*felt.Felt)
		}

		diff[*contract][*key] = new(felt.Felt).Set(value)

		return false
	})

	return diff
}

// DeployedContracts returns the class hash of every contract deployed or
// replaced since the last Commit.
func (s *CachedState) DeployedContracts() map[felt.Felt]*felt.Felt {
	out := make(map[felt.Felt]*felt.Felt)
	current := s.txn.CommitOnly()

	current.Root().WalkPrefix([]byte{classHashPrefix}, func(k []byte, v interface{}) bool {
		classHash := v.(*felt.Felt)

		if old, ok := s.base.Get(k); ok && old.(*felt.Felt).Equal(classHash) {
			return false
		}

		out[*new(felt.Felt).SetBytes(k[1:])] = new(felt.Felt).Set(classHash)

		return false
	})

	return out
}

// Commit makes the current state the base later diffs are taken against.
func (s *CachedState) Commit() {
	s.base = s.txn.CommitOnly()
	s.txn = s.base.Txn()
	s.snapshots = nil
}
