package syscall

import (
	"context"
	"fmt"
	"sort"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/types"
)

// OsStorage is the storage of one contract as known to the OS: its
// pre-block tree plus the block's writes.
type OsStorage interface {
	Read(key *felt.Felt) (*felt.Felt, bool)
	ComputeCommitment(ctx context.Context) (*types.StorageCommitment, error)
}

// cursor is a single pass over a precomputed sequence.
type cursor[T any] struct {
	name  string
	items []T
	pos   int
}

func newCursor[T any](name string, items []T) *cursor[T] {
	return &cursor[T]{name: name, items: items}
}

func (c *cursor[T]) next() (T, error) {
	var zero T

	if c == nil || c.pos >= len(c.items) {
		name := "empty"
		if c != nil {
			name = c.name
		}

		return zero, fmt.Errorf("%w: %s", ErrIteratorExhausted, name)
	}

	item := c.items[c.pos]
	c.pos++

	return item, nil
}

func (c *cursor[T]) remaining() int {
	if c == nil {
		return 0
	}

	return len(c.items) - c.pos
}

func (c *cursor[T]) checkExhausted() error {
	if n := c.remaining(); n > 0 {
		return fmt.Errorf("%w: %s has %d items left", ErrIteratorNotExhausted, c.name, n)
	}

	return nil
}

type blockNumberAndHash struct {
	number uint64
	hash   *felt.Felt
}

// ExecutionHelper walks the recorded execution of a block, transaction by
// transaction and call by call, handing out the recorded results the OS
// syscall handler replays.
type ExecutionHelper struct {
	logger hclog.Logger

	blockInfo        *types.BlockInfo
	storageByAddress map[felt.Felt]OsStorage
	oldBlockHash     *blockNumberAndHash
	daSegment        []*felt.Felt

	txs       *cursor[*types.TransactionExecutionInfo]
	tx        *types.TransactionExecutionInfo
	txInfoPtr *types.Relocatable

	calls                *cursor[*types.CallInfo]
	call                 *types.CallInfo
	callExecutionInfoPtr *types.Relocatable

	deployedContracts *cursor[*felt.Felt]
	results           *cursor[*types.CallResult]
	executeCodeReads  *cursor[*felt.Felt]
}

// NewExecutionHelper prepares the replay of txs. storageByAddress must hold
// the block-hash contract once the block is past the stored hash buffer.
func NewExecutionHelper(
	txs []*types.TransactionExecutionInfo,
	storageByAddress map[felt.Felt]OsStorage,
	blockInfo *types.BlockInfo,
	logger hclog.Logger,
) (*ExecutionHelper, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	e := &ExecutionHelper{
		logger:           logger.Named("execution-helper"),
		blockInfo:        blockInfo,
		storageByAddress: storageByAddress,
		txs:              newCursor("tx_execution_info", txs),
	}

	if blockInfo.BlockNumber >= params.StoredBlockHashBuffer {
		oldNumber := blockInfo.BlockNumber - params.StoredBlockHashBuffer

		hash, err := e.readBlockHash(oldNumber)
		if err != nil {
			return nil, err
		}

		e.oldBlockHash = &blockNumberAndHash{number: oldNumber, hash: hash}
	}

	return e, nil
}

func (e *ExecutionHelper) readBlockHash(blockNumber uint64) (*felt.Felt, error) {
	address := types.FeltFromUint64(params.BlockHashContractAddress)

	storage, ok := e.storageByAddress[*address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingStorage, address)
	}

	hash, ok := storage.Read(types.FeltFromUint64(blockNumber))
	if !ok {
		return nil, fmt.Errorf("%w: %s has no hash for block %d", ErrMissingStorage, address, blockNumber)
	}

	return hash, nil
}

func (e *ExecutionHelper) BlockInfo() *types.BlockInfo {
	return e.blockInfo
}

// OldBlockNumberAndHash returns the block STORED_BLOCK_HASH_BUFFER blocks
// back and its hash, the entry this block writes to the block-hash contract.
func (e *ExecutionHelper) OldBlockNumberAndHash() (uint64, *felt.Felt, error) {
	if e.oldBlockHash == nil {
		return 0, nil, ErrNoOldBlockHash
	}

	return e.oldBlockHash.number, e.oldBlockHash.hash, nil
}

func (e *ExecutionHelper) StoreDASegment(segment []*felt.Felt) error {
	if e.daSegment != nil {
		return ErrDASegmentAlreadySet
	}

	e.daSegment = types.CopyFelts(segment)

	return nil
}

func (e *ExecutionHelper) DASegment() ([]*felt.Felt, error) {
	if e.daSegment == nil {
		return nil, ErrDASegmentNotSet
	}

	return e.daSegment, nil
}

// ComputeStorageCommitments computes every contract's commitment
// concurrently. The result is ordered by contract address.
func (e *ExecutionHelper) ComputeStorageCommitments(ctx context.Context) ([]*types.StorageCommitment, error) {
	addresses := make([]felt.Felt, 0, len(e.storageByAddress))
	for addr := range e.storageByAddress {
		addresses = append(addresses, addr)
	}

	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].Cmp(&addresses[j]) < 0
	})

	commitments := make([]*types.StorageCommitment, len(addresses))

	g, gctx := errgroup.WithContext(ctx)

	for i, addr := range addresses {
		i, storage := i, e.storageByAddress[addr]

		g.Go(func() error {
			c, err := storage.ComputeCommitment(gctx)
			if err != nil {
				return err
			}

			commitments[i] = c

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return commitments, nil
}

// StartTx moves to the next transaction. txInfoPtr may be nil for
// transactions the OS does not execute.
func (e *ExecutionHelper) StartTx(txInfoPtr *types.Relocatable) error {
	if e.tx != nil || e.txInfoPtr != nil {
		return ErrAlreadyInTx
	}

	tx, err := e.txs.next()
	if err != nil {
		return err
	}

	e.tx = tx
	e.txInfoPtr = txInfoPtr
	e.calls = newCursor("call", tx.FlattenCalls())

	return nil
}

func (e *ExecutionHelper) EndTx() error {
	if err := e.calls.checkExhausted(); err != nil {
		return err
	}

	if e.tx == nil {
		return ErrNotInTx
	}

	e.tx = nil
	e.txInfoPtr = nil

	return nil
}

// SkipTx accounts for a transaction that issued no calls.
func (e *ExecutionHelper) SkipTx() error {
	if err := e.StartTx(nil); err != nil {
		return err
	}

	return e.EndTx()
}

func (e *ExecutionHelper) TxInfoPtr() (types.Relocatable, error) {
	if e.txInfoPtr == nil {
		return types.Relocatable{}, ErrNotInTx
	}

	return *e.txInfoPtr, nil
}

// EnterCall moves to the next call of the current transaction and prepares
// the replay of its inner calls and storage reads.
func (e *ExecutionHelper) EnterCall(executionInfoPtr *types.Relocatable) error {
	if e.callExecutionInfoPtr != nil {
		return ErrAlreadyInCall
	}

	if err := e.checkIteratorsExhausted(); err != nil {
		return err
	}

	if e.call != nil {
		return ErrAlreadyInCall
	}

	call, err := e.calls.next()
	if err != nil {
		return err
	}

	e.call = call
	e.callExecutionInfoPtr = executionInfoPtr

	var (
		deployed = make([]*felt.Felt, 0)
		results  = make([]*types.CallResult, 0, len(call.InternalCalls))
	)

	for _, inner := range call.InternalCalls {
		if inner.IsConstructor() {
			deployed = append(deployed, inner.ContractAddress)
		}

		results = append(results, types.NewCallResult(inner))
	}

	e.deployedContracts = newCursor("deployed_contracts", deployed)
	e.results = newCursor("result", results)
	e.executeCodeReads = newCursor("execute_code_read", call.StorageReadValues)

	e.logger.Trace("enter call",
		"contract", call.ContractAddress, "selector", call.EntryPointSelector,
		"internal_calls", len(call.InternalCalls))

	return nil
}

func (e *ExecutionHelper) ExitCall() error {
	e.callExecutionInfoPtr = nil

	if err := e.checkIteratorsExhausted(); err != nil {
		return err
	}

	if e.call == nil {
		return ErrNotInCall
	}

	e.call = nil

	return nil
}

// SkipCall accounts for a call that ran no code.
func (e *ExecutionHelper) SkipCall() error {
	if err := e.EnterCall(nil); err != nil {
		return err
	}

	return e.ExitCall()
}

func (e *ExecutionHelper) CallInfo() (*types.CallInfo, error) {
	if e.call == nil {
		return nil, ErrNotInCall
	}

	return e.call, nil
}

func (e *ExecutionHelper) CallExecutionInfoPtr() (types.Relocatable, error) {
	if e.callExecutionInfoPtr == nil {
		return types.Relocatable{}, ErrExecutionInfoPtrNotSet
	}

	return *e.callExecutionInfoPtr, nil
}

// CheckTxsExhausted reports transactions that were never started.
func (e *ExecutionHelper) CheckTxsExhausted() error {
	return e.txs.checkExhausted()
}

func (e *ExecutionHelper) checkIteratorsExhausted() error {
	var err error

	for _, check := range []func() error{
		e.deployedContracts.checkExhausted,
		e.results.checkExhausted,
		e.executeCodeReads.checkExhausted,
	} {
		if subErr := check(); subErr != nil {
			err = multierror.Append(err, subErr)
		}
	}

	return err
}

// NextCallResult returns the recorded result of the next inner call of the
// current call.
func (e *ExecutionHelper) NextCallResult() (*types.CallResult, error) {
	return e.results.next()
}

func (e *ExecutionHelper) NextDeployedContract() (*felt.Felt, error) {
	return e.deployedContracts.next()
}

// NextStorageRead returns the next value the current call read from its
// storage.
func (e *ExecutionHelper) NextStorageRead() (*felt.Felt, error) {
	return e.executeCodeReads.next()
}
