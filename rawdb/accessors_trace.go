package rawdb

import (
	"fmt"

	"github.com/dogechain-lab/fastrlp"

	"github.com/sunvim/starkos/ethdb"
	"github.com/sunvim/starkos/types"
)

// WriteTxExecutionInfos stores the execution traces of every transaction of
// a block and moves the latest traced block forward.
func WriteTxExecutionInfos(db ethdb.Database, number uint64, infos []*types.TransactionExecutionInfo) error {
	ar := fastrlp.DefaultArenaPool.Get()
	defer fastrlp.DefaultArenaPool.Put(ar)

	list := ar.NewNullArray()
	if len(infos) > 0 {
		list = ar.NewArray()
		for _, info := range infos {
			list.Set(info.MarshalRLPWith(ar))
		}
	}

	batch := db.Batch()

	if err := batch.Set(ethdb.TraceDBI, encodeBlockNumber(number), list.MarshalTo(nil)); err != nil {
		return err
	}

	if latest, ok := ReadLatestTraceBlock(db); !ok || number > latest {
		if err := batch.Set(ethdb.AssistDBI, latestTraceBlock, encodeBlockNumber(number)); err != nil {
			return err
		}
	}

	return batch.Write()
}

// ReadTxExecutionInfos returns the traces stored for a block, or
// ethdb.ErrNotFound.
func ReadTxExecutionInfos(db ethdb.Database, number uint64) ([]*types.TransactionExecutionInfo, error) {
	v, ok, err := db.Get(ethdb.TraceDBI, encodeBlockNumber(number))
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("traces of block %d: %w", number, ethdb.ErrNotFound)
	}

	p := fastrlp.DefaultParserPool.Get()
	defer fastrlp.DefaultParserPool.Put(p)

	list, err := p.Parse(v)
	if err != nil {
		return nil, err
	}

	elems, err := list.GetElems()
	if err != nil {
		return nil, err
	}

	infos := make([]*types.TransactionExecutionInfo, len(elems))

	for i, elem := range elems {
		infos[i] = &types.TransactionExecutionInfo{}
		if err := infos[i].UnmarshalRLPFrom(p, elem); err != nil {
			return nil, fmt.Errorf("trace %d of block %d: %w", i, number, err)
		}
	}

	return infos, nil
}

func ReadLatestTraceBlock(db ethdb.Database) (uint64, bool) {
	v, ok, err := db.Get(ethdb.AssistDBI, latestTraceBlock)
	if err != nil || !ok {
		return 0, false
	}

	return decodeBlockNumber(v)
}
