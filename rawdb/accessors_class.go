package rawdb

import (
	"encoding/json"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/ethdb"
	"github.com/sunvim/starkos/types"
)

func WriteCompiledClass(db ethdb.Database, classHash *felt.Felt, class *types.CompiledClass) error {
	data, err := json.Marshal(class)
	if err != nil {
		return err
	}

	key := classHash.Bytes()

	return db.Set(ethdb.ClassDBI, key[:], data)
}

// ReadCompiledClass returns the class declared under classHash and whether
// it was found.
func ReadCompiledClass(db ethdb.Database, classHash *felt.Felt) (*types.CompiledClass, bool, error) {
	key := classHash.Bytes()

	v, ok, err := db.Get(ethdb.ClassDBI, key[:])
	if err != nil || !ok {
		return nil, false, err
	}

	class := &types.CompiledClass{}
	if err := json.Unmarshal(v, class); err != nil {
		return nil, false, err
	}

	return class, true, nil
}

func WriteBlockInfo(db ethdb.Database, info *types.BlockInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return db.Set(ethdb.BlockInfoDBI, encodeBlockNumber(info.BlockNumber), data)
}

func ReadBlockInfo(db ethdb.Database, number uint64) (*types.BlockInfo, bool, error) {
	v, ok, err := db.Get(ethdb.BlockInfoDBI, encodeBlockNumber(number))
	if err != nil || !ok {
		return nil, false, err
	}

	info := &types.BlockInfo{}
	if err := json.Unmarshal(v, info); err != nil {
		return nil, false, err
	}

	return info, true, nil
}
