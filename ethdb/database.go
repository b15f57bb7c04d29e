package ethdb

import "fmt"

var (
	TraceDBI     = "trace"     // transaction execution infos by block number
	ClassDBI     = "class"     // compiled classes by class hash
	BlockInfoDBI = "blockinfo" // block info by block number
	AssistDBI    = "assist"
)

var (
	ErrNotFound = fmt.Errorf("Not Found")
)

type Setter interface {
	Set(dbi string, k, v []byte) error
}

type Getter interface {
	Get(dbi string, k []byte) ([]byte, bool, error)
}

type Batch interface {
	Setter
	Write() error
}

type Closer interface {
	Close() error
}

type Remover interface {
	Remove(dbi string, k []byte) error
}

type Syncer interface {
	Sync() error
}

type Database interface {
	Setter
	Getter
	Closer
	Remover
	Syncer
	Batch() Batch
}
