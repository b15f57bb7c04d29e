// Package memorydb is an ethdb.Database kept entirely in memory. Every table
// is an immutable radix tree, so readers never block on a batch write.
package memorydb

import (
	"errors"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/sunvim/starkos/ethdb"
)

var ErrClosed = errors.New("memorydb: closed")

type MemoryDB struct {
	mu     sync.RWMutex
	tables map[string]*iradix.Tree
	closed bool
}

func New() *MemoryDB {
	return &MemoryDB{tables: make(map[string]*iradix.Tree)}
}

func copyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)

	return
}

func (d *MemoryDB) table(dbi string) *iradix.Tree {
	t, ok := d.tables[dbi]
	if !ok {
		t = iradix.New()
	}

	return t
}

func (d *MemoryDB) Set(dbi string, k, v []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	t, _, _ := d.table(dbi).Insert(copyBytes(k), copyBytes(v))
	d.tables[dbi] = t

	return nil
}

func (d *MemoryDB) Get(dbi string, k []byte) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, false, ErrClosed
	}

	v, ok := d.table(dbi).Get(k)
	if !ok {
		return nil, false, nil
	}

	return copyBytes(v.([]byte)), true, nil
}

func (d *MemoryDB) Remove(dbi string, k []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	t, _, _ := d.table(dbi).Delete(k)
	d.tables[dbi] = t

	return nil
}

// Len returns the number of keys in dbi.
func (d *MemoryDB) Len(dbi string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.table(dbi).Len()
}

func (d *MemoryDB) Sync() error {
	return nil
}

func (d *MemoryDB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.tables = nil

	return nil
}

func (d *MemoryDB) Batch() ethdb.Batch {
	return &batch{db: d}
}

type keyvalue struct {
	dbi   string
	key   []byte
	value []byte
}

// batch collects writes and applies them under a single lock.
type batch struct {
	db     *MemoryDB
	writes []keyvalue
	size   int
}

func (b *batch) Set(dbi string, k, v []byte) error {
	b.writes = append(b.writes, keyvalue{dbi, copyBytes(k), copyBytes(v)})
	b.size += len(k) + len(v)

	return nil
}

func (b *batch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()

	if b.db.closed {
		return ErrClosed
	}

	txns := make(map[string]*iradix.Txn)

	for _, kv := range b.writes {
		txn, ok := txns[kv.dbi]
		if !ok {
			txn = b.db.table(kv.dbi).Txn()
			txns[kv.dbi] = txn
		}

		txn.Insert(kv.key, kv.value)
	}

	for dbi, txn := range txns {
		b.db.tables[dbi] = txn.Commit()
	}

	b.writes = nil
	b.size = 0

	return nil
}
