package memorydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunvim/starkos/ethdb"
)

func TestSetGetRemove(t *testing.T) {
	db := New()

	require.NoError(t, db.Set(ethdb.TraceDBI, []byte("k"), []byte("v")))

	v, ok, err := db.Get(ethdb.TraceDBI, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	// tables are separate
	_, ok, err = db.Get(ethdb.ClassDBI, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Remove(ethdb.TraceDBI, []byte("k")))

	_, ok, err = db.Get(ethdb.TraceDBI, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesAreCopied(t *testing.T) {
	db := New()
	value := []byte{1, 2, 3}

	require.NoError(t, db.Set(ethdb.ClassDBI, []byte("k"), value))
	value[0] = 9

	v, _, err := db.Get(ethdb.ClassDBI, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v)

	v[1] = 9

	again, _, err := db.Get(ethdb.ClassDBI, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestBatch(t *testing.T) {
	db := New()
	b := db.Batch()

	require.NoError(t, b.Set(ethdb.TraceDBI, []byte("a"), []byte("1")))
	require.NoError(t, b.Set(ethdb.ClassDBI, []byte("b"), []byte("2")))

	_, ok, _ := db.Get(ethdb.TraceDBI, []byte("a"))
	assert.False(t, ok, "batch must not be visible before Write")

	require.NoError(t, b.Write())

	assert.Equal(t, 1, db.Len(ethdb.TraceDBI))
	assert.Equal(t, 1, db.Len(ethdb.ClassDBI))
}

func TestClosed(t *testing.T) {
	db := New()
	require.NoError(t, db.Close())

	assert.ErrorIs(t, db.Set(ethdb.TraceDBI, []byte("k"), nil), ErrClosed)

	_, _, err := db.Get(ethdb.TraceDBI, []byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
}
