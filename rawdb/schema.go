package rawdb

import "encoding/binary"

var (
	latestTraceBlock = []byte("latest_trace_block")
)

// encodeBlockNumber encodes a block number as big endian so keys sort by
// number.
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)

	return enc
}

func decodeBlockNumber(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}

	return binary.BigEndian.Uint64(b), true
}
