package paseto

import "encoding/binary"

// PAE is the pre-authentication encoding: the piece count followed by
// each piece prefixed with its length, all as little endian uint64 with
// the most significant bit cleared.
func PAE(pieces ...[]byte) []byte {
	size := 8
	for _, p := range pieces {
		size += 8 + len(p)
	}

	out := make([]byte, 0, size)
	out = le64(out, uint64(len(pieces)))
	for _, p := range pieces {
		out = le64(out, uint64(len(p)))
		out = append(out, p...)
	}
	return out
}

func le64(dst []byte, n uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, n&^(1<<63))
}
