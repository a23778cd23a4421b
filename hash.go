package molprint

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// hashSeed is the seed used for all topological identifiers.
const hashSeed = 0

// hashInts hashes a sequence of 32-bit integers with MurmurHash3, encoding them
// little-endian so identifiers are stable across platforms.
func hashInts(vals ...uint32) uint32 {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return murmur3.Sum32WithSeed(buf, hashSeed)
}

// hashSigned is hashInts for signed values such as charges.
func hashSigned(vals ...int) uint32 {
	u := make([]uint32, len(vals))
	for i, v := range vals {
		u[i] = uint32(int32(v))
	}
	return hashInts(u...)
}
