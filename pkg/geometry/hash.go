package geometry

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// Quantization steps of the persistent hash, in model units.
const (
	HashPointQuantum  = 1e-4
	HashLengthQuantum = 1e-3
)

// PersistentHash identifies an edge by its carrier rather than its
// position in the shape: FNV-1a over the curve type, both endpoints
// quantized to HashPointQuantum and sorted, and the length rounded to
// HashLengthQuantum. The same physical edge hashes identically across
// loads and enumeration orders, whichever way it is parameterized.
func PersistentHash(g EdgeGeometry) string {
	a, b := quantize(g.Start), quantize(g.End)
	if less(b, a) {
		a, b = b, a
	}
	h := fnv.New64a()
	h.Write([]byte(g.CurveType))
	var buf [8]byte
	for _, q := range [][3]int64{a, b} {
		for _, c := range q {
			binary.LittleEndian.PutUint64(buf[:], uint64(c))
			h.Write(buf[:])
		}
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(math.Round(g.Length/HashLengthQuantum))))
	h.Write(buf[:])
	return fmt.Sprintf("%016x", h.Sum64())
}

func quantize(p Point) [3]int64 {
	var q [3]int64
	for i, c := range p {
		q[i] = int64(math.Round(c / HashPointQuantum))
	}
	return q
}

func less(a, b [3]int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
