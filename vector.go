package molprint

import (
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/errors"
)

// FingerprintKind identifies the storage form of a fingerprint.
type FingerprintKind string

const (
	// BitKind is a fixed-width presence vector.
	BitKind FingerprintKind = "bit"

	// CountKind is a fixed-width vector of hashed occurrence counts.
	CountKind FingerprintKind = "count"

	// SparseCountKind is an unbounded map from feature identifier to count.
	SparseCountKind FingerprintKind = "sparse_count"

	// FloatKind is a dense real-valued vector.
	FloatKind FingerprintKind = "float"
)

// SparseLength is the nominal width of a SparseCountVect: identifiers are 32-bit.
// Widths are ints, so molprint builds only for 64-bit platforms.
const SparseLength = 1 << 32

// Fingerprint is the output unit of every featurizer.
type Fingerprint interface {
	// Len returns the number of positions of the vector.
	Len() int

	// Kind returns the storage form.
	Kind() FingerprintKind

	// NonZero calls fn for every non-zero position in ascending order.
	NonZero(fn func(i int, v float64))
}

// Compile-time checks to ensure every vector type satisfies Fingerprint
var (
	_ Fingerprint = (*BitVect)(nil)
	_ Fingerprint = (*CountVect)(nil)
	_ Fingerprint = (*SparseCountVect)(nil)
	_ Fingerprint = (*FloatVect)(nil)
	_ Fingerprint = (*ConformerFingerprint)(nil)
)

// ═══════════════════════════════════════════════════════════════════════════════
// BIT VECTOR
// ═══════════════════════════════════════════════════════════════════════════════

// BitVect is a fixed-width bit vector. On bits are kept in a roaring bitmap, which
// stays small for the typically sparse fingerprints.
type BitVect struct {
	n    int
	bits *roaring.Bitmap
}

// NewBitVect returns an all-zero bit vector with n positions.
func NewBitVect(n int) *BitVect {
	return &BitVect{n: n, bits: roaring.New()}
}

// BitVectFromBits returns a vector of width n with the given positions set.
// Positions outside [0, n) are ignored.
func BitVectFromBits(n int, on []int) *BitVect {
	v := NewBitVect(n)
	for _, i := range on {
		v.Set(i)
	}
	return v
}

// Set turns position i on. Out-of-range positions are ignored.
func (v *BitVect) Set(i int) {
	if i >= 0 && i < v.n {
		v.bits.Add(uint32(i))
	}
}

// Test reports whether position i is on.
func (v *BitVect) Test(i int) bool {
	return i >= 0 && i < v.n && v.bits.Contains(uint32(i))
}

// Len returns the width of the vector.
func (v *BitVect) Len() int { return v.n }

// Kind returns BitKind.
func (v *BitVect) Kind() FingerprintKind { return BitKind }

// Count returns the number of on bits.
func (v *BitVect) Count() int { return int(v.bits.GetCardinality()) }

// OnBits returns the on positions in ascending order.
func (v *BitVect) OnBits() []int {
	out := make([]int, 0, v.bits.GetCardinality())
	it := v.bits.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// NonZero calls fn with 1 for every on bit.
func (v *BitVect) NonZero(fn func(i int, v float64)) {
	it := v.bits.Iterator()
	for it.HasNext() {
		fn(int(it.Next()), 1)
	}
}

// Equal reports whether both vectors have the same width and on bits.
func (v *BitVect) Equal(o *BitVect) bool {
	return v.n == o.n && v.bits.Equals(o.bits)
}

// Fold compresses the vector to n positions by OR-combining every position i into
// i mod n. Folding is lossy: distinct features may share a folded position.
func (v *BitVect) Fold(n int) (*BitVect, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "fold size must be positive, got %d", n)
	}
	if n >= v.n {
		return &BitVect{n: v.n, bits: v.bits.Clone()}, nil
	}
	out := NewBitVect(n)
	it := v.bits.Iterator()
	for it.HasNext() {
		out.bits.Add(it.Next() % uint32(n))
	}
	return out, nil
}

func (v *BitVect) String() string {
	return fmt.Sprintf("BitVect(%d, on=%d)", v.n, v.Count())
}

// ═══════════════════════════════════════════════════════════════════════════════
// COUNT VECTORS
// ═══════════════════════════════════════════════════════════════════════════════

// CountVect is a fixed-width vector of occurrence counts.
type CountVect struct {
	counts []uint32
}

// NewCountVect returns an all-zero count vector with n positions.
func NewCountVect(n int) *CountVect {
	return &CountVect{counts: make([]uint32, n)}
}

// Add increments position i by c. Out-of-range positions are ignored.
func (v *CountVect) Add(i int, c uint32) {
	if i >= 0 && i < len(v.counts) {
		v.counts[i] += c
	}
}

// Get returns the count at position i.
func (v *CountVect) Get(i int) uint32 { return v.counts[i] }

// Len returns the width of the vector.
func (v *CountVect) Len() int { return len(v.counts) }

// Kind returns CountKind.
func (v *CountVect) Kind() FingerprintKind { return CountKind }

// NonZero calls fn for every non-zero count.
func (v *CountVect) NonZero(fn func(i int, v float64)) {
	for i, c := range v.counts {
		if c != 0 {
			fn(i, float64(c))
		}
	}
}

// Equal reports whether both vectors hold the same counts.
func (v *CountVect) Equal(o *CountVect) bool { return slices.Equal(v.counts, o.counts) }

// SparseCountVect maps 32-bit feature identifiers to occurrence counts.
type SparseCountVect struct {
	counts map[uint32]uint32
}

// NewSparseCountVect returns an empty sparse count vector.
func NewSparseCountVect() *SparseCountVect {
	return &SparseCountVect{counts: make(map[uint32]uint32)}
}

// Add increments the count of feature id by c.
func (v *SparseCountVect) Add(id uint32, c uint32) { v.counts[id] += c }

// Get returns the count of feature id.
func (v *SparseCountVect) Get(id uint32) uint32 { return v.counts[id] }

// Len returns the nominal width, SparseLength.
func (v *SparseCountVect) Len() int { return SparseLength }

// Kind returns SparseCountKind.
func (v *SparseCountVect) Kind() FingerprintKind { return SparseCountKind }

// NumNonZero returns the number of distinct features.
func (v *SparseCountVect) NumNonZero() int { return len(v.counts) }

// IDs returns the feature identifiers in ascending order.
func (v *SparseCountVect) IDs() []uint32 {
	ids := make([]uint32, 0, len(v.counts))
	for id := range v.counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NonZero calls fn for every feature in ascending identifier order.
func (v *SparseCountVect) NonZero(fn func(i int, v float64)) {
	for _, id := range v.IDs() {
		fn(int(id), float64(v.counts[id]))
	}
}

// Equal reports whether both vectors hold the same features and counts.
func (v *SparseCountVect) Equal(o *SparseCountVect) bool {
	if len(v.counts) != len(o.counts) {
		return false
	}
	for id, c := range v.counts {
		if o.counts[id] != c {
			return false
		}
	}
	return true
}

// Fold hashes the features into n count positions by id mod n.
func (v *SparseCountVect) Fold(n int) *CountVect {
	out := NewCountVect(n)
	for id, c := range v.counts {
		out.Add(int(id%uint32(n)), c)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════
// FLOAT VECTOR
// ═══════════════════════════════════════════════════════════════════════════════

// FloatVect is a dense real-valued vector.
type FloatVect struct {
	Values []float64
}

// NewFloatVect returns a zero vector with n positions.
func NewFloatVect(n int) *FloatVect { return &FloatVect{Values: make([]float64, n)} }

// Len returns the width of the vector.
func (v *FloatVect) Len() int { return len(v.Values) }

// Kind returns FloatKind.
func (v *FloatVect) Kind() FingerprintKind { return FloatKind }

// NonZero calls fn for every non-zero value.
func (v *FloatVect) NonZero(fn func(i int, v float64)) {
	for i, x := range v.Values {
		if x != 0 {
			fn(i, x)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFORMER FINGERPRINT
// ═══════════════════════════════════════════════════════════════════════════════

// ConformerFingerprint is one 3D fingerprint of one conformer. A molecule may yield
// several; Source ties each back to its input position.
type ConformerFingerprint struct {
	Bits *BitVect

	// Source is the index of the input molecule.
	Source int
	// Conformer is the rank of the conformer by energy, 0 being the lowest.
	Conformer int
	// Energy is the minimized force-field energy of the conformer. NaN when
	// energies were not requested.
	Energy float64
}

// Len returns the width of the bit vector.
func (f *ConformerFingerprint) Len() int { return f.Bits.Len() }

// Kind returns BitKind.
func (f *ConformerFingerprint) Kind() FingerprintKind { return BitKind }

// NonZero calls fn with 1 for every on bit.
func (f *ConformerFingerprint) NonZero(fn func(i int, v float64)) { f.Bits.NonZero(fn) }

// HasEnergy reports whether an energy annotation is present.
func (f *ConformerFingerprint) HasEnergy() bool { return !math.IsNaN(f.Energy) }

// GroupBySource regroups E3FP output by input molecule. The result has n entries;
// entry i holds the conformer fingerprints of molecule i in conformer order.
// Fingerprints that are not ConformerFingerprints are skipped.
func GroupBySource(fps []Fingerprint, n int) [][]*ConformerFingerprint {
	out := make([][]*ConformerFingerprint, n)
	for _, fp := range fps {
		cf, ok := fp.(*ConformerFingerprint)
		if !ok || cf.Source < 0 || cf.Source >= n {
			continue
		}
		out[cf.Source] = append(out[cf.Source], cf)
	}
	for _, group := range out {
		slices.SortStableFunc(group, func(a, b *ConformerFingerprint) int { return a.Conformer - b.Conformer })
	}
	return out
}
