package molprint

import (
	"math"

	"github.com/RoaringBitmap/roaring"
)

// SimilarityKind represents the similarity coefficient used to compare fingerprints.
// Different coefficients suit different fingerprints:
// - Tanimoto: the standard for bit fingerprints; generalized to counts by min/max
// - Dice: weights shared features twice, more forgiving for small molecules
// - Cosine: angle between the vectors, the usual choice for real-valued ones
type SimilarityKind string

const (
	// Tanimoto (Jaccard) similarity.
	// Formula: sum(min(a[i], b[i])) / sum(max(a[i], b[i]))
	// For bit vectors: |A ∩ B| / |A ∪ B|
	Tanimoto SimilarityKind = "tanimoto"

	// Dice similarity.
	// Formula: 2 * sum(min(a[i], b[i])) / (sum(a) + sum(b))
	Dice SimilarityKind = "dice"

	// Cosine similarity.
	// Formula: dot(a, b) / (||a|| * ||b||)
	Cosine SimilarityKind = "cosine"
)

// Singleton instances of similarity strategies.
// These are stateless and can be safely reused across goroutines.
var (
	tanimotoSimilarityImpl = tanimoto{}
	diceSimilarityImpl     = dice{}
	cosineSimilarityImpl   = cosine{}
)

// Similarity computes a similarity between two fingerprints of equal width, in [0, 1]
// for non-negative fingerprints.
// Two all-zero fingerprints have similarity 0. Higher values mean more similar.
type Similarity interface {
	// Calculate returns the similarity of a and b.
	Calculate(a, b Fingerprint) float64

	// CalculateBatch returns the similarity of every query to target.
	CalculateBatch(queries []Fingerprint, target Fingerprint) []float64

	// Kind returns the coefficient.
	Kind() SimilarityKind
}

// NewSimilarity returns a singleton Similarity implementation for the specified kind.
// The returned instances are stateless and safe for concurrent use across goroutines.
// Returns ErrUnknownSimilarityKind if the kind is not recognized.
//
// Example:
//
//	sim, err := NewSimilarity(Tanimoto)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	score := sim.Calculate(fpA, fpB)
func NewSimilarity(kind SimilarityKind) (Similarity, error) {
	switch kind {
	case Tanimoto:
		return tanimotoSimilarityImpl, nil
	case Dice:
		return diceSimilarityImpl, nil
	case Cosine:
		return cosineSimilarityImpl, nil
	default:
		return nil, ErrUnknownSimilarityKind
	}
}

// overlap holds the sums every coefficient is built from.
type overlap struct {
	sumA, sumB float64 // sum of values
	sumMin     float64 // sum of element-wise minima
	sumMax     float64 // sum of element-wise maxima
	dot        float64
	sqA, sqB   float64 // sum of squares
}

// bitmapOf returns the roaring bitmap behind a bit fingerprint, if any.
func bitmapOf(fp Fingerprint) (*roaring.Bitmap, bool) {
	switch v := fp.(type) {
	case *BitVect:
		return v.bits, true
	case *ConformerFingerprint:
		return v.Bits.bits, true
	}
	return nil, false
}

// measure computes the overlap of a and b. Bit fingerprints use roaring set
// cardinalities; everything else merges the two ascending NonZero streams.
func measure(a, b Fingerprint) overlap {
	if ba, ok := bitmapOf(a); ok {
		if bb, ok := bitmapOf(b); ok {
			na, nb := float64(ba.GetCardinality()), float64(bb.GetCardinality())
			inter := float64(ba.AndCardinality(bb))
			return overlap{
				sumA: na, sumB: nb,
				sumMin: inter, sumMax: na + nb - inter,
				dot: inter, sqA: na, sqB: nb,
			}
		}
	}

	type entry struct {
		i int
		v float64
	}
	collect := func(fp Fingerprint) []entry {
		var out []entry
		fp.NonZero(func(i int, v float64) { out = append(out, entry{i, v}) })
		return out
	}
	ea, eb := collect(a), collect(b)

	var o overlap
	x, y := 0, 0
	for x < len(ea) || y < len(eb) {
		var va, vb float64
		switch {
		case y == len(eb) || (x < len(ea) && ea[x].i < eb[y].i):
			va = ea[x].v
			x++
		case x == len(ea) || eb[y].i < ea[x].i:
			vb = eb[y].v
			y++
		default:
			va, vb = ea[x].v, eb[y].v
			x++
			y++
		}
		o.sumA += va
		o.sumB += vb
		o.sumMin += math.Min(va, vb)
		o.sumMax += math.Max(va, vb)
		o.dot += va * vb
		o.sqA += va * va
		o.sqB += vb * vb
	}
	return o
}

func batch(s Similarity, queries []Fingerprint, target Fingerprint) []float64 {
	results := make([]float64, len(queries))
	for i, q := range queries {
		results[i] = s.Calculate(q, target)
	}
	return results
}

// tanimoto implements the Similarity interface using the Tanimoto coefficient.
type tanimoto struct{}

func (tanimoto) Calculate(a, b Fingerprint) float64 {
	o := measure(a, b)
	if o.sumMax == 0 {
		return 0
	}
	return o.sumMin / o.sumMax
}

func (t tanimoto) CalculateBatch(queries []Fingerprint, target Fingerprint) []float64 {
	return batch(t, queries, target)
}

func (tanimoto) Kind() SimilarityKind { return Tanimoto }

// dice implements the Similarity interface using the Dice coefficient.
type dice struct{}

func (dice) Calculate(a, b Fingerprint) float64 {
	o := measure(a, b)
	if o.sumA+o.sumB == 0 {
		return 0
	}
	return 2 * o.sumMin / (o.sumA + o.sumB)
}

func (d dice) CalculateBatch(queries []Fingerprint, target Fingerprint) []float64 {
	return batch(d, queries, target)
}

func (dice) Kind() SimilarityKind { return Dice }

// cosine implements the Similarity interface using cosine similarity.
type cosine struct{}

func (cosine) Calculate(a, b Fingerprint) float64 {
	o := measure(a, b)
	if o.sqA == 0 || o.sqB == 0 {
		return 0
	}
	return o.dot / math.Sqrt(o.sqA*o.sqB)
}

func (c cosine) CalculateBatch(queries []Fingerprint, target Fingerprint) []float64 {
	return batch(c, queries, target)
}

func (cosine) Kind() SimilarityKind { return Cosine }
