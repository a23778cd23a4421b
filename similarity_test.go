package molprint

import (
	"math"
	"testing"
)

func countVect(values ...uint32) *CountVect {
	v := NewCountVect(len(values))
	for i, c := range values {
		v.Add(i, c)
	}
	return v
}

func floatVect(values ...float64) *FloatVect {
	return &FloatVect{Values: values}
}

// TestSimilarity tests all coefficients on bit, count and float fingerprints
func TestSimilarity(t *testing.T) {
	bitsA := BitVectFromBits(8, []int{0, 1, 2})
	bitsB := BitVectFromBits(8, []int{1, 2, 3})

	tests := []struct {
		name string
		kind SimilarityKind
		a, b Fingerprint
		want float64
	}{
		{name: "tanimoto bits", kind: Tanimoto, a: bitsA, b: bitsB, want: 0.5},
		{name: "dice bits", kind: Dice, a: bitsA, b: bitsB, want: 2.0 / 3.0},
		{name: "cosine bits", kind: Cosine, a: bitsA, b: bitsB, want: 2.0 / 3.0},
		{name: "tanimoto identical", kind: Tanimoto, a: bitsA, b: bitsA, want: 1},
		{name: "tanimoto disjoint", kind: Tanimoto, a: BitVectFromBits(8, []int{0}), b: BitVectFromBits(8, []int{1}), want: 0},
		{name: "tanimoto counts", kind: Tanimoto, a: countVect(2, 1, 0), b: countVect(1, 1, 1), want: 0.5},
		{name: "dice counts", kind: Dice, a: countVect(2, 1, 0), b: countVect(1, 1, 1), want: 2.0 / 3.0},
		{name: "cosine counts", kind: Cosine, a: countVect(2, 1, 0), b: countVect(1, 1, 1), want: 3 / math.Sqrt(15)},
		{name: "cosine floats", kind: Cosine, a: floatVect(1, 0), b: floatVect(0, 1), want: 0},
		{name: "tanimoto floats", kind: Tanimoto, a: floatVect(0.5, 1), b: floatVect(1, 1), want: 0.75},
		{name: "bits against counts", kind: Tanimoto, a: BitVectFromBits(3, []int{0, 1}), b: countVect(1, 1, 1), want: 2.0 / 3.0},
		{name: "tanimoto all zero", kind: Tanimoto, a: NewBitVect(8), b: NewBitVect(8), want: 0},
		{name: "dice all zero", kind: Dice, a: NewCountVect(4), b: NewCountVect(4), want: 0},
		{name: "cosine one zero", kind: Cosine, a: NewBitVect(8), b: bitsA, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := NewSimilarity(tt.kind)
			if err != nil {
				t.Fatalf("NewSimilarity(%q) unexpected error: %v", tt.kind, err)
			}
			if sim.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", sim.Kind(), tt.kind)
			}
			got := sim.Calculate(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Calculate() = %v, want %v", got, tt.want)
			}
			if back := sim.Calculate(tt.b, tt.a); math.Abs(back-got) > 1e-12 {
				t.Errorf("Calculate() is not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestSimilarityConformerFingerprint(t *testing.T) {
	sim, _ := NewSimilarity(Tanimoto)
	a := &ConformerFingerprint{Bits: BitVectFromBits(8, []int{0, 1}), Energy: math.NaN()}
	b := BitVectFromBits(8, []int{1})
	if got := sim.Calculate(a, b); got != 0.5 {
		t.Errorf("Calculate() = %v, want 0.5", got)
	}
}

func TestSimilarityCalculateBatch(t *testing.T) {
	sim, _ := NewSimilarity(Tanimoto)
	target := BitVectFromBits(8, []int{0, 1})
	queries := []Fingerprint{
		BitVectFromBits(8, []int{0, 1}),
		BitVectFromBits(8, []int{0}),
		BitVectFromBits(8, []int{5}),
	}
	want := []float64{1, 0.5, 0}
	got := sim.CalculateBatch(queries, target)
	if len(got) != len(want) {
		t.Fatalf("CalculateBatch returned %d scores, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("score[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewSimilarityUnknownKind(t *testing.T) {
	if _, err := NewSimilarity("euclidean"); err != ErrUnknownSimilarityKind {
		t.Errorf("NewSimilarity(euclidean) error = %v, want ErrUnknownSimilarityKind", err)
	}
}
