package molprint

import (
	"math"
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestBitVect(t *testing.T) {
	v := NewBitVect(16)
	v.Set(3)
	v.Set(7)
	v.Set(7)
	v.Set(-1)
	v.Set(16)

	if v.Len() != 16 {
		t.Errorf("Len() = %d, want 16", v.Len())
	}
	if v.Count() != 2 {
		t.Errorf("Count() = %d, want 2", v.Count())
	}
	if !v.Test(3) || !v.Test(7) || v.Test(4) || v.Test(16) {
		t.Errorf("Test() mismatch for on bits %v", v.OnBits())
	}
	if got := v.OnBits(); !slices.Equal(got, []int{3, 7}) {
		t.Errorf("OnBits() = %v, want [3 7]", got)
	}

	var seen []int
	v.NonZero(func(i int, x float64) {
		if x != 1 {
			t.Errorf("NonZero value at %d = %v, want 1", i, x)
		}
		seen = append(seen, i)
	})
	if !slices.Equal(seen, []int{3, 7}) {
		t.Errorf("NonZero visited %v, want [3 7]", seen)
	}

	if !v.Equal(BitVectFromBits(16, []int{7, 3})) {
		t.Errorf("Equal() = false for the same bits")
	}
	if v.Equal(BitVectFromBits(32, []int{3, 7})) {
		t.Errorf("Equal() = true for different widths")
	}
}

// TestBitVectFold tests OR-folding into fewer positions
func TestBitVectFold(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		on          []int
		fold        int
		want        []int
		expectError bool
	}{
		{name: "fold in half", width: 8, on: []int{1, 5, 6}, fold: 4, want: []int{1, 2}},
		{name: "collisions merge", width: 8, on: []int{0, 4}, fold: 4, want: []int{0}},
		{name: "no-op at full width", width: 8, on: []int{1, 7}, fold: 8, want: []int{1, 7}},
		{name: "wider keeps width", width: 8, on: []int{2}, fold: 16, want: []int{2}},
		{name: "zero size", width: 8, on: []int{1}, fold: 0, expectError: true},
		{name: "negative size", width: 8, on: []int{1}, fold: -4, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := BitVectFromBits(tt.width, tt.on)
			got, err := v.Fold(tt.fold)
			if tt.expectError {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Fold(%d) error = %v, want ErrInvalidConfig", tt.fold, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fold(%d) unexpected error: %v", tt.fold, err)
			}
			if !slices.Equal(got.OnBits(), tt.want) {
				t.Errorf("Fold(%d) = %v, want %v", tt.fold, got.OnBits(), tt.want)
			}
			if got.Len() != min(tt.fold, tt.width) {
				t.Errorf("folded Len() = %d, want %d", got.Len(), min(tt.fold, tt.width))
			}
			if v.Count() != len(tt.on) {
				t.Errorf("Fold modified the receiver")
			}
		})
	}
}

func TestCountVect(t *testing.T) {
	v := NewCountVect(4)
	v.Add(1, 2)
	v.Add(1, 1)
	v.Add(3, 5)
	v.Add(9, 1)

	if v.Get(1) != 3 || v.Get(3) != 5 || v.Get(0) != 0 {
		t.Errorf("counts = [%d %d %d %d]", v.Get(0), v.Get(1), v.Get(2), v.Get(3))
	}
	sum := 0.0
	v.NonZero(func(_ int, x float64) { sum += x })
	if sum != 8 {
		t.Errorf("NonZero sum = %v, want 8", sum)
	}
}

func TestSparseCountVectFold(t *testing.T) {
	v := NewSparseCountVect()
	v.Add(10, 1)
	v.Add(14, 2)
	v.Add(3, 1)
	v.Add(3, 1)

	if v.NumNonZero() != 3 {
		t.Errorf("NumNonZero() = %d, want 3", v.NumNonZero())
	}
	if got := v.IDs(); !slices.Equal(got, []uint32{3, 10, 14}) {
		t.Errorf("IDs() = %v, want [3 10 14]", got)
	}
	if v.Len() != SparseLength {
		t.Errorf("Len() = %d, want SparseLength", v.Len())
	}

	folded := v.Fold(4)
	want := []uint32{0, 0, 3, 2} // 10%4=2, 14%4=2, 3%4=3
	for i, c := range want {
		if folded.Get(i) != c {
			t.Errorf("folded[%d] = %d, want %d", i, folded.Get(i), c)
		}
	}
}

func TestSparseLengthCoversUint32IDs(t *testing.T) {
	if uint64(SparseLength) != math.MaxUint32+1 {
		t.Fatalf("SparseLength = %d, want %d", uint64(SparseLength), uint64(math.MaxUint32)+1)
	}
	v := NewSparseCountVect()
	v.Add(math.MaxUint32, 1)
	ids := v.IDs()
	if len(ids) != 1 || ids[0] != math.MaxUint32 {
		t.Fatalf("IDs() = %v, want [%d]", ids, uint32(math.MaxUint32))
	}
	if int(ids[0]) >= v.Len() {
		t.Errorf("id %d is outside Len() = %d", ids[0], v.Len())
	}
}

func TestGroupBySource(t *testing.T) {
	mk := func(source, conf int) *ConformerFingerprint {
		return &ConformerFingerprint{Bits: NewBitVect(8), Source: source, Conformer: conf, Energy: math.NaN()}
	}
	fps := []Fingerprint{mk(0, 1), mk(2, 0), mk(0, 0), NewBitVect(8), mk(5, 0)}

	groups := GroupBySource(fps, 3)
	if len(groups) != 3 {
		t.Fatalf("GroupBySource returned %d groups, want 3", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].Conformer != 0 || groups[0][1].Conformer != 1 {
		t.Errorf("group 0 not ordered by conformer")
	}
	if len(groups[1]) != 0 {
		t.Errorf("group 1 has %d entries, want 0", len(groups[1]))
	}
	if len(groups[2]) != 1 {
		t.Errorf("group 2 has %d entries, want 1", len(groups[2]))
	}
	if groups[0][0].HasEnergy() {
		t.Errorf("HasEnergy() = true for NaN energy")
	}
}

func TestParseResultType(t *testing.T) {
	for _, s := range []string{"default", "as_bit_vect", "hashed"} {
		if _, err := ParseResultType(s); err != nil {
			t.Errorf("ParseResultType(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseResultType("bits"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseResultType(bits) error = %v, want ErrInvalidConfig", err)
	}
}
