package molprint

import (
	"context"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
)

func transformOne(t *testing.T, f Featurizer, smiles string) Fingerprint {
	t.Helper()
	fps, err := f.Transform(context.Background(), []*Mol{MustParseSmiles(smiles)})
	if err != nil {
		t.Fatalf("Transform(%q) unexpected error: %v", smiles, err)
	}
	if len(fps) != 1 {
		t.Fatalf("Transform(%q) returned %d fingerprints, want 1", smiles, len(fps))
	}
	return fps[0]
}

func countSum(fp Fingerprint) float64 {
	sum := 0.0
	fp.NonZero(func(_ int, v float64) { sum += v })
	return sum
}

// ═══════════════════════════════════════════════════════════════════════════════
// MORGAN
// ═══════════════════════════════════════════════════════════════════════════════

// TestMorganOptionsValidation tests that bad options fail construction
func TestMorganOptionsValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(o *MorganOptions)
		expectError bool
	}{
		{name: "defaults", mutate: func(*MorganOptions) {}},
		{name: "radius zero", mutate: func(o *MorganOptions) { o.Radius = 0 }},
		{name: "bit vector", mutate: func(o *MorganOptions) { o.ResultType = ResultBitVect }},
		{name: "negative radius", mutate: func(o *MorganOptions) { o.Radius = -1 }, expectError: true},
		{name: "zero bits", mutate: func(o *MorganOptions) { o.NBits = 0 }, expectError: true},
		{name: "unknown result type", mutate: func(o *MorganOptions) { o.ResultType = "bits" }, expectError: true},
		{name: "empty result type", mutate: func(o *MorganOptions) { o.ResultType = "" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultMorganOptions()
			tt.mutate(&opts)
			f, err := NewMorganFingerprint(opts, FingerprintTransformer{})
			if tt.expectError {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				if f != nil {
					t.Errorf("got a featurizer alongside the error")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMorganResultTypes(t *testing.T) {
	tests := []struct {
		resultType ResultType
		kind       FingerprintKind
		width      int
	}{
		{resultType: ResultDefault, kind: SparseCountKind, width: SparseLength},
		{resultType: ResultHashed, kind: CountKind, width: 1024},
		{resultType: ResultBitVect, kind: BitKind, width: 1024},
	}

	for _, tt := range tests {
		t.Run(string(tt.resultType), func(t *testing.T) {
			opts := DefaultMorganOptions()
			opts.NBits = 1024
			opts.ResultType = tt.resultType
			f, err := NewMorganFingerprint(opts, FingerprintTransformer{})
			if err != nil {
				t.Fatalf("NewMorganFingerprint unexpected error: %v", err)
			}
			if f.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", f.Width(), tt.width)
			}
			fp := transformOne(t, f, "CC(=O)Oc1ccccc1C(=O)O")
			if fp.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", fp.Kind(), tt.kind)
			}
			if fp.Len() != tt.width {
				t.Errorf("Len() = %d, want %d", fp.Len(), tt.width)
			}
		})
	}
}

func TestMorganFeatureCounts(t *testing.T) {
	tests := []struct {
		name     string
		smiles   string
		radius   int
		features int
		total    float64
	}{
		{name: "ethanol radius 0", smiles: "CCO", radius: 0, features: 3, total: 3},
		{name: "ethane radius 0", smiles: "CC", radius: 0, features: 1, total: 2},
		{name: "ethane radius 1 drops duplicate environment", smiles: "CC", radius: 1, features: 2, total: 3},
		{name: "methane has nothing to grow", smiles: "C", radius: 3, features: 1, total: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultMorganOptions()
			opts.Radius = tt.radius
			f, err := NewMorganFingerprint(opts, FingerprintTransformer{})
			if err != nil {
				t.Fatalf("NewMorganFingerprint unexpected error: %v", err)
			}
			fp := transformOne(t, f, tt.smiles).(*SparseCountVect)
			if fp.NumNonZero() != tt.features {
				t.Errorf("NumNonZero() = %d, want %d", fp.NumNonZero(), tt.features)
			}
			if got := countSum(fp); got != tt.total {
				t.Errorf("total count = %v, want %v", got, tt.total)
			}
		})
	}
}

func TestMorganAtomOrderInvariance(t *testing.T) {
	f, err := NewMorganFingerprint(DefaultMorganOptions(), FingerprintTransformer{})
	if err != nil {
		t.Fatalf("NewMorganFingerprint unexpected error: %v", err)
	}
	pairs := [][2]string{
		{"CCO", "OCC"},
		{"CC(=O)Oc1ccccc1C(=O)O", "OC(=O)c1ccccc1OC(C)=O"},
		{"c1ccccc1O", "C1=CC=C(O)C=C1"},
	}
	for _, p := range pairs {
		a := transformOne(t, f, p[0]).(*SparseCountVect)
		b := transformOne(t, f, p[1]).(*SparseCountVect)
		if !a.Equal(b) {
			t.Errorf("Morgan(%q) != Morgan(%q)", p[0], p[1])
		}
	}
}

func TestMorganHashedPreservesCounts(t *testing.T) {
	sparseOpts := DefaultMorganOptions()
	hashedOpts := DefaultMorganOptions()
	hashedOpts.ResultType = ResultHashed
	sparse, _ := NewMorganFingerprint(sparseOpts, FingerprintTransformer{})
	hashed, _ := NewMorganFingerprint(hashedOpts, FingerprintTransformer{})

	smiles := "CN1C=NC2=C1C(=O)N(C(=O)N2C)C"
	if a, b := countSum(transformOne(t, sparse, smiles)), countSum(transformOne(t, hashed, smiles)); a != b {
		t.Errorf("hashed total %v != sparse total %v", b, a)
	}
}

func TestMorganChirality(t *testing.T) {
	opts := DefaultMorganOptions()
	plain, _ := NewMorganFingerprint(opts, FingerprintTransformer{})
	opts.UseChirality = true
	chiral, _ := NewMorganFingerprint(opts, FingerprintTransformer{})

	l, d := "N[C@@H](C)C(=O)O", "N[C@H](C)C(=O)O"
	if !transformOne(t, plain, l).(*SparseCountVect).Equal(transformOne(t, plain, d).(*SparseCountVect)) {
		t.Errorf("enantiomers differ without use_chirality")
	}
	if transformOne(t, chiral, l).(*SparseCountVect).Equal(transformOne(t, chiral, d).(*SparseCountVect)) {
		t.Errorf("enantiomers match with use_chirality")
	}
}

func TestMorganFeatureInvariants(t *testing.T) {
	opts := DefaultMorganOptions()
	opts.UseFeatures = true
	opts.Radius = 0
	f, _ := NewMorganFingerprint(opts, FingerprintTransformer{})

	// Chlorine and bromine share the halogen class.
	a := transformOne(t, f, "Cl").(*SparseCountVect)
	b := transformOne(t, f, "Br").(*SparseCountVect)
	if !a.Equal(b) {
		t.Errorf("FCFP invariants differ for two halogens")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MACCS
// ═══════════════════════════════════════════════════════════════════════════════

// TestMACCSKeys tests selected keys; key k is stored at position k-1
func TestMACCSKeys(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		on     []int
		off    []int
	}{
		{name: "ethanol", smiles: "CCO", on: []int{164, 160}, off: []int{165, 162, 159, 166}},
		{name: "benzene", smiles: "c1ccccc1", on: []int{165, 163, 162}, off: []int{164, 125}},
		{name: "naphthalene", smiles: "c1ccc2ccccc2c1", on: []int{125, 162, 165}},
		{name: "acetic acid has two oxygens", smiles: "CC(=O)O", on: []int{159, 164}},
		{name: "salt has fragments", smiles: "CC(=O)[O-].[Na+]", on: []int{166, 35}},
		{name: "isotope", smiles: "[13CH4]", on: []int{1}},
		{name: "iodine", smiles: "CI", on: []int{27}},
		{name: "cyclopropane", smiles: "C1CC1", on: []int{22, 165}},
	}

	f, err := NewMACCSKeysFingerprint(FingerprintTransformer{})
	if err != nil {
		t.Fatalf("NewMACCSKeysFingerprint unexpected error: %v", err)
	}
	if f.Width() != 166 {
		t.Errorf("Width() = %d, want 166", f.Width())
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := transformOne(t, f, tt.smiles).(*BitVect)
			if fp.Len() != MACCSWidth {
				t.Errorf("Len() = %d, want %d", fp.Len(), MACCSWidth)
			}
			for _, k := range tt.on {
				if !fp.Test(k - 1) {
					t.Errorf("key %d off, want on", k)
				}
			}
			for _, k := range tt.off {
				if fp.Test(k - 1) {
					t.Errorf("key %d on, want off", k)
				}
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// ATOM PAIRS
// ═══════════════════════════════════════════════════════════════════════════════

func TestAtomPairs(t *testing.T) {
	tests := []struct {
		name     string
		smiles   string
		mutate   func(o *AtomPairOptions)
		features int
		total    float64
	}{
		{name: "ethane", smiles: "CC", features: 1, total: 1},
		{name: "propane", smiles: "CCC", features: 2, total: 3},
		{name: "propane max length 1", smiles: "CCC", mutate: func(o *AtomPairOptions) { o.MaxLength = 1 }, features: 1, total: 2},
		{name: "propane min length 2", smiles: "CCC", mutate: func(o *AtomPairOptions) { o.MinLength = 2 }, features: 1, total: 1},
		{name: "ignore middle atom", smiles: "CCC", mutate: func(o *AtomPairOptions) { o.IgnoreAtoms = []int{1} }, features: 1, total: 1},
		{name: "from first atom", smiles: "CCC", mutate: func(o *AtomPairOptions) { o.FromAtoms = []int{0} }, features: 2, total: 2},
		{name: "disconnected atoms do not pair", smiles: "C.C", features: 0, total: 0},
		{name: "single atom", smiles: "C", features: 0, total: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAtomPairOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			f, err := NewAtomPairFingerprint(opts, FingerprintTransformer{})
			if err != nil {
				t.Fatalf("NewAtomPairFingerprint unexpected error: %v", err)
			}
			fp := transformOne(t, f, tt.smiles).(*SparseCountVect)
			if fp.NumNonZero() != tt.features {
				t.Errorf("NumNonZero() = %d, want %d", fp.NumNonZero(), tt.features)
			}
			if got := countSum(fp); got != tt.total {
				t.Errorf("total count = %v, want %v", got, tt.total)
			}
		})
	}
}

func TestAtomPairOptionsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *AtomPairOptions)
	}{
		{name: "zero bits", mutate: func(o *AtomPairOptions) { o.NBits = 0 }},
		{name: "max below min", mutate: func(o *AtomPairOptions) { o.MinLength, o.MaxLength = 5, 2 }},
		{name: "max too long", mutate: func(o *AtomPairOptions) { o.MaxLength = 1000 }},
		{name: "bits per entry", mutate: func(o *AtomPairOptions) { o.NBitsPerEntry = 0 }},
		{name: "result type", mutate: func(o *AtomPairOptions) { o.ResultType = "dense" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAtomPairOptions()
			tt.mutate(&opts)
			if _, err := NewAtomPairFingerprint(opts, FingerprintTransformer{}); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAtomPairBadAtomIndex(t *testing.T) {
	opts := DefaultAtomPairOptions()
	opts.FromAtoms = []int{42}
	f, err := NewAtomPairFingerprint(opts, FingerprintTransformer{})
	if err != nil {
		t.Fatalf("NewAtomPairFingerprint unexpected error: %v", err)
	}
	if _, err := f.Transform(context.Background(), []*Mol{MustParseSmiles("CCO")}); !errors.Is(err, ErrInvalidMolecule) {
		t.Errorf("error = %v, want ErrInvalidMolecule", err)
	}
}

func TestAtomPairSimulatedCounts(t *testing.T) {
	opts := DefaultAtomPairOptions()
	opts.ResultType = ResultBitVect
	f, _ := NewAtomPairFingerprint(opts, FingerprintTransformer{})

	// Propane has one pair feature seen twice: two bits for it, one for the other.
	fp := transformOne(t, f, "CCC").(*BitVect)
	if fp.Count() != 3 {
		t.Errorf("Count() = %d, want 3", fp.Count())
	}
}

func TestAtomPair3DNeedsConformer(t *testing.T) {
	opts := DefaultAtomPairOptions()
	opts.Use2D = false
	f, _ := NewAtomPairFingerprint(opts, FingerprintTransformer{})
	if _, err := f.Transform(context.Background(), []*Mol{MustParseSmiles("CCO")}); !errors.Is(err, ErrInvalidMolecule) {
		t.Errorf("error = %v, want ErrInvalidMolecule", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// TOPOLOGICAL TORSIONS
// ═══════════════════════════════════════════════════════════════════════════════

func TestTopologicalTorsions(t *testing.T) {
	tests := []struct {
		name     string
		smiles   string
		features int
		total    float64
	}{
		{name: "propane is too short", smiles: "CCC", features: 0, total: 0},
		{name: "butane", smiles: "CCCC", features: 1, total: 1},
		{name: "pentane paths are symmetric", smiles: "CCCCC", features: 1, total: 2},
		{name: "benzene", smiles: "c1ccccc1", features: 1, total: 6},
		{name: "cyclobutane paths close the ring", smiles: "C1CCC1", features: 0, total: 0},
	}

	f, err := NewTopologicalTorsionFingerprint(DefaultTorsionOptions(), FingerprintTransformer{})
	if err != nil {
		t.Fatalf("NewTopologicalTorsionFingerprint unexpected error: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := transformOne(t, f, tt.smiles).(*SparseCountVect)
			if fp.NumNonZero() != tt.features {
				t.Errorf("NumNonZero() = %d, want %d", fp.NumNonZero(), tt.features)
			}
			if got := countSum(fp); got != tt.total {
				t.Errorf("total count = %v, want %v", got, tt.total)
			}
		})
	}
}

func TestTopologicalTorsionOptionsValidation(t *testing.T) {
	opts := DefaultTorsionOptions()
	opts.TargetSize = 1
	if _, err := NewTopologicalTorsionFingerprint(opts, FingerprintTransformer{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("target_size 1 error = %v, want ErrInvalidConfig", err)
	}
	opts = DefaultTorsionOptions()
	opts.ResultType = ResultHashed
	opts.NBits = 512
	f, err := NewTopologicalTorsionFingerprint(opts, FingerprintTransformer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp := transformOne(t, f, "CCCCC"); fp.Len() != 512 || countSum(fp) != 2 {
		t.Errorf("hashed torsions: Len() = %d, total = %v", fp.Len(), countSum(fp))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// ERG
// ═══════════════════════════════════════════════════════════════════════════════

func TestERGWidth(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		width    int
	}{
		{name: "defaults", min: 1, max: 15, width: 315},
		{name: "short paths", min: 1, max: 5, width: 105},
		{name: "single bin", min: 3, max: 3, width: 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultERGOptions()
			opts.MinPath, opts.MaxPath = tt.min, tt.max
			f, err := NewERGFingerprint(opts, FingerprintTransformer{})
			if err != nil {
				t.Fatalf("NewERGFingerprint unexpected error: %v", err)
			}
			if f.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", f.Width(), tt.width)
			}
			if fp := transformOne(t, f, "CCO"); fp.Len() != tt.width {
				t.Errorf("Len() = %d, want %d", fp.Len(), tt.width)
			}
		})
	}
}

func TestERGValues(t *testing.T) {
	f, err := NewERGFingerprint(DefaultERGOptions(), FingerprintTransformer{})
	if err != nil {
		t.Fatalf("NewERGFingerprint unexpected error: %v", err)
	}

	if got := countSum(transformOne(t, f, "c1ccccc1")); got != 0 {
		t.Errorf("benzene sum = %v, want 0", got)
	}

	// Biphenyl reduces to two bonded aromatic ring nodes: the aromatic/aromatic
	// pair (index 20) at distance 1, fuzzed into distance 2.
	fp := transformOne(t, f, "c1ccccc1-c1ccccc1").(*FloatVect)
	if fp.Values[20*15] != 1 {
		t.Errorf("distance 1 bin = %v, want 1", fp.Values[20*15])
	}
	if math.Abs(fp.Values[20*15+1]-0.3) > 1e-12 {
		t.Errorf("distance 2 bin = %v, want 0.3", fp.Values[20*15+1])
	}
	if got := countSum(fp); math.Abs(got-1.3) > 1e-12 {
		t.Errorf("sum = %v, want 1.3", got)
	}
}

func TestERGOptionsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *ERGOptions)
	}{
		{name: "atom types", mutate: func(o *ERGOptions) { o.AtomTypes = 1 }},
		{name: "negative fuzz", mutate: func(o *ERGOptions) { o.FuzzIncrement = -0.1 }},
		{name: "min path zero", mutate: func(o *ERGOptions) { o.MinPath = 0 }},
		{name: "max below min", mutate: func(o *ERGOptions) { o.MinPath, o.MaxPath = 4, 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultERGOptions()
			tt.mutate(&opts)
			if _, err := NewERGFingerprint(opts, FingerprintTransformer{}); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
