package molprint

import (
	"context"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

var testSmiles = []string{
	"CCO",
	"c1ccccc1O",
	"CC(=O)Oc1ccccc1C(=O)O",
	"CN1C=NC2=C1C(=O)N(C(=O)N2C)C",
	"CC(C)Cc1ccc(cc1)C(C)C(=O)O",
	"C1CCCCC1",
	"c1ccc2ccccc2c1",
	"OC(=O)CCC(=O)O",
	"NCCc1ccc(O)c(O)c1",
	"CC(C)NCC(O)c1ccc(O)c(O)c1",
	"ClC(Cl)Cl",
	"c1ccncc1",
}

func testMols(t *testing.T) []*Mol {
	t.Helper()
	mols := make([]*Mol, len(testSmiles))
	for i, s := range testSmiles {
		m, err := ParseSmiles(s)
		if err != nil {
			t.Fatalf("ParseSmiles(%q) unexpected error: %v", s, err)
		}
		mols[i] = m
	}
	return mols
}

var errToolkitBoom = errors.New("boom")

// failingToolkit fails MACCS keys for molecules with more than failAbove atoms.
type failingToolkit struct {
	nativeToolkit
	failAbove int
	panics    bool
}

func (failingToolkit) Name() string { return "failing" }

func (f failingToolkit) MACCSKeys(m *Mol) (*BitVect, error) {
	if m.NumAtoms() > f.failAbove {
		if f.panics {
			panic("keys exploded")
		}
		return nil, errToolkitBoom
	}
	return maccsKeys(m), nil
}

func init() {
	RegisterToolkit("test-failing", func() (Toolkit, error) { return failingToolkit{failAbove: 10}, nil })
	RegisterToolkit("test-panicking", func() (Toolkit, error) { return failingToolkit{failAbove: 10, panics: true}, nil })
	RegisterToolkit("test-unavailable", func() (Toolkit, error) { return nil, errToolkitBoom })
}

func TestWorkers(t *testing.T) {
	tests := []struct {
		name   string
		jobs   int
		inputs int
		want   int
	}{
		{name: "fewer inputs than jobs", jobs: 8, inputs: 3, want: 3},
		{name: "fewer jobs than inputs", jobs: 2, inputs: 100, want: 2},
		{name: "single input", jobs: 4, inputs: 1, want: 1},
		{name: "all cpus", jobs: -1, inputs: 1 << 20, want: runtime.NumCPU()},
		{name: "zero means all cpus", jobs: 0, inputs: 1 << 20, want: runtime.NumCPU()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := FingerprintTransformer{NJobs: tt.jobs}
			if got := tr.Workers(tt.inputs); got != tt.want {
				t.Errorf("Workers(%d) = %d, want %d", tt.inputs, got, tt.want)
			}
		})
	}
}

// TestTransformInputValidation tests empty and nil inputs for every featurizer
func TestTransformInputValidation(t *testing.T) {
	ctx := context.Background()
	bitMorgan := DefaultMorganOptions()
	bitMorgan.ResultType = ResultBitVect

	featurizers := map[string]Featurizer{}
	add := func(name string, f Featurizer, err error) {
		if err != nil {
			t.Fatalf("constructing %s: %v", name, err)
		}
		featurizers[name] = f
	}
	morgan, err := NewMorganFingerprint(bitMorgan, FingerprintTransformer{})
	add("morgan", morgan, err)
	maccs, err := NewMACCSKeysFingerprint(FingerprintTransformer{})
	add("maccs", maccs, err)
	ap, err := NewAtomPairFingerprint(DefaultAtomPairOptions(), FingerprintTransformer{})
	add("atom_pair", ap, err)
	tt, err := NewTopologicalTorsionFingerprint(DefaultTorsionOptions(), FingerprintTransformer{})
	add("torsion", tt, err)
	erg, err := NewERGFingerprint(DefaultERGOptions(), FingerprintTransformer{})
	add("erg", erg, err)
	e3fp, err := NewE3FP(DefaultE3FPOptions(1024, 1.718), FingerprintTransformer{})
	add("e3fp", e3fp, err)

	for name, f := range featurizers {
		t.Run(name, func(t *testing.T) {
			if _, err := f.Transform(ctx, nil); !errors.Is(err, ErrEmptyInput) {
				t.Errorf("Transform(nil) error = %v, want ErrEmptyInput", err)
			}
			if err := f.Fit(ctx, []*Mol{}); !errors.Is(err, ErrEmptyInput) {
				t.Errorf("Fit(empty) error = %v, want ErrEmptyInput", err)
			}
			_, err := f.FitTransform(ctx, []*Mol{MustParseSmiles("CCO"), nil})
			if !errors.Is(err, ErrInvalidMolecule) {
				t.Errorf("FitTransform with nil error = %v, want ErrInvalidMolecule", err)
			}
			if err != nil && !strings.Contains(err.Error(), "element 1") {
				t.Errorf("error %q does not name the nil element", err)
			}
		})
	}
}

// TestParallelMatchesSequential tests that NJobs does not change results or order
func TestParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	mols := testMols(t)

	for _, jobs := range []int{2, 3, 5, 100} {
		seq, err := NewMorganFingerprint(DefaultMorganOptions(), FingerprintTransformer{NJobs: 1})
		if err != nil {
			t.Fatalf("NewMorganFingerprint unexpected error: %v", err)
		}
		par, err := NewMorganFingerprint(DefaultMorganOptions(), FingerprintTransformer{NJobs: jobs})
		if err != nil {
			t.Fatalf("NewMorganFingerprint unexpected error: %v", err)
		}
		want, err := seq.Transform(ctx, mols)
		if err != nil {
			t.Fatalf("sequential Transform unexpected error: %v", err)
		}
		got, err := par.Transform(ctx, mols)
		if err != nil {
			t.Fatalf("parallel Transform unexpected error: %v", err)
		}
		if len(got) != len(mols) {
			t.Fatalf("NJobs=%d: %d outputs, want %d", jobs, len(got), len(mols))
		}
		for i := range want {
			if !got[i].(*SparseCountVect).Equal(want[i].(*SparseCountVect)) {
				t.Errorf("NJobs=%d: output %d differs from sequential", jobs, i)
			}
		}
	}
}

func TestTransformKeepsInputOrder(t *testing.T) {
	ctx := context.Background()
	mols := testMols(t)
	f, err := NewMACCSKeysFingerprint(FingerprintTransformer{NJobs: 4})
	if err != nil {
		t.Fatalf("NewMACCSKeysFingerprint unexpected error: %v", err)
	}
	fps, err := f.Transform(ctx, mols)
	if err != nil {
		t.Fatalf("Transform unexpected error: %v", err)
	}
	for i, m := range mols {
		if !fps[i].(*BitVect).Equal(maccsKeys(m)) {
			t.Errorf("output %d is not the fingerprint of input %d", i, i)
		}
	}
}

// TestTransformToolkitFailures tests how worker failures reach the caller
func TestTransformToolkitFailures(t *testing.T) {
	ctx := context.Background()
	mols := testMols(t)

	tests := []struct {
		name    string
		toolkit string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "toolkit error passes through unchanged",
			toolkit: "test-failing",
			check: func(t *testing.T, err error) {
				if err != errToolkitBoom {
					t.Errorf("error = %v, want the toolkit's own error", err)
				}
			},
		},
		{
			name:    "panic becomes an error naming the chunk",
			toolkit: "test-panicking",
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "panicked") || !strings.Contains(err.Error(), "keys exploded") {
					t.Errorf("error = %v, want a recovered panic", err)
				}
			},
		},
		{
			name:    "factory error",
			toolkit: "test-unavailable",
			check: func(t *testing.T, err error) {
				if err != errToolkitBoom {
					t.Errorf("error = %v, want the factory error", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewMACCSKeysFingerprint(FingerprintTransformer{NJobs: 3, Toolkit: tt.toolkit})
			if err != nil {
				t.Fatalf("NewMACCSKeysFingerprint unexpected error: %v", err)
			}
			fps, err := f.Transform(ctx, mols)
			if fps != nil {
				t.Errorf("Transform returned %d outputs alongside an error", len(fps))
			}
			tt.check(t, err)
		})
	}
}

func TestUnknownToolkitRejectedAtConstruction(t *testing.T) {
	_, err := NewMACCSKeysFingerprint(FingerprintTransformer{Toolkit: "rdkit-not-here"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
	if _, err := ResolveToolkit("rdkit-not-here"); !errors.Is(err, ErrUnknownToolkit) {
		t.Errorf("ResolveToolkit error = %v, want ErrUnknownToolkit", err)
	}
	tk, err := ResolveToolkit("")
	if err != nil || tk.Name() != NativeToolkit {
		t.Errorf("ResolveToolkit(\"\") = %v, %v; want the native toolkit", tk, err)
	}
}

func TestTransformCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, err := NewMACCSKeysFingerprint(FingerprintTransformer{NJobs: 2})
	if err != nil {
		t.Fatalf("NewMACCSKeysFingerprint unexpected error: %v", err)
	}
	if _, err := f.Transform(ctx, testMols(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Transform error = %v, want context.Canceled", err)
	}
}

func TestToolkits(t *testing.T) {
	names := Toolkits()
	if !slices.IsSorted(names) {
		t.Errorf("Toolkits() = %v, not sorted", names)
	}
	for _, want := range []string{NativeToolkit, "test-failing", "test-panicking", "test-unavailable"} {
		if !slices.Contains(names, want) {
			t.Errorf("Toolkits() = %v, missing %q", names, want)
		}
	}
}
