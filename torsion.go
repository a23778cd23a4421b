package molprint

import (
	"context"
	"slices"
)

// TorsionOptions configures the topological torsion fingerprint.
type TorsionOptions struct {
	NBits int `mapstructure:"n_bits" json:"n_bits"`
	// TargetSize is the number of atoms in a torsion path.
	TargetSize       int        `mapstructure:"target_size" json:"target_size"`
	FromAtoms        []int      `mapstructure:"from_atoms" json:"from_atoms,omitempty"`
	IgnoreAtoms      []int      `mapstructure:"ignore_atoms" json:"ignore_atoms,omitempty"`
	AtomInvariants   []uint32   `mapstructure:"atom_invariants" json:"atom_invariants,omitempty"`
	IncludeChirality bool       `mapstructure:"include_chirality" json:"include_chirality"`
	ResultType       ResultType `mapstructure:"result_type" json:"result_type"`
}

// DefaultTorsionOptions returns four-atom torsions with 2048 bits.
func DefaultTorsionOptions() TorsionOptions {
	return TorsionOptions{
		NBits:      2048,
		TargetSize: 4,
		ResultType: ResultDefault,
	}
}

func (o TorsionOptions) validate() error {
	if o.NBits <= 0 {
		return invalidConfig("n_bits must be positive, got %d", o.NBits)
	}
	if o.TargetSize < 2 {
		return invalidConfig("target_size must be >= 2, got %d", o.TargetSize)
	}
	return o.ResultType.validate()
}

// TopologicalTorsionFingerprint describes every linear path of TargetSize atoms by
// the codes of its atoms, end atoms counting one fewer branch and inner atoms two fewer.
type TopologicalTorsionFingerprint struct {
	FingerprintTransformer `mapstructure:",squash"`
	TorsionOptions         `mapstructure:",squash"`
}

// NewTopologicalTorsionFingerprint validates opts and returns a featurizer.
func NewTopologicalTorsionFingerprint(opts TorsionOptions, exec FingerprintTransformer) (*TopologicalTorsionFingerprint, error) {
	f := &TopologicalTorsionFingerprint{FingerprintTransformer: exec, TorsionOptions: opts}
	if err := f.TorsionOptions.validate(); err != nil {
		return nil, err
	}
	if err := f.validateBase(); err != nil {
		return nil, err
	}
	return f, nil
}

// Width returns NBits, or SparseLength for the default result type.
func (f *TopologicalTorsionFingerprint) Width() int { return f.ResultType.width(f.NBits) }

// Transform computes one fingerprint per molecule.
func (f *TopologicalTorsionFingerprint) Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	opts := f.TorsionOptions
	return transformMols(ctx, f.FingerprintTransformer, "torsion", mols,
		func(_ context.Context, tk Toolkit, _ int, m *Mol) (Fingerprint, error) {
			return tk.TopologicalTorsions(m, opts)
		})
}

// FitTransform validates mols and transforms them.
func (f *TopologicalTorsionFingerprint) FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := f.Fit(ctx, mols); err != nil {
		return nil, err
	}
	return f.Transform(ctx, mols)
}

func torsionFingerprint(m *Mol, opts TorsionOptions) (Fingerprint, error) {
	filter, err := newAtomFilter(m, opts.FromAtoms, opts.IgnoreAtoms)
	if err != nil {
		return nil, err
	}
	var chiral []int
	if opts.IncludeChirality {
		chiral = chiralLabels(m, canonicalRanks(m))
	}
	ends, err := atomCodes(m, opts.AtomInvariants, 1, chiral)
	if err != nil {
		return nil, err
	}
	inner, err := atomCodes(m, opts.AtomInvariants, 2, chiral)
	if err != nil {
		return nil, err
	}

	counts := make(map[uint32]uint32)
	for _, path := range linearPaths(m, opts.TargetSize, filter) {
		last := len(path) - 1
		if !filter.endpointAllowed(path[0], path[last]) {
			continue
		}
		codes := make([]uint32, len(path))
		for k, a := range path {
			if k == 0 || k == last {
				codes[k] = ends[a]
			} else {
				codes[k] = inner[a]
			}
		}
		rev := slices.Clone(codes)
		slices.Reverse(rev)
		if slices.Compare(rev, codes) < 0 {
			codes = rev
		}
		counts[hashInts(codes...)]++
	}
	return shapeHashed(counts, opts.ResultType, opts.NBits, 1), nil
}

// linearPaths enumerates simple paths of size atoms, each path once. Paths whose two
// ends are bonded would close a ring and are skipped.
func linearPaths(m *Mol, size int, filter atomFilter) [][]int {
	var out [][]int
	path := make([]int, 0, size)
	onPath := make([]bool, m.NumAtoms())

	var walk func(a int)
	walk = func(a int) {
		path = append(path, a)
		onPath[a] = true
		defer func() {
			path = path[:len(path)-1]
			onPath[a] = false
		}()
		if len(path) == size {
			first, last := path[0], path[size-1]
			if first < last {
				if _, closes := m.BondBetween(first, last); !closes || size < 3 {
					out = append(out, slices.Clone(path))
				}
			}
			return
		}
		for _, e := range m.adj[a] {
			if onPath[e.atom] || filter.ignored(e.atom) {
				continue
			}
			walk(e.atom)
		}
	}
	for a := range m.atoms {
		if !filter.ignored(a) {
			walk(a)
		}
	}
	return out
}
