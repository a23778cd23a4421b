package molprint

import (
	"cmp"
	"context"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// MorganOptions configures the Morgan (ECFP/FCFP) circular fingerprint.
type MorganOptions struct {
	// Radius is the number of neighborhood expansion rounds; radius 2 gives ECFP4.
	Radius int `mapstructure:"radius" json:"radius"`
	// NBits is the width of the folded outputs.
	NBits int `mapstructure:"n_bits" json:"n_bits"`
	// UseChirality mixes tetrahedral handedness into identifiers after round 0.
	UseChirality bool `mapstructure:"use_chirality" json:"use_chirality"`
	// UseBondTypes distinguishes neighbors by bond order.
	UseBondTypes bool `mapstructure:"use_bond_types" json:"use_bond_types"`
	// UseFeatures replaces atom invariants by pharmacophoric feature classes (FCFP).
	UseFeatures bool       `mapstructure:"use_features" json:"use_features"`
	ResultType  ResultType `mapstructure:"result_type" json:"result_type"`
}

// DefaultMorganOptions returns ECFP4 with 2048 bits and the sparse count output.
func DefaultMorganOptions() MorganOptions {
	return MorganOptions{
		Radius:       2,
		NBits:        2048,
		UseBondTypes: true,
		ResultType:   ResultDefault,
	}
}

func (o MorganOptions) validate() error {
	if o.Radius < 0 {
		return invalidConfig("radius must be >= 0, got %d", o.Radius)
	}
	if o.NBits <= 0 {
		return invalidConfig("n_bits must be positive, got %d", o.NBits)
	}
	return o.ResultType.validate()
}

// MorganFingerprint computes Morgan circular fingerprints.
//
// Every atom starts from an invariant of its element, degree, hydrogens, charge,
// isotope and ring membership (or its pharmacophore classes with UseFeatures). Each
// round hashes an atom's identifier with its neighbors' identifiers, describing a
// circular environment one bond larger. Environments covering the same set of bonds
// as an earlier one are dropped.
type MorganFingerprint struct {
	FingerprintTransformer `mapstructure:",squash"`
	MorganOptions          `mapstructure:",squash"`
}

// NewMorganFingerprint validates opts and returns a featurizer.
// It fails with ErrInvalidConfig before any molecule is seen.
func NewMorganFingerprint(opts MorganOptions, exec FingerprintTransformer) (*MorganFingerprint, error) {
	f := &MorganFingerprint{FingerprintTransformer: exec, MorganOptions: opts}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *MorganFingerprint) validate() error {
	if err := f.MorganOptions.validate(); err != nil {
		return err
	}
	return f.validateBase()
}

// Width returns NBits, or SparseLength for the default result type.
func (f *MorganFingerprint) Width() int { return f.ResultType.width(f.NBits) }

// Transform computes one fingerprint per molecule.
func (f *MorganFingerprint) Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	opts := f.MorganOptions
	return transformMols(ctx, f.FingerprintTransformer, "morgan", mols,
		func(_ context.Context, tk Toolkit, _ int, m *Mol) (Fingerprint, error) {
			return tk.Morgan(m, opts)
		})
}

// FitTransform validates mols and transforms them.
func (f *MorganFingerprint) FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := f.Fit(ctx, mols); err != nil {
		return nil, err
	}
	return f.Transform(ctx, mols)
}

// morganEnv is a candidate environment produced in one round.
type morganEnv struct {
	atom int
	id   uint32
	bits *bitset.BitSet
	key  string
}

func morganInvariants(m *Mol, useFeatures bool) []uint32 {
	n := m.NumAtoms()
	inv := make([]uint32, n)
	if useFeatures {
		for i, mask := range featureMasks(m, morganFeatures) {
			inv[i] = hashInts(mask)
		}
		return inv
	}
	for i, a := range m.atoms {
		ring := 0
		if m.IsAtomInRing(i) {
			ring = 1
		}
		delta := 0
		if a.Isotope > 0 {
			delta = a.Isotope - int(AtomicMass(a.Element)+0.5)
		}
		inv[i] = hashSigned(a.Element, m.HeavyDegree(i)+m.TotalHs(i), m.TotalHs(i), a.Charge, delta, ring)
	}
	return inv
}

func morganFingerprint(m *Mol, opts MorganOptions) Fingerprint {
	n := m.NumAtoms()
	counts := make(map[uint32]uint32)
	ids := morganInvariants(m, opts.UseFeatures)
	for _, id := range ids {
		counts[id]++
	}

	var chiral []int
	if opts.UseChirality {
		chiral = chiralLabels(m, canonicalRanks(m))
	}

	envs := make([]*bitset.BitSet, n)
	for i := range envs {
		envs[i] = bitset.New(uint(m.NumBonds()))
	}
	dead := make([]bool, n)
	seen := make(map[string]bool)

	type nbr struct {
		order uint32
		id    uint32
	}
	for round := 1; round <= opts.Radius; round++ {
		next := make([]uint32, n)
		nextEnvs := make([]*bitset.BitSet, n)
		var candidates []morganEnv
		for i := 0; i < n; i++ {
			nextEnvs[i] = envs[i]
			if dead[i] {
				next[i] = ids[i]
				continue
			}
			if len(m.adj[i]) == 0 {
				dead[i] = true
				next[i] = ids[i]
				continue
			}
			nbs := make([]nbr, 0, len(m.adj[i]))
			env := envs[i].Clone()
			for _, e := range m.adj[i] {
				order := uint32(1)
				if opts.UseBondTypes {
					order = uint32(m.bonds[e.bond].Order)
				}
				nbs = append(nbs, nbr{order: order, id: ids[e.atom]})
				env.Set(uint(e.bond))
				env.InPlaceUnion(envs[e.atom])
			}
			slices.SortFunc(nbs, func(a, b nbr) int {
				if c := cmp.Compare(a.order, b.order); c != 0 {
					return c
				}
				return cmp.Compare(a.id, b.id)
			})
			vals := []uint32{uint32(round), ids[i]}
			for _, nb := range nbs {
				vals = append(vals, nb.order, nb.id)
			}
			if chiral != nil && chiral[i] != 0 {
				vals = append(vals, uint32(chiral[i]))
			}
			next[i] = hashInts(vals...)
			nextEnvs[i] = env
			candidates = append(candidates, morganEnv{atom: i, id: next[i], bits: env, key: env.DumpAsBits()})
		}

		slices.SortFunc(candidates, func(a, b morganEnv) int {
			if c := cmp.Compare(a.key, b.key); c != 0 {
				return c
			}
			return cmp.Compare(a.id, b.id)
		})
		for _, c := range candidates {
			if seen[c.key] || c.bits.Equal(envs[c.atom]) {
				dead[c.atom] = true
				continue
			}
			seen[c.key] = true
			counts[c.id]++
		}
		ids, envs = next, nextEnvs
	}
	return opts.ResultType.shape(counts, opts.NBits)
}
