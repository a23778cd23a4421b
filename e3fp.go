package molprint

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
)

// E3FPShellOptions configures the per-conformer E3FP hashing performed by a Toolkit.
type E3FPShellOptions struct {
	// Bits is the width identifiers are reduced to.
	Bits int
	// RadiusMultiplier is the shell radius growth per level, in angstroms.
	RadiusMultiplier float64
	// Level is the number of expansion rounds; negative iterates until no new
	// substructures appear.
	Level int
	// RDKitInvariants selects Morgan connectivity invariants for level 0.
	RDKitInvariants bool
}

// E3FPOptions configures the E3FP featurizer.
type E3FPOptions struct {
	Bits             int     `mapstructure:"bits" json:"bits"`
	RadiusMultiplier float64 `mapstructure:"radius_multiplier" json:"radius_multiplier"`
	RDKitInvariants  bool    `mapstructure:"rdkit_invariants" json:"rdkit_invariants"`
	Level            int     `mapstructure:"level" json:"level"`

	// First keeps only the lowest-energy conformers when positive.
	First          int            `mapstructure:"first" json:"first"`
	NumConf        int            `mapstructure:"num_conf" json:"num_conf"`
	PoolMultiplier int            `mapstructure:"pool_multiplier" json:"pool_multiplier"`
	RMSDCutoff     float64        `mapstructure:"rmsd_cutoff" json:"rmsd_cutoff"`
	MaxEnergyDiff  float64        `mapstructure:"max_energy_diff" json:"max_energy_diff"`
	ForceField     ForceFieldKind `mapstructure:"forcefield" json:"forcefield"`
	RandomState    int64          `mapstructure:"random_state" json:"random_state"`

	// GetValues annotates each fingerprint with its conformer energy.
	GetValues bool `mapstructure:"get_values" json:"get_values"`
	// IsFolded folds every fingerprint to FoldBits.
	IsFolded bool `mapstructure:"is_folded" json:"is_folded"`
	FoldBits int  `mapstructure:"fold_bits" json:"fold_bits"`
	// Standardise standardizes each molecule before embedding.
	Standardise bool `mapstructure:"standardise" json:"standardise"`
}

// DefaultE3FPOptions returns E3FP defaults for the given required parameters.
func DefaultE3FPOptions(bits int, radiusMultiplier float64) E3FPOptions {
	return E3FPOptions{
		Bits:             bits,
		RadiusMultiplier: radiusMultiplier,
		RDKitInvariants:  true,
		Level:            5,
		First:            1,
		NumConf:          AutoNumConf,
		PoolMultiplier:   1,
		RMSDCutoff:       0.5,
		MaxEnergyDiff:    -1,
		ForceField:       UFF,
		GetValues:        true,
		FoldBits:         1024,
		Standardise:      true,
	}
}

func (o E3FPOptions) validate() error {
	switch {
	case o.Bits <= 0:
		return invalidConfig("bits must be positive, got %d", o.Bits)
	case o.RadiusMultiplier <= 0 || math.IsNaN(o.RadiusMultiplier):
		return invalidConfig("radius_multiplier must be positive, got %g", o.RadiusMultiplier)
	case o.IsFolded && (o.FoldBits <= 0 || o.FoldBits > o.Bits):
		return invalidConfig("fold_bits must be in [1, bits], got %d", o.FoldBits)
	case o.First == 0 || o.First < -1:
		return invalidConfig("first must be positive or -1, got %d", o.First)
	}
	return o.conformerOptions().validate()
}

func (o E3FPOptions) conformerOptions() ConformerOptions {
	c := DefaultConformerOptions()
	c.NumConf = o.NumConf
	c.First = o.First
	c.PoolMultiplier = o.PoolMultiplier
	c.RMSDCutoff = o.RMSDCutoff
	c.MaxEnergyDiff = o.MaxEnergyDiff
	c.ForceField = o.ForceField
	c.RandomState = o.RandomState
	return c
}

func (o E3FPOptions) shellOptions() E3FPShellOptions {
	return E3FPShellOptions{
		Bits:             o.Bits,
		RadiusMultiplier: o.RadiusMultiplier,
		Level:            o.Level,
		RDKitInvariants:  o.RDKitInvariants,
	}
}

// E3FP computes extended 3D fingerprints, one per retained conformer.
//
// Each molecule is re-canonicalized through SMILES, optionally standardized and
// embedded; every kept conformer yields a ConformerFingerprint tagged with its
// source molecule index and its conformer's force-field energy. Output is
// grouped by molecule in input order, conformers lowest energy first. Use
// GroupBySource to regroup per molecule.
type E3FP struct {
	FingerprintTransformer `mapstructure:",squash"`
	E3FPOptions            `mapstructure:",squash"`
}

// NewE3FP validates opts and returns a featurizer.
func NewE3FP(opts E3FPOptions, exec FingerprintTransformer) (*E3FP, error) {
	f := &E3FP{FingerprintTransformer: exec, E3FPOptions: opts}
	if err := f.E3FPOptions.validate(); err != nil {
		return nil, err
	}
	if err := f.validateBase(); err != nil {
		return nil, err
	}
	return f, nil
}

// Width returns FoldBits when folding, Bits otherwise.
func (f *E3FP) Width() int {
	if f.IsFolded {
		return f.FoldBits
	}
	return f.Bits
}

// Transform computes the conformer fingerprints of mols. The result is not index
// aligned with mols; see ConformerFingerprint.Source.
func (f *E3FP) Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := validateMols(mols); err != nil {
		return nil, err
	}
	opts := f.E3FPOptions
	return dispatch(ctx, f.FingerprintTransformer, "e3fp", mols,
		func(ctx context.Context, tk Toolkit, offset int, chunk []*Mol) ([]Fingerprint, error) {
			var out []Fingerprint
			for i, m := range chunk {
				fps, err := e3fpMolecule(ctx, tk, m, offset+i, opts)
				if err != nil {
					return nil, err
				}
				out = append(out, fps...)
			}
			return out, nil
		})
}

// FitTransform validates mols and transforms them.
func (f *E3FP) FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := f.Fit(ctx, mols); err != nil {
		return nil, err
	}
	return f.Transform(ctx, mols)
}

func e3fpMolecule(ctx context.Context, tk Toolkit, m *Mol, source int, opts E3FPOptions) ([]Fingerprint, error) {
	smiles, err := tk.CanonicalSmiles(m)
	if err != nil {
		return nil, err
	}
	mol, err := tk.ParseSmiles(smiles)
	if err != nil {
		return nil, err
	}
	if opts.Standardise {
		if mol, err = tk.Standardize(mol, DefaultStandardizeOptions()); err != nil {
			return nil, err
		}
	}
	embedded, err := tk.EmbedConformers(ctx, mol, opts.conformerOptions())
	if err != nil {
		return nil, err
	}
	bits, err := tk.E3FP(embedded, opts.shellOptions())
	if err != nil {
		return nil, err
	}
	confs := embedded.Conformers()
	out := make([]Fingerprint, 0, len(bits))
	for c, bv := range bits {
		if opts.IsFolded {
			if bv, err = bv.Fold(opts.FoldBits); err != nil {
				return nil, err
			}
		}
		energy := math.NaN()
		if opts.GetValues {
			energy = confs[c].Energy
		}
		out = append(out, &ConformerFingerprint{Bits: bv, Source: source, Conformer: c, Energy: energy})
	}
	return out, nil
}

// e3fpFingerprints hashes every conformer of m into a Bits-wide vector.
//
// HOW IT WORKS:
//
// ═══ STEP 1: Level 0 ═══
// Every heavy atom gets an identifier from its invariants.
//
// ═══ STEP 2: Shells ═══
// At level L the shell of an atom holds the atoms within L·RadiusMultiplier
// angstroms. The new identifier hashes the level, the atom's previous identifier and
// the sorted (bond order, previous identifier) pairs of its shell, bond order being
// 0 for atoms that are not bonded to the center.
//
// ═══ STEP 3: Deduplicate ═══
// A shell covering the same atoms as a shell seen before adds no identifier.
func e3fpFingerprints(m *Mol, opts E3FPShellOptions) ([]*BitVect, error) {
	if m.NumConformers() == 0 {
		return nil, errors.Wrap(ErrInvalidMolecule, "E3FP needs at least one conformer")
	}
	heavy := heavyAtoms(m)
	level0 := e3fpInvariants(m, heavy, opts.RDKitInvariants)
	out := make([]*BitVect, 0, m.NumConformers())
	for _, conf := range m.Conformers() {
		ids := e3fpIdentifiers(m, conf.Coords, heavy, level0, opts)
		bv := NewBitVect(opts.Bits)
		for _, id := range ids {
			bv.Set(int(id % uint32(opts.Bits)))
		}
		out = append(out, bv)
	}
	return out, nil
}

func e3fpInvariants(m *Mol, heavy []int, rdkit bool) []uint32 {
	inv := make([]uint32, len(heavy))
	if rdkit {
		all := morganInvariants(m, false)
		for k, i := range heavy {
			inv[k] = all[i]
		}
		return inv
	}
	for k, i := range heavy {
		a := m.atoms[i]
		ring := 0
		if m.IsAtomInRing(i) {
			ring = 1
		}
		mass := a.Isotope
		if mass == 0 {
			mass = int(math.Round(AtomicMass(a.Element)))
		}
		inv[k] = hashSigned(m.HeavyDegree(i), m.Valence(i)-m.TotalHs(i), a.Element, mass, a.Charge, m.TotalHs(i), ring)
	}
	return inv
}

type e3fpShell struct {
	id  uint32
	key string
}

func e3fpIdentifiers(m *Mol, coords [][3]float64, heavy []int, level0 []uint32, opts E3FPShellOptions) []uint32 {
	n := len(heavy)
	ids := slices.Clone(level0)
	out := slices.Clone(level0)

	seen := make(map[string]bool, n)
	prevShell := make([]*bitset.BitSet, n)
	for k := range heavy {
		prevShell[k] = bitset.New(uint(n)).Set(uint(k))
		seen[prevShell[k].DumpAsBits()] = true
	}

	type pair struct{ conn, id uint32 }
	maxLevel := opts.Level
	for level := 1; maxLevel < 0 || level <= maxLevel; level++ {
		radius := float64(level) * opts.RadiusMultiplier
		next := make([]uint32, n)
		shells := make([]*bitset.BitSet, n)
		var found []e3fpShell
		grew := false
		for k, i := range heavy {
			shell := bitset.New(uint(n)).Set(uint(k))
			var pairs []pair
			for l, j := range heavy {
				if l == k || distance3(coords[i], coords[j]) > radius {
					continue
				}
				shell.Set(uint(l))
				conn := uint32(0)
				if b, ok := m.BondBetween(i, j); ok {
					conn = uint32(m.bonds[b].Order)
				}
				pairs = append(pairs, pair{conn: conn, id: ids[l]})
			}
			slices.SortFunc(pairs, func(a, b pair) int {
				if c := cmp.Compare(a.conn, b.conn); c != 0 {
					return c
				}
				return cmp.Compare(a.id, b.id)
			})
			vals := []uint32{uint32(level), ids[k]}
			for _, p := range pairs {
				vals = append(vals, p.conn, p.id)
			}
			next[k] = hashInts(vals...)
			shells[k] = shell
			if !shell.Equal(prevShell[k]) {
				grew = true
			}
			found = append(found, e3fpShell{id: next[k], key: shell.DumpAsBits()})
		}
		if !grew {
			break
		}
		slices.SortFunc(found, func(a, b e3fpShell) int {
			if c := cmp.Compare(a.key, b.key); c != 0 {
				return c
			}
			return cmp.Compare(a.id, b.id)
		})
		for _, s := range found {
			if seen[s.key] {
				continue
			}
			seen[s.key] = true
			out = append(out, s.id)
		}
		ids, prevShell = next, shells
	}
	return out
}
