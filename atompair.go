package molprint

import (
	"context"
	"math"
	"slices"

	"github.com/cockroachdb/errors"
)

// Atom codes pack (branches, pi electrons, element class, chirality) into 12 bits.
const (
	codeBranchBits  = 3
	codePiBits      = 2
	codeTypeBits    = 5
	codeChiralBits  = 2
	atomCodeBits    = codeBranchBits + codePiBits + codeTypeBits + codeChiralBits
	pairDistBits    = 5
	maxPairDistance = 1<<pairDistBits - 1
)

// atomTypeElements lists the elements with their own type code; every other element
// shares the final code.
var atomTypeElements = []int{6, 7, 8, 9, 15, 16, 17, 35, 53, 5, 14, 34, 33, 1}

// atomCode returns the topological atom code used by atom pairs and torsions.
// subtract is removed from the heavy degree so path atoms describe only their branches.
func atomCode(m *Mol, i, subtract int, chiral []int) uint32 {
	branches := max(0, m.HeavyDegree(i)-subtract) % (1 << codeBranchBits)
	pi := min(m.PiElectrons(i), 1<<codePiBits-1)
	typ := slices.Index(atomTypeElements, m.atoms[i].Element)
	if typ < 0 {
		typ = len(atomTypeElements)
	}
	code := uint32(branches) | uint32(pi)<<codeBranchBits | uint32(typ)<<(codeBranchBits+codePiBits)
	if chiral != nil {
		code |= uint32(chiral[i]) << (codeBranchBits + codePiBits + codeTypeBits)
	}
	return code
}

// atomFilter restricts which atoms may take part in a pair or torsion.
type atomFilter struct {
	from   map[int]bool
	ignore map[int]bool
}

func newAtomFilter(m *Mol, from, ignore []int) (atomFilter, error) {
	f := atomFilter{}
	for _, list := range [][]int{from, ignore} {
		for _, a := range list {
			if a < 0 || a >= m.NumAtoms() {
				return f, errors.Wrapf(ErrInvalidMolecule, "atom index %d out of range for %d atoms", a, m.NumAtoms())
			}
		}
	}
	if len(from) > 0 {
		f.from = make(map[int]bool, len(from))
		for _, a := range from {
			f.from[a] = true
		}
	}
	f.ignore = make(map[int]bool, len(ignore))
	for _, a := range ignore {
		f.ignore[a] = true
	}
	return f, nil
}

func (f atomFilter) ignored(i int) bool { return f.ignore[i] }

func (f atomFilter) endpointAllowed(a, b int) bool {
	return f.from == nil || f.from[a] || f.from[b]
}

// atomCodes returns per-atom codes, or the caller's invariants when provided.
func atomCodes(m *Mol, custom []uint32, subtract int, chiral []int) ([]uint32, error) {
	if len(custom) > 0 {
		if len(custom) != m.NumAtoms() {
			return nil, errors.Wrapf(ErrInvalidMolecule, "%d atom invariants for %d atoms", len(custom), m.NumAtoms())
		}
		return custom, nil
	}
	codes := make([]uint32, m.NumAtoms())
	for i := range codes {
		codes[i] = atomCode(m, i, subtract, chiral)
	}
	return codes, nil
}

// shapeHashed folds identifiers into nbits positions. Identifiers are re-hashed first
// because packed codes are not uniformly distributed.
func shapeHashed(counts map[uint32]uint32, rt ResultType, nbits, nbitsPerEntry int) Fingerprint {
	if rt == ResultDefault {
		return rt.shape(counts, nbits)
	}
	hashed := make(map[uint32]uint32, len(counts))
	for id, c := range counts {
		hashed[hashInts(id)] += c
	}
	if rt == ResultBitVect && nbitsPerEntry > 1 {
		return simulateCounts(hashed, nbits, nbitsPerEntry)
	}
	return rt.shape(hashed, nbits)
}

// simulateCounts encodes counts in a bit vector: each feature owns nbitsPerEntry
// consecutive bits, bit j being set when the count reaches 2^j.
func simulateCounts(counts map[uint32]uint32, nbits, nbitsPerEntry int) *BitVect {
	v := NewBitVect(nbits)
	slots := uint32(nbits / nbitsPerEntry)
	for id, c := range counts {
		base := int(id%slots) * nbitsPerEntry
		for j := 0; j < nbitsPerEntry; j++ {
			if c >= 1<<j {
				v.Set(base + j)
			}
		}
	}
	return v
}

// AtomPairOptions configures the atom pair fingerprint.
type AtomPairOptions struct {
	NBits int `mapstructure:"n_bits" json:"n_bits"`
	// MinLength and MaxLength bound the pair distance in bonds.
	MinLength int `mapstructure:"min_length" json:"min_length"`
	MaxLength int `mapstructure:"max_length" json:"max_length"`
	// FromAtoms keeps only pairs with at least one atom in the list.
	FromAtoms []int `mapstructure:"from_atoms" json:"from_atoms,omitempty"`
	// IgnoreAtoms drops pairs touching any listed atom.
	IgnoreAtoms []int `mapstructure:"ignore_atoms" json:"ignore_atoms,omitempty"`
	// AtomInvariants replaces the computed atom codes, one value per atom.
	AtomInvariants []uint32 `mapstructure:"atom_invariants" json:"atom_invariants,omitempty"`
	// NBitsPerEntry is the number of bits used to simulate counts in the bit vector form.
	NBitsPerEntry    int  `mapstructure:"n_bits_per_entry" json:"n_bits_per_entry"`
	IncludeChirality bool `mapstructure:"include_chirality" json:"include_chirality"`
	// Use2D measures distance in bonds; otherwise the rounded 3D distance of the
	// first conformer, in angstroms, is used.
	Use2D      bool       `mapstructure:"use_2d" json:"use_2d"`
	ResultType ResultType `mapstructure:"result_type" json:"result_type"`
}

// DefaultAtomPairOptions returns the usual atom pair settings.
func DefaultAtomPairOptions() AtomPairOptions {
	return AtomPairOptions{
		NBits:         2048,
		MinLength:     1,
		MaxLength:     30,
		NBitsPerEntry: 4,
		Use2D:         true,
		ResultType:    ResultDefault,
	}
}

func (o AtomPairOptions) validate() error {
	switch {
	case o.NBits <= 0:
		return invalidConfig("n_bits must be positive, got %d", o.NBits)
	case o.MinLength < 0 || o.MaxLength < o.MinLength:
		return invalidConfig("need 0 <= min_length <= max_length, got %d and %d", o.MinLength, o.MaxLength)
	case o.MaxLength > maxPairDistance:
		return invalidConfig("max_length must be <= %d, got %d", maxPairDistance, o.MaxLength)
	case o.NBitsPerEntry <= 0 || o.NBitsPerEntry > o.NBits:
		return invalidConfig("n_bits_per_entry must be in [1, n_bits], got %d", o.NBitsPerEntry)
	}
	return o.ResultType.validate()
}

// AtomPairFingerprint computes atom pair fingerprints: every pair of atoms is
// described by both atom codes and the distance between them.
type AtomPairFingerprint struct {
	FingerprintTransformer `mapstructure:",squash"`
	AtomPairOptions        `mapstructure:",squash"`
}

// NewAtomPairFingerprint validates opts and returns a featurizer.
func NewAtomPairFingerprint(opts AtomPairOptions, exec FingerprintTransformer) (*AtomPairFingerprint, error) {
	f := &AtomPairFingerprint{FingerprintTransformer: exec, AtomPairOptions: opts}
	if err := f.AtomPairOptions.validate(); err != nil {
		return nil, err
	}
	if err := f.validateBase(); err != nil {
		return nil, err
	}
	return f, nil
}

// Width returns NBits, or SparseLength for the default result type.
func (f *AtomPairFingerprint) Width() int { return f.ResultType.width(f.NBits) }

// Transform computes one fingerprint per molecule.
func (f *AtomPairFingerprint) Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	opts := f.AtomPairOptions
	return transformMols(ctx, f.FingerprintTransformer, "atom_pair", mols,
		func(_ context.Context, tk Toolkit, _ int, m *Mol) (Fingerprint, error) {
			return tk.AtomPairs(m, opts)
		})
}

// FitTransform validates mols and transforms them.
func (f *AtomPairFingerprint) FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := f.Fit(ctx, mols); err != nil {
		return nil, err
	}
	return f.Transform(ctx, mols)
}

func atomPairFingerprint(m *Mol, opts AtomPairOptions) (Fingerprint, error) {
	filter, err := newAtomFilter(m, opts.FromAtoms, opts.IgnoreAtoms)
	if err != nil {
		return nil, err
	}
	var chiral []int
	if opts.IncludeChirality {
		chiral = chiralLabels(m, canonicalRanks(m))
	}
	codes, err := atomCodes(m, opts.AtomInvariants, 0, chiral)
	if err != nil {
		return nil, err
	}
	dist, err := pairDistances(m, opts.Use2D)
	if err != nil {
		return nil, err
	}

	counts := make(map[uint32]uint32)
	n := m.NumAtoms()
	for i := 0; i < n; i++ {
		if filter.ignored(i) {
			continue
		}
		for j := i + 1; j < n; j++ {
			if filter.ignored(j) || !filter.endpointAllowed(i, j) {
				continue
			}
			d := dist[i][j]
			if d < 0 || d < opts.MinLength || d > opts.MaxLength {
				continue
			}
			counts[pairCode(codes[i], codes[j], d)]++
		}
	}
	return shapeHashed(counts, opts.ResultType, opts.NBits, opts.NBitsPerEntry), nil
}

// pairCode packs two atom codes and their distance, smaller code first.
func pairCode(a, b uint32, dist int) uint32 {
	lo, hi := min(a, b), max(a, b)
	mask := uint32(1)<<atomCodeBits - 1
	return lo&mask | uint32(dist)<<atomCodeBits | (hi&mask)<<(atomCodeBits+pairDistBits)
}

func pairDistances(m *Mol, use2D bool) ([][]int, error) {
	if use2D {
		return m.TopologicalDistances(), nil
	}
	if m.NumConformers() == 0 {
		return nil, errors.Wrap(ErrInvalidMolecule, "3D atom pairs need a conformer")
	}
	coords := m.conformers[0].Coords
	n := m.NumAtoms()
	dist := make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		for j := range dist[i] {
			dist[i][j] = int(math.Round(distance3(coords[i], coords[j])))
		}
	}
	return dist, nil
}

func distance3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
