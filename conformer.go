package molprint

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/wizenheimer/molprint/internal/log"
)

// AutoNumConf lets the generator pick the number of conformers from the number of
// rotatable bonds.
const AutoNumConf = -1

// ConformerOptions configures 3D conformer generation.
type ConformerOptions struct {
	// NumConf is the number of conformers to keep, or AutoNumConf.
	NumConf int `mapstructure:"num_conf" json:"num_conf"`
	// First truncates the final list when positive.
	First int `mapstructure:"first" json:"first"`
	// PoolMultiplier scales the number of embedded candidates: NumConf·PoolMultiplier.
	PoolMultiplier int `mapstructure:"pool_multiplier" json:"pool_multiplier"`
	// RMSDCutoff is the minimum heavy-atom RMSD in angstroms between kept
	// conformers. Negative disables pruning.
	RMSDCutoff float64 `mapstructure:"rmsd_cutoff" json:"rmsd_cutoff"`
	// MaxEnergyDiff drops conformers more than this many kcal/mol above the minimum.
	// Negative disables the window.
	MaxEnergyDiff float64        `mapstructure:"max_energy_diff" json:"max_energy_diff"`
	ForceField    ForceFieldKind `mapstructure:"forcefield" json:"forcefield"`
	// RandomState seeds embedding. The same seed always yields the same conformers
	// for the same molecule.
	RandomState int64 `mapstructure:"random_state" json:"random_state"`
	// MaxIterations bounds each minimization.
	MaxIterations int `mapstructure:"max_iterations" json:"max_iterations"`
}

// DefaultConformerOptions returns the generator defaults.
func DefaultConformerOptions() ConformerOptions {
	return ConformerOptions{
		NumConf:        AutoNumConf,
		First:          -1,
		PoolMultiplier: 1,
		RMSDCutoff:     0.5,
		MaxEnergyDiff:  -1,
		ForceField:     UFF,
		MaxIterations:  300,
	}
}

func (o ConformerOptions) validate() error {
	switch {
	case o.NumConf == 0 || o.NumConf < AutoNumConf:
		return invalidConfig("num_conf must be positive or %d, got %d", AutoNumConf, o.NumConf)
	case o.PoolMultiplier < 1:
		return invalidConfig("pool_multiplier must be >= 1, got %d", o.PoolMultiplier)
	case o.MaxIterations < 0:
		return invalidConfig("max_iterations must be >= 0, got %d", o.MaxIterations)
	}
	_, err := forceFieldFor(o.ForceField)
	return err
}

// RotatableBonds counts single, non-ring bonds between two non-terminal heavy atoms.
func RotatableBonds(m *Mol) int {
	n := 0
	for b, bond := range m.bonds {
		if bond.Order != BondSingle || m.IsBondInRing(b) {
			continue
		}
		if m.HeavyDegree(bond.Begin) < 2 || m.HeavyDegree(bond.End) < 2 {
			continue
		}
		if hybridization(m, bond.Begin) == 1 || hybridization(m, bond.End) == 1 {
			continue
		}
		n++
	}
	return n
}

// autoNumConf picks the conformer count from molecular flexibility.
func autoNumConf(m *Mol) int {
	switch r := RotatableBonds(m); {
	case r < 8:
		return 50
	case r < 13:
		return 200
	default:
		return 300
	}
}

// embedConformers generates, minimizes, filters and ranks conformers of m.
//
// HOW IT WORKS:
//
// ═══ STEP 1: Embed ═══
// NumConf·PoolMultiplier candidates start from seeded random coordinates.
//
// ═══ STEP 2: Minimize ═══
// Each candidate is relaxed under the selected force field.
//
// ═══ STEP 3: Select ═══
// Candidates are sorted by energy, cut by the energy window and pruned greedily so
// no two kept conformers are closer than RMSDCutoff. At most NumConf are kept, then
// at most First.
func embedConformers(ctx context.Context, m *Mol, opts ConformerOptions) (*Mol, error) {
	if m.NumAtoms() == 0 {
		return nil, errors.Wrap(ErrEmbedFailed, "molecule has no atoms")
	}
	params, err := forceFieldFor(opts.ForceField)
	if err != nil {
		return nil, err
	}
	numConf := opts.NumConf
	if numConf == AutoNumConf {
		numConf = autoNumConf(m)
	}
	pool := numConf * max(1, opts.PoolMultiplier)
	ff := newForceField(m, params)
	iters := opts.MaxIterations
	if iters == 0 {
		iters = DefaultConformerOptions().MaxIterations
	}

	candidates := make([]Conformer, 0, pool)
	for c := 0; c < pool; c++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		coords := randomCoords(m.NumAtoms(), uint64(opts.RandomState), uint64(c))
		e := ff.minimize(coords, iters)
		if math.IsNaN(e) || math.IsInf(e, 0) {
			continue
		}
		candidates = append(candidates, Conformer{Coords: coords, Energy: e})
	}
	if len(candidates) == 0 {
		return nil, errors.Wrapf(ErrEmbedFailed, "no finite-energy conformer out of %d", pool)
	}

	slices.SortStableFunc(candidates, func(a, b Conformer) int {
		switch {
		case a.Energy < b.Energy:
			return -1
		case a.Energy > b.Energy:
			return 1
		}
		return 0
	})
	if opts.MaxEnergyDiff >= 0 {
		lowest := candidates[0].Energy
		candidates = slices.DeleteFunc(candidates, func(c Conformer) bool { return c.Energy-lowest > opts.MaxEnergyDiff })
	}

	heavy := heavyAtoms(m)
	var kept []Conformer
	for _, c := range candidates {
		if len(kept) == numConf {
			break
		}
		if opts.RMSDCutoff >= 0 && slices.ContainsFunc(kept, func(k Conformer) bool {
			return alignedRMSD(k.Coords, c.Coords, heavy) < opts.RMSDCutoff
		}) {
			continue
		}
		kept = append(kept, c)
	}
	if opts.First > 0 && len(kept) > opts.First {
		kept = kept[:opts.First]
	}

	log.L().Debug("conformers generated",
		zap.Int("atoms", m.NumAtoms()),
		zap.Int("pool", pool),
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(kept)))
	return m.WithConformers(kept), nil
}

// randomCoords places n atoms uniformly in a cube that grows with the molecule.
func randomCoords(n int, seed, stream uint64) [][3]float64 {
	rng := rand.New(rand.NewPCG(seed, stream))
	side := 2.0 * math.Cbrt(float64(n)+1)
	coords := make([][3]float64, n)
	for i := range coords {
		for k := 0; k < 3; k++ {
			coords[i][k] = (rng.Float64() - 0.5) * side
		}
	}
	return coords
}

func heavyAtoms(m *Mol) []int {
	var out []int
	for i, a := range m.atoms {
		if a.Element != 1 {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		for i := range m.atoms {
			out = append(out, i)
		}
	}
	return out
}

// alignedRMSD returns the RMSD over atoms after optimal superposition (Kabsch).
// The minimum is computed from the singular values of the covariance matrix, with
// the smallest one negated when the best rotation would be a reflection.
func alignedRMSD(a, b [][3]float64, atoms []int) float64 {
	n := len(atoms)
	if n == 0 {
		return 0
	}
	ca, cb := centroid(a, atoms), centroid(b, atoms)
	h := mat.NewDense(3, 3, nil)
	sumSq := 0.0
	for _, i := range atoms {
		p, q := sub3(a[i], ca), sub3(b[i], cb)
		sumSq += dot3(p, p) + dot3(q, q)
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+p[r]*q[c])
			}
		}
	}
	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDNone) {
		return math.Inf(1)
	}
	s := svd.Values(nil)
	if mat.Det(h) < 0 {
		s[2] = -s[2]
	}
	msd := (sumSq - 2*(s[0]+s[1]+s[2])) / float64(n)
	return math.Sqrt(math.Max(msd, 0))
}

func centroid(coords [][3]float64, atoms []int) [3]float64 {
	var c [3]float64
	for _, i := range atoms {
		for k := 0; k < 3; k++ {
			c[k] += coords[i][k]
		}
	}
	for k := 0; k < 3; k++ {
		c[k] /= float64(len(atoms))
	}
	return c
}

// ConformerGenerator embeds molecules in 3D. Each output molecule is a copy of its
// input carrying the kept conformers, lowest energy first.
type ConformerGenerator struct {
	FingerprintTransformer `mapstructure:",squash"`
	ConformerOptions       `mapstructure:",squash"`
	// ErrorsToNil replaces molecules that fail to embed by nil instead of failing
	// the whole call.
	ErrorsToNil bool `mapstructure:"errors_to_nil" json:"errors_to_nil"`
}

// NewConformerGenerator validates opts and returns a generator.
func NewConformerGenerator(opts ConformerOptions, exec FingerprintTransformer) (*ConformerGenerator, error) {
	g := &ConformerGenerator{FingerprintTransformer: exec, ConformerOptions: opts}
	if err := g.ConformerOptions.validate(); err != nil {
		return nil, err
	}
	if err := g.validateBase(); err != nil {
		return nil, err
	}
	return g, nil
}

// Transform returns one embedded molecule per input, in input order.
func (g *ConformerGenerator) Transform(ctx context.Context, mols []*Mol) ([]*Mol, error) {
	if err := validateMols(mols); err != nil {
		return nil, err
	}
	opts, toNil := g.ConformerOptions, g.ErrorsToNil
	return dispatch(ctx, g.FingerprintTransformer, "conformer_generator", mols,
		func(ctx context.Context, tk Toolkit, _ int, chunk []*Mol) ([]*Mol, error) {
			out := make([]*Mol, len(chunk))
			for i, m := range chunk {
				embedded, err := tk.EmbedConformers(ctx, m, opts)
				switch {
				case err == nil:
					out[i] = embedded
				case toNil && errors.Is(err, ErrEmbedFailed):
					out[i] = nil
				default:
					return nil, err
				}
			}
			return out, nil
		})
}
