package molprint

import (
	"context"
	"slices"
)

// ERG property types. Atom properties come from ergFeatures; ring nodes are
// aromatic or hydrophobic.
const (
	ergDonor = iota
	ergAcceptor
	ergPositive
	ergNegative
	ergHydrophobicRing
	ergAromaticRing
	ergNumTypes
)

// ergNumPairs is the number of unordered property type pairs.
const ergNumPairs = ergNumTypes * (ergNumTypes + 1) / 2

// ERGOptions configures the extended reduced graph fingerprint.
type ERGOptions struct {
	// AtomTypes selects the property typing scheme. Only 0, the built-in scheme, is defined.
	AtomTypes int `mapstructure:"atom_types" json:"atom_types"`
	// FuzzIncrement is added to the bins next to each observed distance.
	FuzzIncrement float64 `mapstructure:"fuzz_increment" json:"fuzz_increment"`
	MinPath       int     `mapstructure:"min_path" json:"min_path"`
	MaxPath       int     `mapstructure:"max_path" json:"max_path"`
}

// DefaultERGOptions returns the usual ERG settings, 315 positions wide.
func DefaultERGOptions() ERGOptions {
	return ERGOptions{FuzzIncrement: 0.3, MinPath: 1, MaxPath: 15}
}

func (o ERGOptions) validate() error {
	switch {
	case o.AtomTypes != 0:
		return invalidConfig("atom_types %d is not a defined typing scheme", o.AtomTypes)
	case o.FuzzIncrement < 0:
		return invalidConfig("fuzz_increment must be >= 0, got %g", o.FuzzIncrement)
	case o.MinPath < 1 || o.MaxPath < o.MinPath:
		return invalidConfig("need 1 <= min_path <= max_path, got %d and %d", o.MinPath, o.MaxPath)
	}
	return nil
}

func (o ERGOptions) bins() int { return o.MaxPath - o.MinPath + 1 }

// width is 21 property pairs times the number of distance bins.
func (o ERGOptions) width() int { return ergNumPairs * o.bins() }

// ERGFingerprint computes the extended reduced graph (ErG) fingerprint. Rings are
// collapsed into single nodes and the molecule is described by the topological
// distances between pharmacophoric property points.
type ERGFingerprint struct {
	FingerprintTransformer `mapstructure:",squash"`
	ERGOptions             `mapstructure:",squash"`
}

// NewERGFingerprint validates opts and returns a featurizer.
func NewERGFingerprint(opts ERGOptions, exec FingerprintTransformer) (*ERGFingerprint, error) {
	f := &ERGFingerprint{FingerprintTransformer: exec, ERGOptions: opts}
	if err := f.ERGOptions.validate(); err != nil {
		return nil, err
	}
	if err := f.validateBase(); err != nil {
		return nil, err
	}
	return f, nil
}

// Width returns 21·(MaxPath−MinPath+1).
func (f *ERGFingerprint) Width() int { return f.width() }

// Transform computes one float vector per molecule.
func (f *ERGFingerprint) Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	opts := f.ERGOptions
	return transformMols(ctx, f.FingerprintTransformer, "erg", mols,
		func(_ context.Context, tk Toolkit, _ int, m *Mol) (Fingerprint, error) {
			return tk.ERG(m, opts)
		})
}

// FitTransform validates mols and transforms them.
func (f *ERGFingerprint) FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := f.Fit(ctx, mols); err != nil {
		return nil, err
	}
	return f.Transform(ctx, mols)
}

// reducedGraph is the ErG abstraction of a molecule.
type reducedGraph struct {
	props [][]int // property types of each node
	adj   [][]int
}

func (g *reducedGraph) addNode(props []int) int {
	g.props = append(g.props, props)
	g.adj = append(g.adj, nil)
	return len(g.props) - 1
}

func (g *reducedGraph) link(a, b int) {
	if a == b || slices.Contains(g.adj[a], b) {
		return
	}
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
}

// buildReducedGraph keeps non-ring atoms and feature-bearing ring atoms as nodes and
// replaces each ring by one node linked to everything its atoms were bonded to.
func buildReducedGraph(m *Mol) *reducedGraph {
	masks := featureMasks(m, ergFeatures)
	g := &reducedGraph{}
	atomNode := make([]int, m.NumAtoms())
	for i := range atomNode {
		atomNode[i] = -1
		if m.IsAtomInRing(i) && masks[i] == 0 {
			continue
		}
		var props []int
		for t := ergDonor; t <= ergNegative; t++ {
			if masks[i]&(1<<t) != 0 {
				props = append(props, t)
			}
		}
		atomNode[i] = g.addNode(props)
	}
	for _, b := range m.bonds {
		if atomNode[b.Begin] >= 0 && atomNode[b.End] >= 0 {
			g.link(atomNode[b.Begin], atomNode[b.End])
		}
	}

	ringNodes := make([]int, len(m.rings.atomRings))
	for r, ring := range m.rings.atomRings {
		typ := ergAromaticRing
		for _, a := range ring {
			if !m.atoms[a].Aromatic {
				typ = ergHydrophobicRing
				break
			}
		}
		node := g.addNode([]int{typ})
		ringNodes[r] = node
		for _, a := range ring {
			if atomNode[a] >= 0 {
				g.link(node, atomNode[a])
			}
			for _, e := range m.adj[a] {
				if atomNode[e.atom] >= 0 && !m.IsAtomInRing(e.atom) {
					g.link(node, atomNode[e.atom])
				}
			}
		}
	}
	for r1, ring1 := range m.rings.atomRings {
		for r2 := r1 + 1; r2 < len(m.rings.atomRings); r2++ {
			if ringsTouch(m, ring1, m.rings.atomRings[r2]) {
				g.link(ringNodes[r1], ringNodes[r2])
			}
		}
	}
	return g
}

// ringsTouch reports whether two rings share an atom or are joined by a bond.
func ringsTouch(m *Mol, a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
			if _, ok := m.BondBetween(x, y); ok {
				return true
			}
		}
	}
	return false
}

func (g *reducedGraph) distances() [][]int {
	n := len(g.props)
	dist := make([][]int, n)
	for s := range dist {
		row := make([]int, n)
		for i := range row {
			row[i] = -1
		}
		row[s] = 0
		queue := []int{s}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range g.adj[cur] {
				if row[nb] < 0 {
					row[nb] = row[cur] + 1
					queue = append(queue, nb)
				}
			}
		}
		dist[s] = row
	}
	return dist
}

// ergPairIndex maps an unordered type pair to 0..20.
func ergPairIndex(p, q int) int {
	if p > q {
		p, q = q, p
	}
	return p*ergNumTypes - p*(p-1)/2 + (q - p)
}

func ergFingerprint(m *Mol, opts ERGOptions) *FloatVect {
	v := NewFloatVect(opts.width())
	g := buildReducedGraph(m)
	dist := g.distances()
	bins := opts.bins()
	add := func(pair, d int, w float64) {
		if d < opts.MinPath || d > opts.MaxPath {
			return
		}
		v.Values[pair*bins+d-opts.MinPath] += w
	}
	for i := range g.props {
		for j := i + 1; j < len(g.props); j++ {
			d := dist[i][j]
			if d < 0 {
				continue
			}
			for _, p := range g.props[i] {
				for _, q := range g.props[j] {
					pair := ergPairIndex(p, q)
					add(pair, d, 1)
					add(pair, d-1, opts.FuzzIncrement)
					add(pair, d+1, opts.FuzzIncrement)
				}
			}
		}
	}
	return v
}
