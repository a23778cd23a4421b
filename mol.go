package molprint

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
)

// BondOrder is the order of a bond between two atoms.
type BondOrder uint8

const (
	BondSingle BondOrder = iota + 1
	BondDouble
	BondTriple
	BondAromatic
)

// Valence returns the contribution of the bond to an atom's valence.
// Aromatic bonds count 1.5.
func (o BondOrder) Valence() float64 {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondAromatic:
		return 1.5
	default:
		return 1
	}
}

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondAromatic:
		return "aromatic"
	default:
		return fmt.Sprintf("BondOrder(%d)", uint8(o))
	}
}

// ChiralTag records tetrahedral handedness relative to the atom's neighbor order,
// following SMILES conventions: CCW for "@" and CW for "@@".
type ChiralTag uint8

const (
	ChiralNone ChiralTag = iota
	ChiralCCW
	ChiralCW
)

func (c ChiralTag) flip() ChiralTag {
	switch c {
	case ChiralCCW:
		return ChiralCW
	case ChiralCW:
		return ChiralCCW
	default:
		return c
	}
}

// Atom is a single atom of a molecule.
type Atom struct {
	Element  int // atomic number, 0 for a wildcard
	Isotope  int // 0 when unspecified
	Charge   int
	Aromatic bool
	Chiral   ChiralTag
	Class    int

	// NumExplicitHs are hydrogens attached without being graph atoms, as in [NH4+].
	NumExplicitHs int
	// NoImplicit disables implicit hydrogen inference (bracket atoms).
	NoImplicit bool

	implicitHs int
	// chiralOrder is the neighbor order the Chiral tag refers to; -1 marks an implicit hydrogen.
	chiralOrder []int
}

// Bond connects two atoms.
type Bond struct {
	Begin int
	End   int
	Order BondOrder

	inRing bool
}

// Other returns the atom on the far side of the bond from atom i.
func (b Bond) Other(i int) int {
	if b.Begin == i {
		return b.End
	}
	return b.Begin
}

// Conformer holds 3D coordinates (angstroms) for every atom of a molecule and the
// force-field energy of that geometry.
type Conformer struct {
	Coords [][3]float64
	Energy float64
}

type adjEntry struct {
	atom int
	bond int
}

// Mol is an immutable molecular graph. Once built, a Mol is safe for concurrent
// reads; operations that "modify" a molecule return a new one.
type Mol struct {
	atoms      []Atom
	bonds      []Bond
	adj        [][]adjEntry
	rings      ringInfo
	conformers []Conformer
	name       string
	props      map[string]string
}

// NumAtoms returns the number of graph atoms (implicit hydrogens are not counted).
func (m *Mol) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the number of bonds.
func (m *Mol) NumBonds() int { return len(m.bonds) }

// Atom returns a copy of atom i.
func (m *Mol) Atom(i int) Atom { return m.atoms[i] }

// Bond returns a copy of bond b.
func (m *Mol) Bond(b int) Bond { return m.bonds[b] }

// Name returns the molecule title, usually taken from the input file.
func (m *Mol) Name() string { return m.name }

// Prop returns a string property and whether it is set.
func (m *Mol) Prop(key string) (string, bool) {
	v, ok := m.props[key]
	return v, ok
}

// Neighbors returns the indices of the atoms bonded to atom i.
func (m *Mol) Neighbors(i int) []int {
	out := make([]int, len(m.adj[i]))
	for k, e := range m.adj[i] {
		out[k] = e.atom
	}
	return out
}

// BondBetween returns the index of the bond joining atoms i and j.
func (m *Mol) BondBetween(i, j int) (int, bool) {
	for _, e := range m.adj[i] {
		if e.atom == j {
			return e.bond, true
		}
	}
	return -1, false
}

// Degree returns the number of explicit graph connections of atom i.
func (m *Mol) Degree(i int) int { return len(m.adj[i]) }

// HeavyDegree returns the number of non-hydrogen neighbors of atom i.
func (m *Mol) HeavyDegree(i int) int {
	n := 0
	for _, e := range m.adj[i] {
		if m.atoms[e.atom].Element != 1 {
			n++
		}
	}
	return n
}

// ImplicitHs returns the inferred hydrogens of atom i.
func (m *Mol) ImplicitHs(i int) int { return m.atoms[i].implicitHs }

// TotalHs returns all hydrogens on atom i: explicit, implicit and hydrogen graph atoms.
func (m *Mol) TotalHs(i int) int {
	a := m.atoms[i]
	n := a.NumExplicitHs + a.implicitHs
	for _, e := range m.adj[i] {
		if m.atoms[e.atom].Element == 1 {
			n++
		}
	}
	return n
}

// Valence returns the total valence of atom i, counting aromatic bonds as 1.5
// and rounding to the nearest integer.
func (m *Mol) Valence(i int) int {
	v := 0.0
	for _, e := range m.adj[i] {
		v += m.bonds[e.bond].Order.Valence()
	}
	return int(v+0.5) + m.atoms[i].NumExplicitHs + m.atoms[i].implicitHs
}

// PiElectrons returns the number of pi electrons atom i contributes through its bonds.
func (m *Mol) PiElectrons(i int) int {
	pi := 0
	aromatic := false
	for _, e := range m.adj[i] {
		switch m.bonds[e.bond].Order {
		case BondDouble:
			pi++
		case BondTriple:
			pi += 2
		case BondAromatic:
			aromatic = true
		}
	}
	if aromatic && pi == 0 {
		pi = 1
	}
	return pi
}

// Conformers returns the 3D conformers attached to the molecule.
func (m *Mol) Conformers() []Conformer { return m.conformers }

// NumConformers returns the number of attached conformers.
func (m *Mol) NumConformers() int { return len(m.conformers) }

// Clone returns a deep copy of the molecule.
func (m *Mol) Clone() *Mol {
	c := &Mol{
		atoms: make([]Atom, len(m.atoms)),
		bonds: make([]Bond, len(m.bonds)),
		adj:   make([][]adjEntry, len(m.adj)),
		rings: m.rings.clone(),
		name:  m.name,
	}
	copy(c.atoms, m.atoms)
	for i := range c.atoms {
		if m.atoms[i].chiralOrder != nil {
			c.atoms[i].chiralOrder = append([]int(nil), m.atoms[i].chiralOrder...)
		}
	}
	copy(c.bonds, m.bonds)
	for i := range m.adj {
		c.adj[i] = append([]adjEntry(nil), m.adj[i]...)
	}
	if len(m.conformers) > 0 {
		c.conformers = make([]Conformer, len(m.conformers))
		for i, conf := range m.conformers {
			c.conformers[i] = Conformer{Coords: append([][3]float64(nil), conf.Coords...), Energy: conf.Energy}
		}
	}
	if m.props != nil {
		c.props = make(map[string]string, len(m.props))
		for k, v := range m.props {
			c.props[k] = v
		}
	}
	return c
}

// WithName returns a copy of the molecule carrying a new title.
func (m *Mol) WithName(name string) *Mol {
	c := m.Clone()
	c.name = name
	return c
}

// WithProp returns a copy of the molecule with a string property set.
func (m *Mol) WithProp(key, value string) *Mol {
	c := m.Clone()
	if c.props == nil {
		c.props = make(map[string]string)
	}
	c.props[key] = value
	return c
}

// WithConformers returns a copy of the molecule with its conformers replaced.
func (m *Mol) WithConformers(confs []Conformer) *Mol {
	c := m.Clone()
	c.conformers = confs
	return c
}

// Fragments returns the connected components of the molecule as sorted atom index lists.
func (m *Mol) Fragments() [][]int {
	seen := make([]bool, len(m.atoms))
	var frags [][]int
	for start := range m.atoms {
		if seen[start] {
			continue
		}
		frag := []int{}
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			frag = append(frag, cur)
			for _, e := range m.adj[cur] {
				if !seen[e.atom] {
					seen[e.atom] = true
					queue = append(queue, e.atom)
				}
			}
		}
		slices.Sort(frag)
		frags = append(frags, frag)
	}
	return frags
}

// TopologicalDistances returns the all-pairs shortest path lengths in bonds.
// Unreachable pairs hold -1.
func (m *Mol) TopologicalDistances() [][]int {
	n := len(m.atoms)
	dist := make([][]int, n)
	queue := make([]int, 0, n)
	for s := 0; s < n; s++ {
		row := make([]int, n)
		for i := range row {
			row[i] = -1
		}
		row[s] = 0
		queue = append(queue[:0], s)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, e := range m.adj[cur] {
				if row[e.atom] < 0 {
					row[e.atom] = row[cur] + 1
					queue = append(queue, e.atom)
				}
			}
		}
		dist[s] = row
	}
	return dist
}

// MolBuilder assembles a molecule atom by atom.
//
// Example:
//
//	b := NewMolBuilder()
//	c := b.AddAtom(Atom{Element: 6})
//	o := b.AddAtom(Atom{Element: 8})
//	b.AddBond(c, o, BondDouble)
//	mol, err := b.Build()
type MolBuilder struct {
	mol *Mol
	err error
}

// NewMolBuilder returns an empty builder.
func NewMolBuilder() *MolBuilder {
	return &MolBuilder{mol: &Mol{}}
}

// AddAtom appends an atom and returns its index.
func (b *MolBuilder) AddAtom(a Atom) int {
	b.mol.atoms = append(b.mol.atoms, a)
	b.mol.adj = append(b.mol.adj, nil)
	return len(b.mol.atoms) - 1
}

// AddBond joins atoms i and j and returns the bond index.
func (b *MolBuilder) AddBond(i, j int, order BondOrder) int {
	n := len(b.mol.atoms)
	switch {
	case b.err != nil:
		return -1
	case i < 0 || j < 0 || i >= n || j >= n:
		b.err = errors.Wrapf(ErrInvalidMolecule, "bond %d-%d references a missing atom", i, j)
		return -1
	case i == j:
		b.err = errors.Wrapf(ErrInvalidMolecule, "atom %d bonded to itself", i)
		return -1
	}
	if _, ok := b.mol.BondBetween(i, j); ok {
		b.err = errors.Wrapf(ErrInvalidMolecule, "duplicate bond %d-%d", i, j)
		return -1
	}
	return b.mol.addBond(i, j, order)
}

// SetName sets the molecule title.
func (b *MolBuilder) SetName(name string) { b.mol.name = name }

// Build perceives hydrogens, rings and aromaticity and returns the molecule.
func (b *MolBuilder) Build() (*Mol, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.mol.finalize(); err != nil {
		return nil, err
	}
	return b.mol, nil
}

func (m *Mol) addBond(i, j int, order BondOrder) int {
	idx := len(m.bonds)
	m.bonds = append(m.bonds, Bond{Begin: i, End: j, Order: order})
	m.adj[i] = append(m.adj[i], adjEntry{atom: j, bond: idx})
	m.adj[j] = append(m.adj[j], adjEntry{atom: i, bond: idx})
	return idx
}

// finalize infers implicit hydrogens from the Kekulé bond orders and then perceives
// rings and aromaticity. It must run once before the molecule is shared.
func (m *Mol) finalize() error {
	for i := range m.atoms {
		m.atoms[i].implicitHs = m.inferImplicitHs(i)
	}
	m.perceiveRings()
	m.perceiveAromaticity()
	for i, a := range m.atoms {
		if a.Aromatic && !m.rings.atomInRing(i) {
			return errors.Wrapf(ErrInvalidMolecule, "non-ring atom %d marked aromatic", i)
		}
	}
	return nil
}

// inferImplicitHs applies the default-valence model used for organic subset atoms.
func (m *Mol) inferImplicitHs(i int) int {
	return m.valenceHs(i, m.atoms[i])
}

// organicHs returns the hydrogens atom i would receive if written without brackets.
func (m *Mol) organicHs(i int) int {
	a := m.atoms[i]
	a.NoImplicit = false
	a.NumExplicitHs = 0
	a.Charge = 0
	return m.valenceHs(i, a)
}

func (m *Mol) valenceHs(i int, a Atom) int {
	if a.NoImplicit {
		return 0
	}
	vals, ok := defaultValences[a.Element]
	if !ok {
		return 0
	}
	used := 0
	aromaticBonds := 0
	for _, e := range m.adj[i] {
		switch m.bonds[e.bond].Order {
		case BondAromatic:
			used++
			aromaticBonds++
		case BondDouble:
			used += 2
		case BondTriple:
			used += 3
		default:
			used++
		}
	}
	if a.Aromatic && aromaticBonds > 0 {
		switch a.Element {
		case 5, 6:
			used++
		case 7, 15:
			if used == 2 {
				used++
			}
		}
	}
	used += a.NumExplicitHs
	used += absInt(a.Charge) * chargeValenceSign(a.Element, a.Charge)
	for _, v := range vals {
		if v >= used {
			return v - used
		}
	}
	return 0
}

// chargeValenceSign tells whether a charge consumes (+1) or frees (-1) valence.
// Positive nitrogen and oxygen gain a bond (NH4+, H3O+); carbon loses one either way.
func chargeValenceSign(element, charge int) int {
	switch element {
	case 7, 8, 15, 16:
		if charge > 0 {
			return -1
		}
		return 1
	default:
		return 1
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
