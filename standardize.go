package molprint

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// StandardizeOptions selects the standardization steps.
type StandardizeOptions struct {
	// LargestFragment keeps only the fragment with the most heavy atoms.
	LargestFragment bool `mapstructure:"largest_fragment" json:"largest_fragment"`
	// Neutralize removes charges that can be balanced by adding or removing hydrogens.
	Neutralize bool `mapstructure:"neutralize" json:"neutralize"`
	// ClearIsotopes drops isotope labels.
	ClearIsotopes bool `mapstructure:"clear_isotopes" json:"clear_isotopes"`
	// RemoveHs folds hydrogen graph atoms into their neighbors.
	RemoveHs bool `mapstructure:"remove_hs" json:"remove_hs"`
}

// DefaultStandardizeOptions returns the parent-molecule standardization.
func DefaultStandardizeOptions() StandardizeOptions {
	return StandardizeOptions{LargestFragment: true, Neutralize: true, RemoveHs: true}
}

// standardize returns the standardized parent of m. Hydrogen counts are frozen on
// every atom first so that re-perception cannot change them.
func standardize(m *Mol, opts StandardizeOptions) (*Mol, error) {
	if m.NumAtoms() == 0 {
		return m.Clone(), nil
	}
	atoms := make([]Atom, m.NumAtoms())
	for i, a := range m.atoms {
		a.NumExplicitHs += a.implicitHs
		a.implicitHs = 0
		a.NoImplicit = true
		a.chiralOrder = slices.Clone(m.chiralNeighbors(i))
		atoms[i] = a
	}

	keep := make([]bool, len(atoms))
	if opts.LargestFragment {
		for _, a := range largestFragment(m) {
			keep[a] = true
		}
	} else {
		for i := range keep {
			keep[i] = true
		}
	}

	if opts.RemoveHs {
		for i, a := range m.atoms {
			if !keep[i] || a.Element != 1 || a.Isotope != 0 || a.Charge != 0 || len(m.adj[i]) != 1 {
				continue
			}
			heavy := m.adj[i][0].atom
			if m.atoms[heavy].Element == 1 {
				continue
			}
			keep[i] = false
			atoms[heavy].NumExplicitHs++
			if k := slices.Index(atoms[heavy].chiralOrder, i); k >= 0 {
				atoms[heavy].chiralOrder[k] = -1
			}
		}
	}

	if opts.Neutralize {
		neutralize(atoms, keep)
	}
	if opts.ClearIsotopes {
		for i := range atoms {
			atoms[i].Isotope = 0
		}
	}
	return m.rebuild(atoms, keep)
}

// largestFragment returns the fragment with the most heavy atoms; ties go to the
// fragment with more atoms, then to the first one.
func largestFragment(m *Mol) []int {
	frags := m.Fragments()
	heavyCount := func(f []int) int {
		n := 0
		for _, a := range f {
			if m.atoms[a].Element != 1 {
				n++
			}
		}
		return n
	}
	best := frags[0]
	for _, f := range frags[1:] {
		hb, hf := heavyCount(best), heavyCount(f)
		if hf > hb || (hf == hb && len(f) > len(best)) {
			best = f
		}
	}
	return best
}

// neutralize removes protonated cationic charges and then neutralizes anions by
// protonation, leaving as many anions as are needed to balance cations that carry
// no hydrogen (as in nitro groups or quaternary ammonium).
func neutralize(atoms []Atom, keep []bool) {
	fixedPositive := 0
	for i := range atoms {
		a := &atoms[i]
		if !keep[i] || a.Charge <= 0 {
			continue
		}
		switch a.Element {
		case 7, 8, 15, 16:
			for a.Charge > 0 && a.NumExplicitHs > 0 {
				a.Charge--
				a.NumExplicitHs--
			}
		}
		fixedPositive += a.Charge
	}
	for i := range atoms {
		a := &atoms[i]
		if !keep[i] || a.Charge >= 0 {
			continue
		}
		switch a.Element {
		case 6, 7, 8, 16:
		default:
			continue
		}
		balanced := min(-a.Charge, fixedPositive)
		fixedPositive -= balanced
		for a.Charge < -balanced {
			a.Charge++
			a.NumExplicitHs++
		}
	}
}

// rebuild returns a new molecule made of the kept atoms and the bonds between them.
func (m *Mol) rebuild(atoms []Atom, keep []bool) (*Mol, error) {
	remap := make([]int, len(atoms))
	out := &Mol{name: m.name}
	for i, a := range atoms {
		remap[i] = -1
		if !keep[i] {
			continue
		}
		remap[i] = len(out.atoms)
		out.atoms = append(out.atoms, a)
		out.adj = append(out.adj, nil)
	}
	for _, b := range m.bonds {
		if remap[b.Begin] >= 0 && remap[b.End] >= 0 {
			out.addBond(remap[b.Begin], remap[b.End], b.Order)
		}
	}
	for i := range out.atoms {
		order := out.atoms[i].chiralOrder
		if len(order) == 0 {
			continue
		}
		mapped := make([]int, 0, len(order))
		for _, j := range order {
			switch {
			case j < 0:
				mapped = append(mapped, -1)
			case remap[j] >= 0:
				mapped = append(mapped, remap[j])
			}
		}
		out.atoms[i].chiralOrder = mapped
	}
	if m.props != nil {
		out.props = make(map[string]string, len(m.props))
		for k, v := range m.props {
			out.props[k] = v
		}
	}
	if err := out.finalize(); err != nil {
		return nil, errors.Wrap(err, "standardize")
	}
	return out, nil
}
