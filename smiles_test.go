package molprint

import (
	"testing"

	"github.com/cockroachdb/errors"
)

// TestParseSmiles tests atom, bond and ring counts of parsed molecules
func TestParseSmiles(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		atoms  int
		bonds  int
		rings  int
	}{
		{name: "ethanol", smiles: "CCO", atoms: 3, bonds: 2, rings: 0},
		{name: "benzene aromatic", smiles: "c1ccccc1", atoms: 6, bonds: 6, rings: 1},
		{name: "benzene kekule", smiles: "C1=CC=CC=C1", atoms: 6, bonds: 6, rings: 1},
		{name: "cyclopropane", smiles: "C1CC1", atoms: 3, bonds: 3, rings: 1},
		{name: "neopentane branches", smiles: "CC(C)(C)C", atoms: 5, bonds: 4, rings: 0},
		{name: "ammonium bracket", smiles: "[NH4+]", atoms: 1, bonds: 0, rings: 0},
		{name: "two fragments", smiles: "C.C", atoms: 2, bonds: 0, rings: 0},
		{name: "naphthalene", smiles: "c1ccc2ccccc2c1", atoms: 10, bonds: 11, rings: 2},
		{name: "percent ring closure", smiles: "C%10CC%10", atoms: 3, bonds: 3, rings: 1},
		{name: "surrounding whitespace", smiles: "  CCO\n", atoms: 3, bonds: 2, rings: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseSmiles(tt.smiles)
			if err != nil {
				t.Fatalf("ParseSmiles(%q) unexpected error: %v", tt.smiles, err)
			}
			if m.NumAtoms() != tt.atoms {
				t.Errorf("NumAtoms() = %d, want %d", m.NumAtoms(), tt.atoms)
			}
			if m.NumBonds() != tt.bonds {
				t.Errorf("NumBonds() = %d, want %d", m.NumBonds(), tt.bonds)
			}
			if m.NumRings() != tt.rings {
				t.Errorf("NumRings() = %d, want %d", m.NumRings(), tt.rings)
			}
		})
	}
}

// TestParseSmilesErrors tests that malformed input is rejected with ErrInvalidSmiles
func TestParseSmilesErrors(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
	}{
		{name: "empty", smiles: ""},
		{name: "blank", smiles: "   "},
		{name: "unclosed branch", smiles: "C(C"},
		{name: "unbalanced paren", smiles: "C)C"},
		{name: "unclosed ring", smiles: "C1CC"},
		{name: "unterminated bracket", smiles: "[CH4"},
		{name: "unknown element", smiles: "[Xx]"},
		{name: "dangling bond", smiles: "CC="},
		{name: "branch before atom", smiles: "(C)C"},
		{name: "aromatic outside ring", smiles: "cc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseSmiles(tt.smiles)
			if err == nil {
				t.Fatalf("ParseSmiles(%q) = %d atoms, want error", tt.smiles, m.NumAtoms())
			}
			if !errors.Is(err, ErrInvalidSmiles) {
				t.Errorf("error %v does not match ErrInvalidSmiles", err)
			}
			var se *SmilesError
			if !errors.As(err, &se) {
				t.Errorf("error %v is not a *SmilesError", err)
			}
		})
	}
}

func TestParseSmilesAromaticOutsideRingIsInvalidMolecule(t *testing.T) {
	_, err := ParseSmiles("cc")
	if !errors.Is(err, ErrInvalidMolecule) {
		t.Errorf("ParseSmiles(cc) error = %v, want ErrInvalidMolecule", err)
	}
}

// TestHydrogens tests implicit and bracket hydrogen counts
func TestHydrogens(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		atom   int
		hs     int
	}{
		{name: "methyl", smiles: "CCO", atom: 0, hs: 3},
		{name: "methylene", smiles: "CCO", atom: 1, hs: 2},
		{name: "hydroxyl", smiles: "CCO", atom: 2, hs: 1},
		{name: "aromatic ch", smiles: "c1ccccc1", atom: 0, hs: 1},
		{name: "ammonium", smiles: "[NH4+]", atom: 0, hs: 4},
		{name: "bracket without h", smiles: "[C]", atom: 0, hs: 0},
		{name: "carbonyl carbon", smiles: "CC=O", atom: 1, hs: 1},
		{name: "explicit h atom", smiles: "[H]C([H])([H])[H]", atom: 1, hs: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustParseSmiles(tt.smiles)
			if got := m.TotalHs(tt.atom); got != tt.hs {
				t.Errorf("TotalHs(%d) = %d, want %d", tt.atom, got, tt.hs)
			}
		})
	}
}

// TestCanonicalSmiles tests that different writings of a molecule share one canonical form
func TestCanonicalSmiles(t *testing.T) {
	tests := []struct {
		name     string
		writings []string
	}{
		{name: "ethanol", writings: []string{"CCO", "OCC", "C(O)C"}},
		{name: "phenol", writings: []string{"Oc1ccccc1", "c1ccccc1O", "C1=CC=C(O)C=C1", "c1cc(O)ccc1"}},
		{name: "aspirin", writings: []string{"CC(=O)Oc1ccccc1C(=O)O", "OC(=O)c1ccccc1OC(C)=O"}},
		{name: "acetate salt", writings: []string{"CC(=O)[O-].[Na+]", "[Na+].[O-]C(C)=O"}},
		{name: "isobutane", writings: []string{"CC(C)C", "C(C)(C)C"}},
		{name: "l-alanine", writings: []string{"N[C@@H](C)C(=O)O", "C[C@H](N)C(=O)O", "OC(=O)[C@H](C)N"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := MustParseSmiles(tt.writings[0]).Smiles()
			for _, s := range tt.writings[1:] {
				if got := MustParseSmiles(s).Smiles(); got != want {
					t.Errorf("canonical(%q) = %q, want %q", s, got, want)
				}
			}
		})
	}
}

func TestCanonicalSmilesDistinguishesEnantiomers(t *testing.T) {
	l := MustParseSmiles("N[C@@H](C)C(=O)O").Smiles()
	d := MustParseSmiles("N[C@H](C)C(=O)O").Smiles()
	if l == d {
		t.Errorf("enantiomers share canonical SMILES %q", l)
	}
}

// TestSmilesRoundTrip tests that canonical SMILES parse back to the same molecule
func TestSmilesRoundTrip(t *testing.T) {
	inputs := []string{
		"CCO",
		"c1ccccc1",
		"CC(=O)Oc1ccccc1C(=O)O",
		"c1ccc2ccccc2c1",
		"C1CC2CCC1C2",
		"[13CH3]C(=O)[O-]",
		"C#N",
		"c1cc[nH]c1",
		"CN1CCC[C@H]1c1cccnc1",
		"O=[N+]([O-])c1ccccc1",
		"CC.O",
	}

	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			m := MustParseSmiles(s)
			first := m.Smiles()
			again, err := ParseSmiles(first)
			if err != nil {
				t.Fatalf("ParseSmiles(%q) unexpected error: %v", first, err)
			}
			if again.NumAtoms() != m.NumAtoms() || again.NumBonds() != m.NumBonds() {
				t.Errorf("round trip changed size: %d/%d atoms, %d/%d bonds",
					again.NumAtoms(), m.NumAtoms(), again.NumBonds(), m.NumBonds())
			}
			if second := again.Smiles(); second != first {
				t.Errorf("canonical SMILES not stable: %q then %q", first, second)
			}
		})
	}
}

func TestMolWithName(t *testing.T) {
	m := MustParseSmiles("CCO")
	named := m.WithName("ethanol").WithProp("source", "test")
	if m.Name() != "" {
		t.Errorf("WithName modified the receiver: %q", m.Name())
	}
	if named.Name() != "ethanol" {
		t.Errorf("Name() = %q, want ethanol", named.Name())
	}
	if v, ok := named.Prop("source"); !ok || v != "test" {
		t.Errorf("Prop(source) = %q, %v", v, ok)
	}
	if _, ok := m.Prop("source"); ok {
		t.Errorf("WithProp modified the receiver")
	}
}

func TestFragments(t *testing.T) {
	m := MustParseSmiles("CC(=O)[O-].[Na+]")
	frags := m.Fragments()
	if len(frags) != 2 {
		t.Fatalf("Fragments() = %d, want 2", len(frags))
	}
	if len(frags[0])+len(frags[1]) != m.NumAtoms() {
		t.Errorf("fragments do not cover all atoms: %v", frags)
	}
}
