package molprint

import (
	"context"
	"fmt"
)

// MACCSWidth is the number of MACCS structural keys.
const MACCSWidth = 166

// maccsKey is one structural key. The key is on when the pattern matches more than
// threshold times, counting embeddings over distinct atom sets.
type maccsKey struct {
	pattern   *Pattern
	threshold int
	special   func(m *Mol) bool
}

// maccsSmarts lists keys 1 to 166 in order. An empty pattern marks a key computed
// by a function in maccsSpecial.
var maccsSmarts = [MACCSWidth]struct {
	smarts    string
	threshold int
	name      string
}{
	{"", 0, "isotope"},
	{"", 0, "atomic number >= 104"},
	{"[#32,#33,#34,#50,#51,#52,#82,#83,#84]", 0, "group IVa-VIa rows 4-6"},
	{"[Ac,Th,Pa,U,Np,Pu,Am,Cm,Bk,Cf,Es,Fm,Md,No,Lr]", 0, "actinide"},
	{"[Sc,Ti,Y,Zr,Hf]", 0, "group IIIB, IVB"},
	{"[La,Ce,Pr,Nd,Pm,Sm,Eu,Gd,Tb,Dy,Ho,Er,Tm,Yb,Lu]", 0, "lanthanide"},
	{"[V,Cr,Mn,Nb,Mo,Tc,Ta,W,Re]", 0, "group VB-VIIB"},
	{"[!#6;!#1]1~*~*~*~1", 0, "QAAA@1"},
	{"[Fe,Co,Ni,Ru,Rh,Pd,Os,Ir,Pt]", 0, "group VIII"},
	{"[Be,Mg,Ca,Sr,Ba,Ra]", 0, "group IIa"},
	{"*1~*~*~*~1", 0, "4M ring"},
	{"[Cu,Zn,Ag,Cd,Au,Hg]", 0, "group IB, IIB"},
	{"[#8]~[#7](~[#6])~[#6]", 0, "ON(C)C"},
	{"[#16]-[#16]", 0, "S-S"},
	{"[#8]~[#6](~[#8])~[#8]", 0, "OC(O)O"},
	{"[!#6;!#1]1~*~*~1", 0, "QAA@1"},
	{"[#6]#[#6]", 0, "CTC"},
	{"[#5,#13,#31,#49,#81]", 0, "group IIIA"},
	{"*1~*~*~*~*~*~*~1", 0, "7M ring"},
	{"[#14]", 0, "Si"},
	{"[#6]=[#6](~[!#6;!#1])~[!#6;!#1]", 0, "C=C(Q)Q"},
	{"*1~*~*~1", 0, "3M ring"},
	{"[#7]~[#6](~[#8])~[#8]", 0, "NC(O)O"},
	{"[#7]-[#8]", 0, "N-O"},
	{"[#7]~[#6](~[#7])~[#7]", 0, "NC(N)N"},
	{"[#6]=;@[#6](@*)@*", 0, "C$=C($A)$A"},
	{"[I]", 0, "I"},
	{"[!#6;!#1]~[CH2]~[!#6;!#1]", 0, "QCH2Q"},
	{"[#15]", 0, "P"},
	{"[#6]~[!#6;!#1](~[#6])(~[#6])~*", 0, "CQ(C)(C)A"},
	{"[!#6;!#1]~[F,Cl,Br,I]", 0, "QX"},
	{"[#6]~[#16]~[#7]", 0, "CSN"},
	{"[#7]~[#16]", 0, "NS"},
	{"[CH2]=*", 0, "CH2=A"},
	{"[Li,Na,K,Rb,Cs,Fr]", 0, "group IA"},
	{"[#16;R]", 0, "S heterocycle"},
	{"[#7]~[#6](~[#8])~[#7]", 0, "NC(O)N"},
	{"[#7]~[#6](~[#6])~[#7]", 0, "NC(C)N"},
	{"[#8]~[#16](~[#8])~[#8]", 0, "OS(O)O"},
	{"[#16]-[#8]", 0, "S-O"},
	{"[#6]#[#7]", 0, "CTN"},
	{"F", 0, "F"},
	{"[!#6;!#1;!H0]~*~[!#6;!#1;!H0]", 0, "QHAQH"},
	{"[!#1;!#6;!#7;!#8;!#9;!#14;!#15;!#16;!#17;!#35;!#53]", 0, "other"},
	{"[#6]=[#6]~[#7]", 0, "C=CN"},
	{"Br", 0, "Br"},
	{"[#16]~*~[#7]", 0, "SAN"},
	{"[#8]~[!#6;!#1](~[#8])(~[#8])", 0, "OQ(O)O"},
	{"[!+0]", 0, "charge"},
	{"[#6]=[#6](~[#6])~[#6]", 0, "C=C(C)C"},
	{"[#6]~[#16]~[#8]", 0, "CSO"},
	{"[#7]~[#7]", 0, "NN"},
	{"[!#6;!#1;!H0]~*~*~*~[!#6;!#1;!H0]", 0, "QHAAAQH"},
	{"[!#6;!#1;!H0]~*~*~[!#6;!#1;!H0]", 0, "QHAAQH"},
	{"[#8]~[#16]~[#8]", 0, "OSO"},
	{"[#8]~[#7](~[#8])~[#6]", 0, "ON(O)C"},
	{"[#8;R]", 0, "O heterocycle"},
	{"[!#6;!#1]~[#16]~[!#6;!#1]", 0, "QSQ"},
	{"[#16]!:*:*", 0, "Snot%A%A"},
	{"[#16]=[#8]", 0, "S=O"},
	{"*~[#16](~*)~*", 0, "AS(A)A"},
	{"*@*!@*@*", 0, "A$!A$A"},
	{"[#7]=[#8]", 0, "N=O"},
	{"*@*!@[#16]", 0, "A$A!S"},
	{"c:n", 0, "C%N"},
	{"[#6]~[#6](~[#6])(~[#6])~*", 0, "CC(C)(C)A"},
	{"[!#6;!#1]~[#16]", 0, "QS"},
	{"[!#6;!#1;!H0]~[!#6;!#1;!H0]", 0, "QHQH"},
	{"[!#6;!#1]~[!#6;!#1;!H0]", 0, "QQH"},
	{"[!#6;!#1]~[#7]~[!#6;!#1]", 0, "QNQ"},
	{"[#7]~[#8]", 0, "NO"},
	{"[#8]~*~*~[#8]", 0, "OAAO"},
	{"[#16]=*", 0, "S=A"},
	{"[CH3]~*~[CH3]", 0, "CH3ACH3"},
	{"*!@[#7]@*", 0, "A!N$A"},
	{"[#6]=[#6](~*)~*", 0, "C=C(A)A"},
	{"[#7]~*~[#7]", 0, "NAN"},
	{"[#6]=[#7]", 0, "C=N"},
	{"[#7]~*~*~[#7]", 0, "NAAN"},
	{"[#7]~*~*~*~[#7]", 0, "NAAAN"},
	{"[#16]~*(~*)~*", 0, "SA(A)A"},
	{"*~[CH2]~[!#6;!#1;!H0]", 0, "ACH2QH"},
	{"[!#6;!#1]1~*~*~*~*~1", 0, "QAAAA@1"},
	{"[NH2]", 0, "NH2"},
	{"[#6]~[#7](~[#6])~[#6]", 0, "CN(C)C"},
	{"[C;H2,H3][!#6;!#1][C;H2,H3]", 0, "CH2QCH2"},
	{"[F,Cl,Br,I]!@*@*", 0, "X!A$A"},
	{"[#16]", 0, "S"},
	{"[#8]~*~*~*~[#8]", 0, "OAAAO"},
	{"[!#6;!#1;!H0]~*~*~[CH2]~*", 0, "QHAACH2A"},
	{"[!#6;!#1;!H0]~*~*~*~[CH2]~*", 0, "QHAAACH2A"},
	{"[#8]~[#6](~[#7])~[#6]", 0, "OC(N)C"},
	{"[!#6;!#1]~[CH3]", 0, "QCH3"},
	{"[!#6;!#1]~[#7]", 0, "QN"},
	{"[#7]~*~*~[#8]", 0, "NAAO"},
	{"*1~*~*~*~*~1", 0, "5M ring"},
	{"[#7]~*~*~*~[#8]", 0, "NAAAO"},
	{"[!#6;!#1]1~*~*~*~*~*~1", 0, "QAAAAA@1"},
	{"[#6]=[#6]", 0, "C=C"},
	{"*~[CH2]~[#7]", 0, "ACH2N"},
	{"", 0, "8M ring or larger"},
	{"[!#6;!#1]~[#8]", 0, "QO"},
	{"Cl", 0, "Cl"},
	{"[!#6;!#1;!H0]~*~[CH2]~*", 0, "QHACH2A"},
	{"*@*(@*)@*", 0, "A$A($A)$A"},
	{"[!#6;!#1]~*(~[!#6;!#1])~[!#6;!#1]", 0, "QA(Q)Q"},
	{"[F,Cl,Br,I]~*(~*)~*", 0, "XA(A)A"},
	{"[CH3]~*~*~*~[CH2]~*", 0, "CH3AAACH2A"},
	{"*~[CH2]~[#8]", 0, "ACH2O"},
	{"[#7]~[#6]~[#8]", 0, "NCO"},
	{"[#7]~*~[CH2]~*", 0, "NACH2A"},
	{"*~*(~*)(~*)~*", 0, "AA(A)(A)A"},
	{"[#8]!:*:*", 0, "Onot%A%A"},
	{"[CH3]~[CH2]~*", 0, "CH3CH2A"},
	{"[CH3]~*~[CH2]~*", 0, "CH3ACH2A"},
	{"[CH3]~*~*~[CH2]~*", 0, "CH3AACH2A"},
	{"[#7]~*~[#8]", 0, "NAO"},
	{"*~[CH2]~[CH2]~*", 1, "ACH2CH2A > 1"},
	{"[#7]=*", 0, "N=A"},
	{"[!#6;R]", 1, "heterocyclic atom > 1"},
	{"[#7;R]", 0, "N heterocycle"},
	{"*~[#7](~*)~*", 0, "AN(A)A"},
	{"[#8]~[#6]~[#8]", 0, "OCO"},
	{"[!#6;!#1]~[!#6;!#1]", 0, "QQ"},
	{"", 0, "aromatic ring > 1"},
	{"*!@[#8]!@*", 0, "A!O!A"},
	{"*@*!@[#8]", 1, "A$A!O > 1"},
	{"*~[CH2]~*~*~*~[CH2]~*", 0, "ACH2AAACH2A"},
	{"*~[CH2]~*~*~[CH2]~*", 0, "ACH2AACH2A"},
	{"[!#6;!#1]~[!#6;!#1]", 1, "QQ > 1"},
	{"[!#6;!#1;!H0]", 1, "QH > 1"},
	{"[#8]~*~[CH2]~*", 0, "OACH2A"},
	{"*@*!@[#7]", 0, "A$A!N"},
	{"[F,Cl,Br,I]", 0, "X"},
	{"[#7]!:*:*", 0, "Nnot%A%A"},
	{"[#8]=*", 1, "O=A > 1"},
	{"[!C;!c;R]", 0, "heterocycle"},
	{"[!#6;!#1]~[CH2]~*", 1, "QCH2A > 1"},
	{"[O;!H0]", 0, "OH"},
	{"[#8]", 3, "O > 3"},
	{"[CH3]", 2, "CH3 > 2"},
	{"[#7]", 1, "N > 1"},
	{"*@*!@[#8]", 0, "A$A!O"},
	{"*!:*:*!:*", 0, "Anot%A%Anot%A"},
	{"*1~*~*~*~*~*~1", 1, "6M ring > 1"},
	{"[#8]", 2, "O > 2"},
	{"*~[CH2]~[CH2]~*", 0, "ACH2CH2A"},
	{"*~[!#6;!#1](~*)~*", 0, "AQ(A)A"},
	{"[C;H3,H4]", 1, "CH3 > 1"},
	{"*!@*@*!@*", 0, "A!A$A!A"},
	{"[#7;!H0]", 0, "NH"},
	{"[#8]~[#6](~[#6])~[#6]", 0, "OC(C)C"},
	{"[!#6;!#1]~[CH2]~*", 0, "QCH2A"},
	{"[#6]=[#8]", 0, "C=O"},
	{"*!@[CH2]!@*", 0, "A!CH2!A"},
	{"[#7]~*(~*)~*", 0, "NA(A)A"},
	{"[#6]-[#8]", 0, "C-O"},
	{"[#6]-[#7]", 0, "C-N"},
	{"[#8]", 1, "O > 1"},
	{"[C;H3,H4]", 0, "CH3"},
	{"[#7]", 0, "N"},
	{"a", 0, "aromatic"},
	{"*1~*~*~*~*~*~1", 0, "6M ring"},
	{"[#8]", 0, "O"},
	{"[R]", 0, "ring"},
	{"", 0, "fragments"},
}

var maccsSpecial = map[int]func(m *Mol) bool{
	1: func(m *Mol) bool {
		for _, a := range m.atoms {
			if a.Isotope > 0 {
				return true
			}
		}
		return false
	},
	2: func(m *Mol) bool {
		for _, a := range m.atoms {
			if a.Element >= 104 {
				return true
			}
		}
		return false
	},
	101: func(m *Mol) bool {
		for _, ring := range m.rings.atomRings {
			if len(ring) >= 8 {
				return true
			}
		}
		return false
	},
	125: func(m *Mol) bool { return m.NumAromaticRings() > 1 },
	166: func(m *Mol) bool { return len(m.Fragments()) > 1 },
}

var maccsKeyTable = func() [MACCSWidth]maccsKey {
	var keys [MACCSWidth]maccsKey
	for i, k := range maccsSmarts {
		if k.smarts == "" {
			keys[i] = maccsKey{special: maccsSpecial[i+1]}
			continue
		}
		p, err := CompileSmarts(k.smarts)
		if err != nil {
			panic(fmt.Sprintf("MACCS key %d (%s): %v", i+1, k.name, err))
		}
		keys[i] = maccsKey{pattern: p, threshold: k.threshold}
	}
	return keys
}()

// maccsKeys sets bit k-1 for every MACCS key k present in m.
func maccsKeys(m *Mol) *BitVect {
	v := NewBitVect(MACCSWidth)
	for i, key := range maccsKeyTable {
		var on bool
		switch {
		case key.special != nil:
			on = key.special(m)
		case key.threshold == 0:
			on = key.pattern.Matches(m)
		default:
			on = key.pattern.CountMatches(m, true) > key.threshold
		}
		if on {
			v.Set(i)
		}
	}
	return v
}

// MACCSKeysFingerprint computes the 166 MACCS structural keys. Key k is stored at
// position k-1. It takes no algorithm options.
type MACCSKeysFingerprint struct {
	FingerprintTransformer `mapstructure:",squash"`
}

// NewMACCSKeysFingerprint returns a MACCS keys featurizer.
func NewMACCSKeysFingerprint(exec FingerprintTransformer) (*MACCSKeysFingerprint, error) {
	f := &MACCSKeysFingerprint{FingerprintTransformer: exec}
	if err := f.validateBase(); err != nil {
		return nil, err
	}
	return f, nil
}

// Width returns 166.
func (f *MACCSKeysFingerprint) Width() int { return MACCSWidth }

// Transform computes one 166-bit vector per molecule.
func (f *MACCSKeysFingerprint) Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	return transformMols(ctx, f.FingerprintTransformer, "maccs", mols,
		func(_ context.Context, tk Toolkit, _ int, m *Mol) (Fingerprint, error) {
			return tk.MACCSKeys(m)
		})
}

// FitTransform validates mols and transforms them.
func (f *MACCSKeysFingerprint) FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error) {
	if err := f.Fit(ctx, mols); err != nil {
		return nil, err
	}
	return f.Transform(ctx, mols)
}
