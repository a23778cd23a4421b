package molprint

// pharmacophoreFeature is a named family of SMARTS patterns. Every atom of every
// match receives the feature, or only the first query atom when anchored.
type pharmacophoreFeature struct {
	name     string
	patterns []*Pattern
	anchored bool
}

func compileAll(smarts ...string) []*Pattern {
	out := make([]*Pattern, len(smarts))
	for i, s := range smarts {
		out[i] = MustCompileSmarts(s)
	}
	return out
}

var (
	donorPatterns = compileAll(
		"[N;!H0;v3]",
		"[N;!H0;+1;v4]",
		"[O,S;H1;+0]",
		"[n;H1;+0]",
	)
	acceptorPatterns = compileAll(
		"[O,S;H1;v2]",
		"[O,S;H0;v2]",
		"[O,S;-1]",
		"[O,S;H0;v1]",
		"[n;H0;+0]",
		"[N;v3;X3;!a]",
		"[o,s;+0]",
		"F",
	)
	aromaticPatterns = compileAll("a")
	halogenPatterns  = compileAll("[F,Cl,Br,I]")
	basicPatterns    = compileAll(
		"[#7;+1]",
		"[N;H2;+0;X3]-[C;X4]",
		"[N;H1;+0;X3](-[C;X4])-[C;X4]",
		"[N;H0;+0;X3](-[C;X4])(-[C;X4])-[C;X4]",
		"[N;X2;+0;!a]",
	)
	acidicPatterns = compileAll(
		"[C,S](=[O,S,P])-[O;H1,-1]",
	)

	// morganFeatures are the functional classes of FCFP-style Morgan invariants.
	morganFeatures = []pharmacophoreFeature{
		{name: "donor", patterns: donorPatterns},
		{name: "acceptor", patterns: acceptorPatterns},
		{name: "aromatic", patterns: aromaticPatterns},
		{name: "halogen", patterns: halogenPatterns},
		{name: "basic", patterns: basicPatterns},
		{name: "acidic", patterns: acidicPatterns},
	}
)

// ergFeatures are the atom property points of the extended reduced graph, in
// ergDonor..ergNegative order.
var ergFeatures = []pharmacophoreFeature{
	{name: "donor", patterns: donorPatterns},
	{name: "acceptor", patterns: acceptorPatterns},
	{name: "positive", patterns: compileAll("[+1,+2]", "[N;H2;+0;X3]-[C;X4]", "[N;H1;+0;X3](-[C;X4])-[C;X4]", "[N;H0;+0;X3](-[C;X4])(-[C;X4])-[C;X4]", "[N;X3;+0](-[#1,#6])=[C;!a]-[N;X3]"), anchored: true},
	{name: "negative", patterns: compileAll("[-1,-2]", "[O;H1]-[C,S,P]=[O]"), anchored: true},
}

// featureMasks returns one bit mask per atom, bit k set when the atom has feature k.
func featureMasks(m *Mol, features []pharmacophoreFeature) []uint32 {
	masks := make([]uint32, m.NumAtoms())
	for k, f := range features {
		for _, p := range f.patterns {
			for _, match := range p.FindMatches(m, true) {
				if f.anchored {
					match = match[:1]
				}
				for _, a := range match {
					masks[a] |= 1 << k
				}
			}
		}
	}
	return masks
}
