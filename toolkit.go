package molprint

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// NativeToolkit is the name of the built-in pure Go toolkit.
const NativeToolkit = "native"

// Toolkit is the chemistry backend featurizers delegate to. Featurizers never hold a
// Toolkit: each worker resolves one by name when it starts computing, so featurizer
// values stay plain data that can be copied, logged and serialized.
//
// Errors returned by a Toolkit reach the caller unchanged.
type Toolkit interface {
	// Name returns the registry name of the toolkit.
	Name() string

	// ParseSmiles parses a SMILES string.
	ParseSmiles(smiles string) (*Mol, error)

	// CanonicalSmiles writes the canonical SMILES of m.
	CanonicalSmiles(m *Mol) (string, error)

	// Standardize returns the standardized parent of m.
	Standardize(m *Mol, opts StandardizeOptions) (*Mol, error)

	// EmbedConformers returns a copy of m carrying low-energy 3D conformers.
	EmbedConformers(ctx context.Context, m *Mol, opts ConformerOptions) (*Mol, error)

	// Morgan computes a circular fingerprint.
	Morgan(m *Mol, opts MorganOptions) (Fingerprint, error)

	// MACCSKeys computes the 166 MACCS structural keys.
	MACCSKeys(m *Mol) (*BitVect, error)

	// AtomPairs computes an atom pair fingerprint.
	AtomPairs(m *Mol, opts AtomPairOptions) (Fingerprint, error)

	// TopologicalTorsions computes a topological torsion fingerprint.
	TopologicalTorsions(m *Mol, opts TorsionOptions) (Fingerprint, error)

	// ERG computes an extended reduced graph fingerprint.
	ERG(m *Mol, opts ERGOptions) (*FloatVect, error)

	// E3FP computes one 3D fingerprint per conformer of m, which must carry conformers.
	E3FP(m *Mol, opts E3FPShellOptions) ([]*BitVect, error)
}

// ToolkitFactory creates a Toolkit. It is called once per worker and per call.
type ToolkitFactory func() (Toolkit, error)

var (
	toolkitMu sync.RWMutex
	toolkits  = map[string]ToolkitFactory{}
)

func init() {
	RegisterToolkit(NativeToolkit, func() (Toolkit, error) { return nativeToolkitImpl, nil })
}

// RegisterToolkit makes a toolkit available under name. Registering a name twice
// replaces the earlier factory.
func RegisterToolkit(name string, factory ToolkitFactory) {
	toolkitMu.Lock()
	defer toolkitMu.Unlock()
	toolkits[name] = factory
}

// Toolkits returns the registered toolkit names in sorted order.
func Toolkits() []string {
	toolkitMu.RLock()
	defer toolkitMu.RUnlock()
	names := make([]string, 0, len(toolkits))
	for name := range toolkits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveToolkit looks up and instantiates a toolkit. An empty name selects the
// native toolkit.
func ResolveToolkit(name string) (Toolkit, error) {
	if name == "" {
		name = NativeToolkit
	}
	toolkitMu.RLock()
	factory, ok := toolkits[name]
	toolkitMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownToolkit, "%q", name)
	}
	return factory()
}

func toolkitRegistered(name string) bool {
	if name == "" {
		return true
	}
	toolkitMu.RLock()
	defer toolkitMu.RUnlock()
	_, ok := toolkits[name]
	return ok
}

// nativeToolkit implements Toolkit in pure Go. It is stateless and safe for
// concurrent use.
type nativeToolkit struct{}

var nativeToolkitImpl = nativeToolkit{}

// Compile-time check
var _ Toolkit = nativeToolkit{}

func (nativeToolkit) Name() string { return NativeToolkit }

func (nativeToolkit) ParseSmiles(smiles string) (*Mol, error) { return ParseSmiles(smiles) }

func (nativeToolkit) CanonicalSmiles(m *Mol) (string, error) { return m.Smiles(), nil }

func (nativeToolkit) Standardize(m *Mol, opts StandardizeOptions) (*Mol, error) {
	return standardize(m, opts)
}

func (nativeToolkit) EmbedConformers(ctx context.Context, m *Mol, opts ConformerOptions) (*Mol, error) {
	return embedConformers(ctx, m, opts)
}

func (nativeToolkit) Morgan(m *Mol, opts MorganOptions) (Fingerprint, error) {
	return morganFingerprint(m, opts), nil
}

func (nativeToolkit) MACCSKeys(m *Mol) (*BitVect, error) { return maccsKeys(m), nil }

func (nativeToolkit) AtomPairs(m *Mol, opts AtomPairOptions) (Fingerprint, error) {
	return atomPairFingerprint(m, opts)
}

func (nativeToolkit) TopologicalTorsions(m *Mol, opts TorsionOptions) (Fingerprint, error) {
	return torsionFingerprint(m, opts)
}

func (nativeToolkit) ERG(m *Mol, opts ERGOptions) (*FloatVect, error) {
	return ergFingerprint(m, opts), nil
}

func (nativeToolkit) E3FP(m *Mol, opts E3FPShellOptions) ([]*BitVect, error) {
	return e3fpFingerprints(m, opts)
}
