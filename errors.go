package molprint

import "github.com/cockroachdb/errors"

// Sentinel errors. Callers match them with errors.Is; returned errors usually wrap
// one of these with the offending value.
var (
	// ErrInvalidConfig is returned by featurizer constructors when an option is outside
	// its allowed set or range. It is always raised before any molecule is processed.
	ErrInvalidConfig = errors.New("invalid featurizer configuration")

	// ErrEmptyInput is returned by Transform when no molecules are supplied.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidMolecule is returned when an input element is not a usable molecule.
	ErrInvalidMolecule = errors.New("invalid molecule")

	// ErrInvalidSmiles is returned when a SMILES string cannot be parsed.
	ErrInvalidSmiles = errors.New("invalid smiles")

	// ErrInvalidSmarts is returned when a SMARTS pattern cannot be compiled.
	ErrInvalidSmarts = errors.New("invalid smarts")

	// ErrUnknownToolkit is returned when no toolkit is registered under a name.
	ErrUnknownToolkit = errors.New("unknown toolkit")

	// ErrEmbedFailed is returned when no 3D conformer could be generated for a molecule.
	ErrEmbedFailed = errors.New("conformer embedding failed")

	// ErrDimensionMismatch is returned when fingerprints of different widths are mixed.
	ErrDimensionMismatch = errors.New("fingerprint dimension mismatch")

	// ErrUnknownSimilarityKind is returned when an unknown similarity kind is provided to NewSimilarity.
	ErrUnknownSimilarityKind = errors.New("unknown similarity kind")
)

func invalidConfig(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
