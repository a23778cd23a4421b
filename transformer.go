package molprint

import (
	"context"
	"runtime"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wizenheimer/molprint/internal/log"
)

// Featurizer turns molecules into fingerprints.
//
// Featurizers are stateless: Fit only validates its input. Transform returns one
// fingerprint per input molecule in input order, except E3FP which returns one per
// retained conformer.
type Featurizer interface {
	// Fit validates mols. Featurizers learn nothing from data.
	Fit(ctx context.Context, mols []*Mol) error

	// Transform computes the fingerprints of mols.
	Transform(ctx context.Context, mols []*Mol) ([]Fingerprint, error)

	// FitTransform is Fit followed by Transform.
	FitTransform(ctx context.Context, mols []*Mol) ([]Fingerprint, error)

	// Width returns the number of positions of every output fingerprint.
	Width() int
}

// Compile-time checks to ensure all featurizers implement the Featurizer interface
var (
	_ Featurizer = (*MorganFingerprint)(nil)
	_ Featurizer = (*MACCSKeysFingerprint)(nil)
	_ Featurizer = (*AtomPairFingerprint)(nil)
	_ Featurizer = (*TopologicalTorsionFingerprint)(nil)
	_ Featurizer = (*ERGFingerprint)(nil)
	_ Featurizer = (*E3FP)(nil)
)

// FingerprintTransformer holds the execution settings shared by every featurizer and
// preprocessing adapter, and implements the partition / compute / concatenate
// dispatch they all use.
//
// HOW DISPATCH WORKS:
//
// ═══ STEP 1: Validate ═══
// Empty input fails with ErrEmptyInput; a nil element fails with ErrInvalidMolecule
// naming its index.
//
// ═══ STEP 2: Partition ═══
// The input is cut into contiguous chunks, one per worker. NJobs <= 0 means one
// worker per CPU; there are never more workers than inputs.
//
// ═══ STEP 3: Compute ═══
// Each chunk runs in its own goroutine. The worker resolves its Toolkit by name
// before computing. The first error cancels the remaining chunks. A panic is
// recovered into an error naming the chunk and its input range.
//
// ═══ STEP 4: Concatenate ═══
// Chunk outputs are joined in chunk order, so output order matches input order
// regardless of NJobs.
type FingerprintTransformer struct {
	// NJobs is the number of parallel workers. Values <= 0 use all CPUs.
	NJobs int `mapstructure:"n_jobs" json:"n_jobs"`

	// Verbose raises logging: 0 warnings only, 1 info, 2 or more debug.
	Verbose int `mapstructure:"verbose" json:"verbose"`

	// Sparse asks matrix exports to produce compressed sparse rows.
	Sparse bool `mapstructure:"sparse" json:"sparse"`

	// Toolkit names the registered chemistry backend. Empty selects the native toolkit.
	Toolkit string `mapstructure:"toolkit" json:"toolkit"`
}

// Workers returns the number of workers used for n inputs.
func (t FingerprintTransformer) Workers(n int) int {
	jobs := t.NJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	return max(1, min(jobs, n))
}

func (t FingerprintTransformer) validateBase() error {
	if !toolkitRegistered(t.Toolkit) {
		return errors.Wrapf(ErrInvalidConfig, "toolkit %q is not registered", t.Toolkit)
	}
	return nil
}

// Fit validates mols and learns nothing.
func (t FingerprintTransformer) Fit(_ context.Context, mols []*Mol) error {
	return validateMols(mols)
}

func validateMols(mols []*Mol) error {
	if len(mols) == 0 {
		return ErrEmptyInput
	}
	for i, m := range mols {
		if m == nil {
			return errors.Wrapf(ErrInvalidMolecule, "element %d is nil", i)
		}
	}
	return nil
}

// chunkFunc computes one contiguous chunk. offset is the input index of chunk[0].
type chunkFunc[In, Out any] func(ctx context.Context, tk Toolkit, offset int, chunk []In) ([]Out, error)

// dispatch runs calc over items in parallel chunks and concatenates the results in
// input order.
func dispatch[In, Out any](ctx context.Context, t FingerprintTransformer, component string, items []In, calc chunkFunc[In, Out]) ([]Out, error) {
	if len(items) == 0 {
		return nil, ErrEmptyInput
	}
	logger := log.ForVerbosity(t.Verbose, log.FieldComponent(component))

	workers := t.Workers(len(items))
	size := (len(items) + workers - 1) / workers
	chunks := lo.Chunk(items, size)
	results := make([][]Out, len(chunks))

	logger.Info("dispatching",
		zap.Int("inputs", len(items)),
		zap.Int("workers", len(chunks)),
		zap.Int("chunkSize", size))

	g, gctx := errgroup.WithContext(ctx)
	for ci, chunk := range chunks {
		offset := ci * size
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("worker panicked",
						zap.Int("chunk", ci),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					err = errors.Newf("chunk %d (inputs %d-%d) panicked: %v", ci, offset, offset+len(chunk)-1, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			tk, err := ResolveToolkit(t.Toolkit)
			if err != nil {
				return err
			}
			out, err := calc(gctx, tk, offset, chunk)
			if err != nil {
				return err
			}
			results[ci] = out
			logger.Debug("chunk done",
				zap.Int("chunk", ci),
				zap.Int("offset", offset),
				zap.Int("inputs", len(chunk)),
				zap.Int("outputs", len(out)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lo.Flatten(results), nil
}

// transformMols validates mols and dispatches a per-molecule computation.
func transformMols(ctx context.Context, t FingerprintTransformer, component string, mols []*Mol,
	calc func(ctx context.Context, tk Toolkit, index int, m *Mol) (Fingerprint, error),
) ([]Fingerprint, error) {
	if err := validateMols(mols); err != nil {
		return nil, err
	}
	return dispatch(ctx, t, component, mols, func(ctx context.Context, tk Toolkit, offset int, chunk []*Mol) ([]Fingerprint, error) {
		out := make([]Fingerprint, 0, len(chunk))
		for i, m := range chunk {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fp, err := calc(ctx, tk, offset+i, m)
			if err != nil {
				return nil, err
			}
			out = append(out, fp)
		}
		return out, nil
	})
}
