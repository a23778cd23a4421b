/*
Package molprint computes molecular fingerprints for machine learning.

Molprint turns molecules into fixed-width vectors with a scikit-learn style
Fit/Transform API. Every featurizer is plain configuration, validated when it is
constructed, and computes its fingerprints in parallel over contiguous chunks of
the input while keeping input order.

# Overview

Molecules come from SMILES strings. Featurizers read them and produce one
Fingerprint per molecule, except E3FP which produces one per retained 3D
conformer. Chemistry runs through a Toolkit resolved by name inside each worker;
the native pure Go toolkit is always registered.

Sparse count fingerprints have a nominal width of 2^32, so molprint requires a
64-bit platform.

# Quick Start

Parse molecules and compute bit-vector Morgan fingerprints:

	package main

	import (
	    "context"
	    "fmt"
	    "log"

	    "github.com/wizenheimer/molprint"
	)

	func main() {
	    ctx := context.Background()

	    parser, _ := molprint.NewMolFromSmilesTransformer(molprint.FingerprintTransformer{})
	    mols, err := parser.Transform(ctx, []string{"CCO", "c1ccccc1O"})
	    if err != nil {
	        log.Fatal(err)
	    }

	    opts := molprint.DefaultMorganOptions()
	    opts.ResultType = molprint.ResultBitVect
	    fp, err := molprint.NewMorganFingerprint(opts, molprint.FingerprintTransformer{NJobs: 4})
	    if err != nil {
	        log.Fatal(err)
	    }

	    fps, err := fp.Transform(ctx, mols)
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(len(fps), fp.Width())
	}

# Featurizers

MorganFingerprint: circular ECFP/FCFP environments up to a radius.

MACCSKeysFingerprint: the 166 MACCS structural keys.

AtomPairFingerprint: pairs of atom types with their topological (or 3D) distance.

TopologicalTorsionFingerprint: linear paths of four atoms.

ERGFingerprint: pharmacophore pairs over a ring-reduced graph, real valued.

E3FP: 3D spherical shells over generated conformers.

The hashed featurizers take a ResultType: "default" gives unfolded sparse counts,
"hashed" gives NBits-wide counts and "as_bit_vect" gives NBits-wide bits. Any
other value fails construction with ErrInvalidConfig.

# Preprocessing

MolFromSmilesTransformer and MolToSmilesTransformer convert between SMILES and
molecules. MolStandardizer keeps the neutralized largest fragment.
ConformerGenerator embeds molecules in 3D and keeps a low-energy, RMSD-diverse
conformer set.

# Similarity Search

	idx, _ := molprint.NewFingerprintIndex(2048, molprint.Tanimoto)
	for i, fp := range fps {
	    idx.Add(uint32(i), fp.(*molprint.BitVect))
	}

	results, _ := idx.NewSearch().
	    WithQuery(query).
	    WithK(5).
	    WithThreshold(0.4).
	    Execute()

# Export

DenseMatrix and CSR stack fingerprints into gonum matrices. WriteNPY writes a
.npy file in float64, float32, float16 or uint8, and ReadNPY reads such a file
back as a dense matrix.

# Configuration

FeaturizerConfig describes a featurizer as a kind plus parameters, so featurizers
can be built from YAML:

	kind: atom_pair
	params:
	  n_bits: 1024
	  result_type: hashed
	  max_length: 10

# Thread Safety

Featurizers, similarity functions and molecules are immutable and safe for
concurrent use. FingerprintIndex guards its state with a read-write mutex.
*/
package molprint
