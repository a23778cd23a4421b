package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/wizenheimer/molprint"
)

// bitsOf extracts the bit vector of a fingerprint usable by the index.
func bitsOf(fp molprint.Fingerprint) (*molprint.BitVect, error) {
	switch v := fp.(type) {
	case *molprint.BitVect:
		return v, nil
	case *molprint.ConformerFingerprint:
		return v.Bits, nil
	}
	return nil, errors.Newf("similarity search needs bit fingerprints, got %s", fp.Kind())
}

func newSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Rank the molecules of a SMILES file by similarity to a query",
		Example: `  molprint similar --query 'c1ccccc1O' --input mols.smi --k 5
  molprint similar --query 'CCO' --input mols.smi --kind maccs --similarity dice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			query := v.GetString("query")
			if query == "" {
				return errors.New("--query is required")
			}

			// Morgan defaults to counts; the index stores bits.
			cfg, err := featurizerConfig(v, s)
			if err != nil {
				return err
			}
			if cfg.Kind == molprint.MorganKind {
				if _, ok := cfg.Params["result_type"]; !ok {
					cfg.Params["result_type"] = string(molprint.ResultBitVect)
				}
			}
			featurizer, err := molprint.NewFeaturizer(cfg)
			if err != nil {
				return err
			}

			records, mols, err := readMols(cmd.Context(), cmd, s)
			if err != nil {
				return err
			}
			queryMol, err := molprint.ParseSmiles(query)
			if err != nil {
				return err
			}
			fps, err := featurizer.Transform(cmd.Context(), append([]*molprint.Mol{queryMol}, mols...))
			if err != nil {
				return err
			}
			if len(fps) != len(mols)+1 {
				return errors.Newf("%s yields %d fingerprints for %d molecules; use a per-molecule featurizer", cfg.Kind, len(fps), len(mols)+1)
			}

			idx, err := molprint.NewFingerprintIndex(featurizer.Width(), molprint.SimilarityKind(v.GetString("similarity")))
			if err != nil {
				return err
			}
			for i, fp := range fps[1:] {
				bits, err := bitsOf(fp)
				if err != nil {
					return err
				}
				if err := idx.Add(uint32(i), bits); err != nil {
					return err
				}
			}
			q, err := bitsOf(fps[0])
			if err != nil {
				return err
			}
			results, err := idx.NewSearch().
				WithQuery(q).
				WithK(v.GetInt("k")).
				WithThreshold(v.GetFloat64("threshold")).
				Execute()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSCORE\tSMILES\tNAME")
			for rank, r := range results {
				rec := records[r.ID]
				fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", rank+1, r.Score, rec.Smiles, rec.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("query", "q", "", "query SMILES")
	cmd.Flags().Int("k", 10, "number of hits (0 = all)")
	cmd.Flags().Float64("threshold", 0, "minimum similarity")
	cmd.Flags().String("similarity", string(molprint.Tanimoto), "tanimoto, dice or cosine")
	cmd.Flags().String("kind", string(molprint.MorganKind), "featurizer kind")
	cmd.Flags().StringToString("param", nil, "featurizer parameter key=value (repeatable)")
	return cmd
}
