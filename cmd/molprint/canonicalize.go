package main

import (
	"github.com/spf13/cobra"

	"github.com/wizenheimer/molprint"
)

func newCanonicalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canonicalize",
		Short: "Rewrite a SMILES file with canonical SMILES",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			records, mols, err := readMols(cmd.Context(), cmd, s)
			if err != nil {
				return err
			}
			if v.GetBool("standardize") {
				std, err := molprint.NewMolStandardizer(molprint.DefaultStandardizeOptions(), s.exec())
				if err != nil {
					return err
				}
				if mols, err = std.Transform(cmd.Context(), mols); err != nil {
					return err
				}
			}
			writer, err := molprint.NewMolToSmilesTransformer(s.exec())
			if err != nil {
				return err
			}
			smiles, err := writer.Transform(cmd.Context(), mols)
			if err != nil {
				return err
			}
			out := make([]molprint.SmiRecord, len(records))
			for i, rec := range records {
				out[i] = molprint.SmiRecord{Smiles: smiles[i], Name: rec.Name, Line: rec.Line}
			}
			return molprint.WriteSmi(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Bool("standardize", false, "keep the standardized parent of each molecule")
	return cmd
}
