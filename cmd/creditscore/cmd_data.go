package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/dataset"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/testutils"
)

func newCurateCommand(opts *globalOptions) *cobra.Command {
	var input, output, upload string

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Convert the UCI German credit file into a labelled dataset",
		Long: `Decode the attribute codes of the UCI Statlog german.data file into
readable categories and a binary CreditRisk label (1 = bad credit), then
write the result locally and optionally upload it to blob storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(filepath.Clean(input))
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", input, err)
			}
			defer f.Close() //nolint:errcheck

			ds, err := dataset.CurateGerman(f)
			if err != nil {
				return err
			}
			return saveDataset(cmd, opts, ds, output, upload)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data/german.data", "UCI german.data file")
	cmd.Flags().StringVarP(&output, "output", "o", "data/german_credit.csv", "Local output file")
	cmd.Flags().StringVar(&upload, "upload", "", "Also store the dataset under this blob key")

	return cmd
}

func newGenerateCommand(opts *globalOptions) *cobra.Command {
	var (
		size           int
		seed           uint64
		output, upload string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic German-credit-shaped dataset",
		Long: `Generate a synthetic dataset with the columns of the curated German credit
data, for demos and tests. The data is not real and must not be used to
assess actual credit risk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < 10 {
				return fmt.Errorf("--size must be at least 10, got %d", size)
			}
			return saveDataset(cmd, opts, testutils.GenerateCreditDataset(size, seed), output, upload)
		},
	}

	cmd.Flags().IntVarP(&size, "size", "n", 1000, "Number of rows")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "data/synthetic_credit.csv", "Local output file")
	cmd.Flags().StringVar(&upload, "upload", "", "Also store the dataset under this blob key")

	return cmd
}

// saveDataset writes ds locally and, when upload is set, to the blob
// store in the format implied by the key.
func saveDataset(cmd *cobra.Command, opts *globalOptions, ds *domain.Dataset, output, upload string) error {
	if err := writeDataset(output, ds); err != nil {
		return err
	}
	printer.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", ds.Len(), output)
	if upload == "" {
		return nil
	}

	svc, err := openServices(cmd.Context(), opts.settings)
	if err != nil {
		return err
	}
	defer svc.Close()
	data, err := dataset.Encode(upload, ds)
	if err != nil {
		return err
	}
	if err := svc.store.Put(cmd.Context(), upload, data); err != nil {
		return fmt.Errorf("failed to upload dataset: %w", err)
	}
	printer.Fprintf(cmd.OutOrStdout(), "Uploaded to %s\n", upload)
	return nil
}
