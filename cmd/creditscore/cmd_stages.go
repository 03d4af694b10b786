package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/ml"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/units"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/dataset"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/schemas"
)

func newIngestCommand(opts *globalOptions) *cobra.Command {
	var (
		source, format, sheet, target, output string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Download a raw dataset from blob storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx, opts.settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			unit, err := units.CreateIngestUnit("ingest", map[string]any{
				"source": source,
				"format": format,
				"sheet":  sheet,
				"target": target,
			}, svc.store)
			if err != nil {
				return err
			}
			out, err := unit.Execute(ctx, domain.NewState())
			if err != nil {
				return err
			}
			raw, _ := domain.Get(out, domain.KeyRawData)
			if err := writeDataset(output, raw); err != nil {
				return err
			}
			printer.Fprintf(cmd.OutOrStdout(), "Wrote %d rows from %s to %s\n", raw.Len(), source, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Blob key of the raw dataset")
	cmd.Flags().StringVar(&format, "format", "", "Force the decoder: csv or xlsx (default: by extension)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read from spreadsheets")
	cmd.Flags().StringVar(&target, "target", dataset.GermanTarget, "Label column")
	cmd.Flags().StringVarP(&output, "output", "o", "data/raw.csv", "Local output file")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func newPreprocessCommand(_ *globalOptions) *cobra.Command {
	var (
		input, target, outputDir, paramsPath string
	)

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Clean a dataset and split it into train and test files",
		Long: `Clean a local dataset (drop rows with missing values, drop duplicates,
rename and cast columns) and write a stratified train/test split as
train.csv and test.csv. --params takes a YAML file with the preprocess
parameters of a workflow definition.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := readParams(paramsPath)
			if err != nil {
				return err
			}
			unit, err := units.CreatePreprocessUnit("preprocess", params)
			if err != nil {
				return err
			}
			raw, err := loadDataset(input, target)
			if err != nil {
				return err
			}

			out, err := unit.Execute(cmd.Context(), domain.With(domain.NewState(), domain.KeyRawData, raw))
			if err != nil {
				return err
			}
			train, _ := domain.Get(out, domain.KeyTrainData)
			test, _ := domain.Get(out, domain.KeyTestData)
			if err := writeDataset(filepath.Join(outputDir, "train.csv"), train); err != nil {
				return err
			}
			if err := writeDataset(filepath.Join(outputDir, "test.csv"), test); err != nil {
				return err
			}
			printer.Fprintf(cmd.OutOrStdout(), "Split %d rows into %d train and %d test rows in %s\n",
				raw.Len(), train.Len(), test.Len(), outputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data/raw.csv", "Local raw dataset")
	cmd.Flags().StringVar(&target, "target", dataset.GermanTarget, "Label column")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "data/processed", "Directory for train.csv and test.csv")
	cmd.Flags().StringVar(&paramsPath, "params", "", "YAML file with preprocess parameters")

	return cmd
}

func newTrainCommand(opts *globalOptions) *cobra.Command {
	var (
		input, target, paramsPath, runID string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and register candidate models",
		Long: `Fit every configured candidate on the training split, cross-validate it
and register it under the run ID. --params takes a YAML file with the
train parameters of a workflow definition; without it the default
candidates are trained.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			params, err := readParams(paramsPath)
			if err != nil {
				return err
			}
			svc, err := openServices(ctx, opts.settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			unit, err := units.CreateTrainUnit("train", params, ml.NewTrainer(), svc.registry, svc.metrics)
			if err != nil {
				return err
			}
			train, err := loadDataset(input, target)
			if err != nil {
				return err
			}
			if runID == "" {
				runID = uuid.NewString()
			}

			state := domain.With(domain.NewState(), domain.KeyTrainData, train)
			out, err := unit.Execute(ctx, domain.With(state, domain.KeyRunID, runID))
			if err != nil {
				return err
			}
			candidates, _ := domain.Get(out, domain.KeyCandidates)
			printCandidates(cmd.OutOrStdout(), runID, candidates)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data/processed/train.csv", "Training split")
	cmd.Flags().StringVar(&target, "target", dataset.GermanTarget, "Label column")
	cmd.Flags().StringVar(&paramsPath, "params", "", "YAML file with train parameters")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: generated)")

	return cmd
}

func newEvaluateCommand(opts *globalOptions) *cobra.Command {
	var (
		input, target, policyPath, runID string
		threshold                        float64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Select the champion of a run and score it on the test split",
		Long: `List the candidates registered under --run-id, select the champion with
the policy in --policy (default: highest cv_auc_mean), score it on the
test split and write the metrics JSON and the champion pointer file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			config := units.DefaultSelectConfig()
			if policyPath != "" {
				policy, err := readPolicy(policyPath)
				if err != nil {
					return err
				}
				config.Policy = policy
			}

			svc, err := openServices(ctx, opts.settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			selectUnit, err := units.NewSelectUnit("select", config, svc.registry)
			if err != nil {
				return err
			}
			scoreUnit, err := units.CreateScoreUnit("score", map[string]any{"decision_threshold": threshold},
				svc.registry, svc.store, svc.metrics)
			if err != nil {
				return err
			}
			test, err := loadDataset(input, target)
			if err != nil {
				return err
			}

			state := domain.With(domain.NewState(), domain.KeyTestData, test)
			state = domain.With(state, domain.KeyRunID, runID)
			state, err = selectUnit.Execute(ctx, state)
			if err != nil {
				return err
			}
			state, err = scoreUnit.Execute(ctx, state)
			if err != nil {
				return err
			}

			decision, _ := domain.Get(state, domain.KeyDecision)
			report, _ := domain.Get(state, domain.KeyReport)
			printDecision(cmd.OutOrStdout(), *decision)
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data/processed/test.csv", "Test split")
	cmd.Flags().StringVar(&target, "target", dataset.GermanTarget, "Label column")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Selection policy file (JSON or YAML)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run whose candidates are evaluated")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "Decision threshold for the test metrics")
	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}

// readPolicy loads and validates a selection policy file.
func readPolicy(path string) (domain.SelectionPolicy, error) {
	data, err := readFile(path)
	if err != nil {
		return domain.SelectionPolicy{}, err
	}
	policy, err := schemas.DecodePolicy(data)
	if err != nil {
		return domain.SelectionPolicy{}, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}
