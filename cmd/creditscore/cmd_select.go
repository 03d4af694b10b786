package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/schemas"
)

func newSelectCommand(opts *globalOptions) *cobra.Command {
	var (
		candidatesPath, policyPath, runID string
		asJSON                            bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Choose a champion among candidates by a metric policy",
		Long: `Apply a selection policy to a list of candidates and report the champion.

Candidates come from a JSON file (--candidates) or from the registry
entries of a run (--run-id). The policy file may be JSON or YAML:

  primary: cv_auc_mean
  min_threshold: 0.7
  tiebreaker:
    - metric: recall
      equality_threshold: 0.01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (candidatesPath == "") == (runID == "") {
				return errors.New("exactly one of --candidates or --run-id is required")
			}
			policy, err := readPolicy(policyPath)
			if err != nil {
				return err
			}

			var candidates []domain.Candidate
			if candidatesPath != "" {
				data, err := readFile(candidatesPath)
				if err != nil {
					return err
				}
				if candidates, err = schemas.DecodeCandidates(data); err != nil {
					return fmt.Errorf("%s: %w", candidatesPath, err)
				}
			} else {
				svc, err := openServices(cmd.Context(), opts.settings)
				if err != nil {
					return err
				}
				defer svc.Close()
				if candidates, err = svc.registry.ListCandidates(cmd.Context(), runID); err != nil {
					return err
				}
			}

			decision, err := domain.Decide(candidates, policy)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(decision)
			}
			printDecision(cmd.OutOrStdout(), decision)
			return nil
		},
	}

	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "JSON file with the candidate list")
	cmd.Flags().StringVar(&runID, "run-id", "", "Select among the candidates registered under this run")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Selection policy file (JSON or YAML)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decision as JSON")
	_ = cmd.MarkFlagRequired("policy")

	return cmd
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
