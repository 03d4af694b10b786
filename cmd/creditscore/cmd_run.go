package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/application"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var (
		configPath string
		runID      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a training workflow end to end",
		Long: `Run a workflow definition: ingest, preprocess, train candidates, select a
champion and score it on the test split.

Pass --run-id to name the run. Without it a new run ID is generated. Reusing
the ID of an earlier run with a select/score workflow re-evaluates the
candidates that run registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			svc, err := openServices(ctx, opts.settings)
			if err != nil {
				return err
			}
			defer svc.Close()
			if addr := opts.settings.Server.MetricsAddr; addr != "" {
				serveMetrics(ctx, addr, svc.gatherer)
			}

			loader, err := application.NewGraphLoader(application.NewDefaultUnitRegistry(svc.dependencies()), svc.observer)
			if err != nil {
				return err
			}
			graph, err := loader.LoadFromFile(ctx, configPath)
			if err != nil {
				return err
			}

			out, err := application.NewRunner(graph).Run(ctx, runID, domain.NewState())
			if err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/credit_scoring.yaml", "Workflow definition file")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: generated)")

	return cmd
}
