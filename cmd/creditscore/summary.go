package main

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

var printer = message.NewPrinter(language.English)

// printCandidates lists candidates with their selection metrics.
func printCandidates(w io.Writer, runID string, candidates []domain.Candidate) {
	printer.Fprintf(w, "Run %s: %d candidates\n", runID, len(candidates))
	for _, c := range candidates {
		printer.Fprintf(w, "  %-16s cv_auc_mean=%.4f auc_roc=%.4f recall=%.4f  %s\n",
			c.Model, c.Metrics.CVAUCMean(), c.Metrics.AUCROC(), c.Metrics.Recall(), c.ModelURI)
	}
}

// printDecision explains how the champion was chosen.
func printDecision(w io.Writer, decision domain.Decision) {
	printer.Fprintf(w, "Champion: %s (%s)\n", decision.Champion.Model, decision.Champion.ModelURI)
	printer.Fprintf(w, "  eligible candidates: %d\n", decision.EligibleCount)
	if decision.RunnerUp != nil {
		printer.Fprintf(w, "  runner-up: %s, gap %.4f\n", decision.RunnerUp.Model, decision.Gap)
	}
	if decision.Overridden() {
		printer.Fprintf(w, "  tie broken by %s\n", decision.DecidingRule)
	}
}

// printReport summarises the champion's test-set evaluation.
func printReport(w io.Writer, report *domain.EvaluationReport) {
	printer.Fprintf(w, "Test set: %d rows at threshold %.2f\n", report.TestRows, report.DecisionThreshold)
	for _, name := range report.TestMetrics.Names() {
		printer.Fprintf(w, "  %-20s %.4f\n", name, report.TestMetrics[name])
	}
}

// printRunSummary prints whatever the workflow produced.
func printRunSummary(w io.Writer, state domain.State) {
	exec, _ := state.GetExecutionContext()
	printer.Fprintf(w, "Workflow %s finished (run %s)\n", exec.PipelineID, exec.RunID)
	if candidates, ok := domain.Get(state, domain.KeyCandidates); ok {
		printCandidates(w, exec.RunID, candidates)
	}
	if decision, ok := domain.Get(state, domain.KeyDecision); ok && decision != nil {
		printDecision(w, *decision)
	}
	if report, ok := domain.Get(state, domain.KeyReport); ok && report != nil {
		printReport(w, report)
	}
}
