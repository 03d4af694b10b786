package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Workflow completed
	ExitError       = 1 // Configuration, data or infrastructure error
	ExitNoChampion  = 2 // The selection policy could not choose a champion
	ExitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(os.Stderr, "Error:", err)

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, domain.ErrNoEligibleCandidate),
		errors.Is(err, domain.ErrEmptyCandidateSet),
		errors.Is(err, domain.ErrMissingPolicyField):
		return ExitNoChampion
	default:
		return ExitError
	}
}
