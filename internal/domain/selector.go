package domain

import (
	"fmt"
	"slices"
)

// Decision records how a champion was chosen. It is what evaluation
// reports and logs describe; SelectBest returns only its Champion.
type Decision struct {
	// Champion is the chosen candidate, returned unmodified.
	Champion Candidate `json:"champion"`

	// RunnerUp is the second-ranked eligible candidate on the primary
	// metric, or nil when only one candidate was eligible.
	RunnerUp *Candidate `json:"runner_up,omitempty"`

	// Gap is the primary-metric difference between the top two eligible
	// candidates. It is zero with a single eligible candidate.
	Gap float64 `json:"gap"`

	// TieDeclared is true when Gap fell within the tie gate and the
	// tie-break rules were consulted.
	TieDeclared bool `json:"tie_declared"`

	// DecidingRule names the metric of the rule that promoted the runner-up.
	// Empty when the primary ranking stood.
	DecidingRule string `json:"deciding_rule,omitempty"`

	// EligibleCount is how many candidates passed the threshold filter.
	EligibleCount int `json:"eligible_count"`
}

// Overridden reports whether a tie-break rule displaced the primary-ranked
// candidate.
func (d Decision) Overridden() bool { return d.DecidingRule != "" }

// SelectBest chooses the champion among candidates under policy.
//
// Candidates scoring below the policy threshold on the primary metric are
// dropped, the rest ranked by the primary metric descending with input
// order breaking exact ties. When the top two are within the first rule's
// equality threshold, the rules are tried in order and the first on which
// the runner-up is strictly better promotes it.
//
// The caller's slice is never reordered. The returned candidate is one of
// the inputs, unmodified.
func SelectBest(candidates []Candidate, policy SelectionPolicy) (Candidate, error) {
	d, err := Decide(candidates, policy)
	if err != nil {
		return Candidate{}, err
	}
	return d.Champion, nil
}

// Decide runs the same selection as SelectBest and returns the full
// decision trace.
func Decide(candidates []Candidate, policy SelectionPolicy) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{}, ErrEmptyCandidateSet
	}
	if err := policy.Validate(); err != nil {
		return Decision{}, err
	}

	primary := policy.Primary
	minimum := policy.Threshold()

	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Metrics.Get(primary) >= minimum {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return Decision{}, &NoEligibleCandidateError{Metric: primary, Threshold: minimum}
	}

	slices.SortStableFunc(eligible, func(a, b Candidate) int {
		av, bv := a.Metrics.Get(primary), b.Metrics.Get(primary)
		switch {
		case av > bv:
			return -1
		case av < bv:
			return 1
		default:
			return 0
		}
	})

	decision := Decision{Champion: eligible[0], EligibleCount: len(eligible)}
	if len(eligible) < 2 {
		return decision, nil
	}

	best, runnerUp := eligible[0], eligible[1]
	decision.RunnerUp = &runnerUp
	decision.Gap = best.Metrics.Get(primary) - runnerUp.Metrics.Get(primary)

	gate, ok := policy.TieGate()
	if !ok || decision.Gap > gate {
		return decision, nil
	}
	decision.TieDeclared = true

	for _, rule := range policy.Tiebreaker {
		if runnerUp.Metrics.Get(rule.Metric) > best.Metrics.Get(rule.Metric) {
			decision.Champion = runnerUp
			decision.RunnerUp = &best
			decision.DecidingRule = rule.Metric
			break
		}
	}
	return decision, nil
}

// ChampionSelector chooses a champion among trained candidates.
// Implementations must not modify the candidates they are given.
type ChampionSelector interface {
	// Select returns the chosen candidate with its decision trace.
	//
	// Example:
	//
	//	decision, err := selector.Select(candidates)
	//	if errors.Is(err, domain.ErrNoEligibleCandidate) {
	//	    // every candidate failed the quality bar
	//	}
	Select(candidates []Candidate) (Decision, error)
}

// PolicySelector is a ChampionSelector bound to a fixed policy. It is
// safe for concurrent use.
type PolicySelector struct {
	policy SelectionPolicy
}

// NewPolicySelector validates policy and binds it to a selector.
func NewPolicySelector(policy SelectionPolicy) (*PolicySelector, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection policy: %w", err)
	}
	p := policy
	p.Tiebreaker = slices.Clone(policy.Tiebreaker)
	if policy.MinThreshold != nil {
		p.MinThreshold = Float64(*policy.MinThreshold)
	}
	return &PolicySelector{policy: p}, nil
}

// Policy returns the bound policy.
func (s *PolicySelector) Policy() SelectionPolicy { return s.policy }

// Select implements ChampionSelector.
func (s *PolicySelector) Select(candidates []Candidate) (Decision, error) {
	return Decide(candidates, s.policy)
}

var _ ChampionSelector = (*PolicySelector)(nil)
