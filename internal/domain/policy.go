package domain

import "math"

// TiebreakRule names a secondary metric consulted when the top two
// candidates are too close on the primary metric.
type TiebreakRule struct {
	// Metric is the metric compared between the top two candidates.
	Metric string `json:"metric" yaml:"metric" mapstructure:"metric"`

	// EqualityThreshold is the largest primary-metric gap that still counts
	// as a tie. Only the first rule's value is consulted.
	EqualityThreshold float64 `json:"equality_threshold" yaml:"equality_threshold" mapstructure:"equality_threshold"`
}

// SelectionPolicy configures how a champion is chosen among candidates.
type SelectionPolicy struct {
	// Primary is the metric used for the main ranking. Required.
	Primary string `json:"primary" yaml:"primary" mapstructure:"primary"`

	// MinThreshold excludes candidates scoring strictly below it on the
	// primary metric. Nil admits every candidate.
	MinThreshold *float64 `json:"min_threshold,omitempty" yaml:"min_threshold,omitempty" mapstructure:"min_threshold"`

	// Tiebreaker lists the rules tried, in order, once a tie is declared.
	Tiebreaker []TiebreakRule `json:"tiebreaker,omitempty" yaml:"tiebreaker,omitempty" mapstructure:"tiebreaker"`
}

// Threshold returns the effective minimum for the primary metric.
func (p SelectionPolicy) Threshold() float64 {
	if p.MinThreshold == nil {
		return math.Inf(-1)
	}
	return *p.MinThreshold
}

// TieGate returns the equality threshold that decides whether the top two
// candidates are tied, and false when no tie-breaking is configured.
func (p SelectionPolicy) TieGate() (float64, bool) {
	if len(p.Tiebreaker) == 0 {
		return 0, false
	}
	return p.Tiebreaker[0].EqualityThreshold, true
}

// Validate checks the fields the selector requires.
func (p SelectionPolicy) Validate() error {
	if p.Primary == "" {
		return ErrMissingPolicyField
	}
	return nil
}

// Float64 returns a pointer to v, for building policies with a threshold.
func Float64(v float64) *float64 { return &v }
