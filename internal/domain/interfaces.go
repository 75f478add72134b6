package domain

import (
	"context"
)

// PolicySource resolves a claimed policy number to a policy record. Lookup
// order is exact match on the normalized number, then normalized-prefix match,
// then fuzzy match against all known numbers. The returned confidence reflects
// which tier matched; (nil, 0, nil) means no policy was found, which is not an
// error.
type PolicySource interface {
	Lookup(ctx context.Context, policyNumber string) (*PolicyRecord, float64, error)
}

// ClassifierSource fetches the external binary classifier's verdict for a
// claim, keyed by policy number or claimant name. A nil verdict with nil error
// means no record matched.
type ClassifierSource interface {
	Verdict(ctx context.Context, policyNumber, claimantName string) (*ClassifierVerdict, error)
}

// QualitativeAnalyzer produces a coarse risk verdict from the combined
// document text corpus.
type QualitativeAnalyzer interface {
	Analyze(ctx context.Context, corpus string) (*QualitativeVerdict, error)
}

// WatchlistSource returns the maintained list of flagged claimant names,
// case-normalized.
type WatchlistSource interface {
	Entries(ctx context.Context) ([]string, error)
}

// AnomalyDetector flags an (amount, days-since-policy-start) pair as an
// outlier relative to historical distributions. Absence of a model yields
// false deterministically.
type AnomalyDetector interface {
	Flag(ctx context.Context, amount float64, daysSincePolicy int) (bool, error)
}

// ConfigManager provides access to application configuration.
type ConfigManager interface {
	GetConfig() *Config
	Validate() error
}
