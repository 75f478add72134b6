package service

import (
	"strings"

	"github.com/claim-risk-engine/internal/domain"
)

// Severity amount bands and settlement baselines.
const (
	severityMediumFloor = 20000.0
	severityHighFloor   = 80000.0
)

var settlementBaselineDays = map[domain.Severity]int{
	domain.SeverityLow:    7,
	domain.SeverityMedium: 21,
	domain.SeverityHigh:   45,
}

// OutcomeEstimator projects the final cost, reserve and settlement time
// of a claim from the core stage outputs.
type OutcomeEstimator struct{}

// NewOutcomeEstimator creates a new outcome estimator
func NewOutcomeEstimator() *OutcomeEstimator {
	return &OutcomeEstimator{}
}

// Estimate computes the projections. Fraud pressure inflates the cost and
// reserve; poor consistency inflates the cost only.
func (e *OutcomeEstimator) Estimate(amount, consistencyScore, fraudScore float64) *domain.OutcomeEstimate {
	severity := domain.SeverityLow
	switch {
	case amount >= severityHighFloor:
		severity = domain.SeverityHigh
	case amount >= severityMediumFloor:
		severity = domain.SeverityMedium
	}

	return &domain.OutcomeEstimate{
		PredictedFinalCost:      amount * (1 + 0.3*fraudScore) * (1 + 0.2*(1-consistencyScore)),
		DamageSeverity:          severity,
		RecommendedReserve:      amount * (1.1 + 0.2*fraudScore),
		EstimatedSettlementDays: settlementBaselineDays[severity] + int(fraudScore*30),
		Confidence:              0.7*consistencyScore + 0.3*(1-fraudScore),
	}
}

// SubrogationAnalyzer scans the incident description for recovery
// potential against a third party.
type SubrogationAnalyzer struct{}

// NewSubrogationAnalyzer creates a new subrogation analyzer
func NewSubrogationAnalyzer() *SubrogationAnalyzer {
	return &SubrogationAnalyzer{}
}

// subrogationTriggers maps description phrases to the recovery reason
// they indicate.
var subrogationTriggers = []struct {
	phrase string
	reason string
}{
	{"rear-end collision", "other driver likely at fault in rear-end collision"},
	{"third party", "third-party liability recovery possible"},
}

// recoveryProbability is the flat probability assigned on a trigger hit.
const recoveryProbability = 0.7

// Analyze returns the subrogation hint for the claim description.
func (a *SubrogationAnalyzer) Analyze(description string) *domain.SubrogationHint {
	lowered := strings.ToLower(description)

	for _, trigger := range subrogationTriggers {
		if strings.Contains(lowered, trigger.phrase) {
			return &domain.SubrogationHint{
				Possible:            true,
				RecoveryProbability: recoveryProbability,
				Reason:              trigger.reason,
			}
		}
	}

	return &domain.SubrogationHint{}
}
