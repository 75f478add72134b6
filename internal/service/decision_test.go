package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claim-risk-engine/internal/domain"
)

func TestDecide(t *testing.T) {
	engine := NewDecisionEngine(testLogger())

	tests := []struct {
		name        string
		covered     bool
		confidence  float64
		fraudScore  float64
		status      domain.ClaimStatus
		humanReview bool
	}{
		{
			name:        "uncovered with low confidence goes to manual review",
			covered:     false,
			confidence:  0.5,
			fraudScore:  0.0,
			status:      domain.StatusNeedsManualReview,
			humanReview: true,
		},
		{
			name:        "uncovered low confidence even with extreme fraud score",
			covered:     false,
			confidence:  0.5,
			fraudScore:  1.0,
			status:      domain.StatusNeedsManualReview,
			humanReview: true,
		},
		{
			name:        "uncovered with confident match rejects",
			covered:     false,
			confidence:  0.9,
			fraudScore:  0.0,
			status:      domain.StatusRejected,
			humanReview: false,
		},
		{
			name:        "fraud score at escalation boundary escalates",
			covered:     true,
			confidence:  1.0,
			fraudScore:  0.8,
			status:      domain.StatusEscalatedFraudReview,
			humanReview: true,
		},
		{
			name:        "low fraud approves",
			covered:     true,
			confidence:  1.0,
			fraudScore:  0.29,
			status:      domain.StatusApproved,
			humanReview: false,
		},
		{
			name:        "moderate fraud flags for review",
			covered:     true,
			confidence:  1.0,
			fraudScore:  0.3,
			status:      domain.StatusFlaggedForReview,
			humanReview: true,
		},
		{
			name:        "upper moderate fraud flags for review",
			covered:     true,
			confidence:  1.0,
			fraudScore:  0.59,
			status:      domain.StatusFlaggedForReview,
			humanReview: true,
		},
		{
			name:        "elevated fraud rejects with review",
			covered:     true,
			confidence:  1.0,
			fraudScore:  0.6,
			status:      domain.StatusRejected,
			humanReview: true,
		},
		{
			name:        "just below escalation rejects with review",
			covered:     true,
			confidence:  1.0,
			fraudScore:  0.79,
			status:      domain.StatusRejected,
			humanReview: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coverage := &domain.CoverageResult{
				IsCovered:       tt.covered,
				MatchConfidence: tt.confidence,
				Reason:          "policy expired before incident",
			}
			fraud := &domain.FraudAssessment{Score: tt.fraudScore}

			result := engine.Decide(coverage, fraud)

			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.humanReview, result.HumanReviewRequired)
			assert.NotEmpty(t, result.Reason)
		})
	}
}

func TestDecideRejectionCarriesCoverageReason(t *testing.T) {
	engine := NewDecisionEngine(testLogger())

	coverage := &domain.CoverageResult{
		IsCovered:       false,
		MatchConfidence: 0.95,
		Reason:          "exclusion triggered: damage while racing",
	}

	result := engine.Decide(coverage, &domain.FraudAssessment{Score: 0.1})

	assert.Equal(t, domain.StatusRejected, result.Status)
	assert.Equal(t, "exclusion triggered: damage while racing", result.Reason)
}
