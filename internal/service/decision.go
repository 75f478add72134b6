package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
)

// Decision thresholds. Exact business policy constants; the rule ordering
// below must not be re-arranged.
const (
	lowConfidenceMatch = 0.7
	escalateScore      = 0.8
	approveScore       = 0.3
	flagScore          = 0.6
)

// DecisionEngine maps the coverage outcome and fraud score to the final
// claim status.
type DecisionEngine struct {
	log *logrus.Logger
}

// NewDecisionEngine creates a new decision engine
func NewDecisionEngine(logger *logrus.Logger) *DecisionEngine {
	return &DecisionEngine{log: logger}
}

// Decide evaluates the rules top-down; the first matching rule wins.
func (e *DecisionEngine) Decide(coverage *domain.CoverageResult, fraud *domain.FraudAssessment) *domain.DecisionResult {
	result := e.decide(coverage, fraud)

	e.log.WithFields(logrus.Fields{
		"status":       result.Status,
		"human_review": result.HumanReviewRequired,
		"fraud_score":  fraud.Score,
		"covered":      coverage.IsCovered,
	}).Info("Decision rendered")

	return result
}

func (e *DecisionEngine) decide(coverage *domain.CoverageResult, fraud *domain.FraudAssessment) *domain.DecisionResult {
	if !coverage.IsCovered && coverage.MatchConfidence < lowConfidenceMatch {
		return &domain.DecisionResult{
			Status:              domain.StatusNeedsManualReview,
			HumanReviewRequired: true,
			Reason:              "coverage could not be established and the policy match confidence is too low to auto-reject",
		}
	}

	if !coverage.IsCovered {
		return &domain.DecisionResult{
			Status:              domain.StatusRejected,
			HumanReviewRequired: false,
			Reason:              coverage.Reason,
		}
	}

	if fraud.Score >= escalateScore {
		return &domain.DecisionResult{
			Status:              domain.StatusEscalatedFraudReview,
			HumanReviewRequired: true,
			Reason:              fmt.Sprintf("fraud score %.2f requires specialist fraud review", fraud.Score),
		}
	}

	if fraud.Score < approveScore {
		return &domain.DecisionResult{
			Status:              domain.StatusApproved,
			HumanReviewRequired: false,
			Reason:              fmt.Sprintf("covered claim with low fraud score %.2f", fraud.Score),
		}
	}

	if fraud.Score < flagScore {
		return &domain.DecisionResult{
			Status:              domain.StatusFlaggedForReview,
			HumanReviewRequired: true,
			Reason:              fmt.Sprintf("covered claim with moderate fraud score %.2f", fraud.Score),
		}
	}

	return &domain.DecisionResult{
		Status:              domain.StatusRejected,
		HumanReviewRequired: true,
		Reason:              fmt.Sprintf("covered claim with elevated fraud score %.2f", fraud.Score),
	}
}
