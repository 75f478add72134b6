package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
)

// Pipeline sequences the claim decisioning stages for one claim:
// entity resolution, consistency, coverage, fraud scoring, decision, then
// the downstream estimates. Stage results are threaded forward read-only.
// The pipeline always terminates with a DecisionResult; degraded signals
// are reflected in review routing, never in an error to the caller.
type Pipeline struct {
	resolver    *EntityResolver
	consistency *ConsistencyValidator
	coverage    *CoverageEvaluator
	fraud       *FraudScorer
	decision    *DecisionEngine
	estimator   *OutcomeEstimator
	subrogation *SubrogationAnalyzer
	log         *logrus.Logger
}

// NewPipeline creates the claim decisioning pipeline
func NewPipeline(
	resolver *EntityResolver,
	consistency *ConsistencyValidator,
	coverage *CoverageEvaluator,
	fraud *FraudScorer,
	decision *DecisionEngine,
	logger *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		consistency: consistency,
		coverage:    coverage,
		fraud:       fraud,
		decision:    decision,
		estimator:   NewOutcomeEstimator(),
		subrogation: NewSubrogationAnalyzer(),
		log:         logger,
	}
}

// Evaluate runs the full pipeline over one claim's documents. A zero
// claimID is replaced with a generated one.
func (p *Pipeline) Evaluate(ctx context.Context, claimID string, documents []domain.DocumentRecord) *domain.PipelineResult {
	start := time.Now()
	if claimID == "" {
		claimID = uuid.NewString()
	}

	log := p.log.WithFields(logrus.Fields{
		"claim_id":  claimID,
		"documents": len(documents),
	})
	log.Info("Claim evaluation started")

	entities := p.resolver.Resolve(documents)

	consistency := p.consistency.Validate(entities, documents)
	coverage, policy := p.coverage.Evaluate(ctx, entities)
	fraud := p.fraud.Assess(ctx, entities, documents, policy)
	decision := p.decision.Decide(coverage, fraud)

	amount, _ := parseAmount(entities.TotalAmount.Value)
	estimate := p.estimator.Estimate(amount, consistency.Score, fraud.Score)
	subrogation := p.subrogation.Analyze(entities.Description.Value)

	result := &domain.PipelineResult{
		ClaimID:        claimID,
		Entities:       entities,
		Consistency:    consistency,
		Coverage:       coverage,
		Fraud:          fraud,
		Decision:       decision,
		Estimate:       estimate,
		Subrogation:    subrogation,
		ProcessingTime: time.Since(start),
		Timestamp:      time.Now(),
	}

	log.WithFields(logrus.Fields{
		"status":       decision.Status,
		"fraud_score":  fraud.Score,
		"consistency":  consistency.Score,
		"duration_ms":  result.ProcessingTime.Milliseconds(),
		"human_review": decision.HumanReviewRequired,
	}).Info("Claim evaluation completed")

	return result
}
