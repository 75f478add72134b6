package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/pkg/dates"
)

// verifiedConfidence is the policy-match confidence at or above which
// coverage is reported as VERIFIED rather than LIKELY_FOUND.
const verifiedConfidence = 0.8

// defaultCoverageCategory selects the coverage limit applied to a motor
// claim when the policy configures one.
const defaultCoverageCategory = "ownDamage"

// exclusionTriggers maps exclusion clause keywords to the description
// terms that trigger them. Clauses that match none of these keywords fall
// back to a whole-clause substring check.
var exclusionTriggers = map[string][]string{
	"alcohol":     {"alcohol", "drunk", "intoxicated"},
	"commercial":  {"commercial"},
	"intentional": {"intentional", "deliberate"},
	"racing":      {"race"},
}

// CoverageEvaluator determines whether a claim falls within its policy's
// temporal validity, exclusions and limits.
type CoverageEvaluator struct {
	policies domain.PolicySource
	log      *logrus.Logger
}

// NewCoverageEvaluator creates a new coverage evaluator
func NewCoverageEvaluator(policies domain.PolicySource, logger *logrus.Logger) *CoverageEvaluator {
	return &CoverageEvaluator{
		policies: policies,
		log:      logger,
	}
}

// Evaluate resolves the claim's policy and walks the coverage state
// transitions in order. The matched policy is returned alongside the
// result so later stages can reuse it. Lookup failures degrade to
// NOT_FOUND rather than failing the run.
func (e *CoverageEvaluator) Evaluate(ctx context.Context, entities domain.ClaimEntities) (*domain.CoverageResult, *domain.PolicyRecord) {
	policy, confidence, err := e.policies.Lookup(ctx, entities.PolicyNumber.Value)
	if err != nil && err != domain.ErrPolicyNotFound {
		e.log.WithError(err).Warn("Policy lookup failed, treating as not found")
	}
	if policy == nil {
		return &domain.CoverageResult{
			IsCovered: false,
			Status:    domain.CoverageNotFound,
			Reason:    fmt.Sprintf("no policy found for number %q", entities.PolicyNumber.Value),
		}, nil
	}

	result := &domain.CoverageResult{
		Deductible:      policy.Deductible,
		PolicyLimit:     e.applicableLimit(policy),
		MatchConfidence: confidence,
	}

	// An unparseable incident date is treated as in-term; downstream
	// review is preferable to a hard rejection on bad extraction.
	if incident, ok := dates.Parse(entities.IncidentDate.Value); ok {
		if incident.Before(policy.EffectiveDate) || incident.After(policy.ExpiryDate) {
			result.Status = domain.CoverageExpired
			result.Reason = fmt.Sprintf("incident on %s outside policy term %s to %s",
				incident.Format("2006-01-02"),
				policy.EffectiveDate.Format("2006-01-02"),
				policy.ExpiryDate.Format("2006-01-02"))
			return result, policy
		}
	}

	if triggered := triggeredExclusions(policy.Exclusions, entities.Description.Value); len(triggered) > 0 {
		result.Status = domain.CoverageExcluded
		result.TriggeredExclusions = triggered
		result.Reason = fmt.Sprintf("exclusion triggered: %s", strings.Join(triggered, "; "))
		return result, policy
	}

	amount, _ := parseAmount(entities.TotalAmount.Value)
	payable := amount - policy.Deductible
	if payable < 0 {
		payable = 0
	}
	if payable > result.PolicyLimit {
		payable = result.PolicyLimit
	}

	result.IsCovered = true
	result.PayableAmount = payable
	if confidence >= verifiedConfidence {
		result.Status = domain.CoverageVerified
	} else {
		result.Status = domain.CoverageLikelyFound
	}

	e.log.WithFields(logrus.Fields{
		"policy":     policy.PolicyNumber,
		"status":     result.Status,
		"payable":    result.PayableAmount,
		"confidence": confidence,
	}).Info("Coverage evaluated")

	return result, policy
}

// applicableLimit returns the coverage limit for the claim category,
// defaulting to the sum insured.
func (e *CoverageEvaluator) applicableLimit(policy *domain.PolicyRecord) float64 {
	if limit, ok := policy.CoverageLimits[defaultCoverageCategory]; ok && limit > 0 {
		return limit
	}
	return policy.SumInsured
}

// triggeredExclusions checks each policy exclusion clause against the
// claim description.
func triggeredExclusions(exclusions []string, description string) []string {
	description = strings.ToLower(description)
	if description == "" {
		return nil
	}

	var triggered []string
	for _, clause := range exclusions {
		lowered := strings.ToLower(clause)

		matched := false
		known := false
		for keyword, terms := range exclusionTriggers {
			if !strings.Contains(lowered, keyword) {
				continue
			}
			known = true
			for _, term := range terms {
				if strings.Contains(description, term) {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !known && strings.Contains(description, lowered) {
			matched = true
		}

		if matched {
			triggered = append(triggered, clause)
		}
	}
	return triggered
}
