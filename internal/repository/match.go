package repository

import (
	"strings"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/pkg/fuzzy"
)

// policyCandidate pairs a stored policy with its normalized number for
// matching. The record keeps the number as printed on the document.
type policyCandidate struct {
	normalized string
	record     *domain.PolicyRecord
}

// prefixMatchConfidence is assigned when one normalized number is a strict
// prefix of the other, which covers truncated OCR reads.
const prefixMatchConfidence = 0.9

// matchPolicy resolves a normalized claim policy number against the
// candidate book in three tiers: exact, prefix, then fuzzy similarity at
// or above the default threshold. Returns nil when nothing matches.
func matchPolicy(normalized string, candidates []policyCandidate) (*domain.PolicyRecord, float64) {
	if normalized == "" {
		return nil, 0
	}

	for _, c := range candidates {
		if c.normalized == normalized {
			return c.record, 1.0
		}
	}

	for _, c := range candidates {
		if c.normalized == "" {
			continue
		}
		if strings.HasPrefix(c.normalized, normalized) || strings.HasPrefix(normalized, c.normalized) {
			return c.record, prefixMatchConfidence
		}
	}

	var best *domain.PolicyRecord
	bestScore := 0.0
	for _, c := range candidates {
		score := fuzzy.Similarity(normalized, c.normalized)
		if score >= fuzzy.DefaultThreshold && score > bestScore {
			best = c.record
			bestScore = score
		}
	}

	return best, bestScore
}
