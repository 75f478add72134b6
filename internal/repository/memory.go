package repository

import (
	"context"
	"sync"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/pkg/fuzzy"
)

// MemoryPolicyStore is an in-memory PolicySource for offline evaluation
// and tests. It applies the same tiered matching as the Postgres store.
type MemoryPolicyStore struct {
	mu         sync.RWMutex
	candidates []policyCandidate
}

// NewMemoryPolicyStore creates a store pre-loaded with the given policies.
func NewMemoryPolicyStore(policies []*domain.PolicyRecord) *MemoryPolicyStore {
	store := &MemoryPolicyStore{}
	for _, policy := range policies {
		store.Add(policy)
	}
	return store
}

// Add registers a policy.
func (s *MemoryPolicyStore) Add(policy *domain.PolicyRecord) {
	normalized := fuzzy.NormalizePolicyNumber(policy.PolicyNumber)
	if normalized == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.candidates {
		if c.normalized == normalized {
			s.candidates[i].record = policy
			return
		}
	}
	s.candidates = append(s.candidates, policyCandidate{normalized: normalized, record: policy})
}

// Lookup resolves a policy number with exact, prefix, then fuzzy matching.
func (s *MemoryPolicyStore) Lookup(ctx context.Context, policyNumber string) (*domain.PolicyRecord, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, confidence := matchPolicy(fuzzy.NormalizePolicyNumber(policyNumber), s.candidates)
	if record == nil {
		return nil, 0, domain.ErrPolicyNotFound
	}
	return record, confidence, nil
}
