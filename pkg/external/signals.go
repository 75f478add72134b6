package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/claim-risk-engine/internal/domain"
)

// ResilientSignalClient wraps the collaborator clients with circuit
// breakers, a bounded retry, and the verdict cache. It is the production
// implementation of the ClassifierSource and QualitativeAnalyzer ports.
// The cache may be nil when Redis is disabled.
type ResilientSignalClient struct {
	classifier  *ClassifierClient
	qualitative *QualitativeClient
	cache       *VerdictCache
	logger      *logrus.Logger

	classifierBreaker  *gobreaker.CircuitBreaker
	qualitativeBreaker *gobreaker.CircuitBreaker
}

// NewResilientSignalClient creates a resilient client over the classifier
// and qualitative collaborators.
func NewResilientSignalClient(
	classifier *ClassifierClient,
	qualitative *QualitativeClient,
	cache *VerdictCache,
	logger *logrus.Logger,
) *ResilientSignalClient {
	newBreaker := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}

	return &ResilientSignalClient{
		classifier:         classifier,
		qualitative:        qualitative,
		cache:              cache,
		logger:             logger,
		classifierBreaker:  newBreaker("classifier"),
		qualitativeBreaker: newBreaker("qualitative"),
	}
}

// Verdict queries the fraud classifier with caching, a single retry and a
// circuit breaker.
func (r *ResilientSignalClient) Verdict(ctx context.Context, policyNumber, claimantName string) (*domain.ClassifierVerdict, error) {
	if r.cache != nil {
		if verdict, found, err := r.cache.GetClassifierVerdict(ctx, policyNumber, claimantName); err == nil && found {
			return verdict, nil
		}
	}

	result, err := r.classifierBreaker.Execute(func() (interface{}, error) {
		var verdict *domain.ClassifierVerdict
		backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			v, err := r.classifier.Verdict(ctx, policyNumber, claimantName)
			if err != nil {
				return retry.RetryableError(err)
			}
			verdict = v
			return nil
		})
		return verdict, err
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("classifier service unavailable (circuit breaker open)")
		}
		return nil, fmt.Errorf("classifier query failed: %w", err)
	}

	verdict := result.(*domain.ClassifierVerdict)

	if r.cache != nil {
		if cacheErr := r.cache.SetClassifierVerdict(ctx, policyNumber, claimantName, verdict, 0); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache classifier verdict")
		}
	}

	return verdict, nil
}

// Analyze runs the qualitative narrative analysis with caching, a single
// retry and a circuit breaker.
func (r *ResilientSignalClient) Analyze(ctx context.Context, corpus string) (*domain.QualitativeVerdict, error) {
	if r.cache != nil {
		if verdict, found, err := r.cache.GetQualitativeVerdict(ctx, corpus); err == nil && found {
			return verdict, nil
		}
	}

	result, err := r.qualitativeBreaker.Execute(func() (interface{}, error) {
		var verdict *domain.QualitativeVerdict
		backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Second))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			v, err := r.qualitative.Analyze(ctx, corpus)
			if err != nil {
				return retry.RetryableError(err)
			}
			verdict = v
			return nil
		})
		return verdict, err
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("qualitative service unavailable (circuit breaker open)")
		}
		return nil, fmt.Errorf("qualitative analysis failed: %w", err)
	}

	verdict := result.(*domain.QualitativeVerdict)

	if r.cache != nil {
		if cacheErr := r.cache.SetQualitativeVerdict(ctx, corpus, verdict, 0); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache qualitative verdict")
		}
	}

	return verdict, nil
}

// BreakerStates returns the current state of the circuit breakers, for the
// health endpoint.
func (r *ResilientSignalClient) BreakerStates() map[string]string {
	return map[string]string{
		"classifier":  r.classifierBreaker.State().String(),
		"qualitative": r.qualitativeBreaker.State().String(),
	}
}
