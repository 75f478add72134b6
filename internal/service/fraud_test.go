package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claim-risk-engine/internal/domain"
)

// Collaborator fakes.

type fakeClassifier struct {
	verdict *domain.ClassifierVerdict
	err     error
}

func (f *fakeClassifier) Verdict(ctx context.Context, policyNumber, claimantName string) (*domain.ClassifierVerdict, error) {
	return f.verdict, f.err
}

type fakeQualitative struct {
	verdict *domain.QualitativeVerdict
	err     error
}

func (f *fakeQualitative) Analyze(ctx context.Context, corpus string) (*domain.QualitativeVerdict, error) {
	return f.verdict, f.err
}

type fakeWatchlist struct {
	entries []string
	err     error
}

func (f *fakeWatchlist) Entries(ctx context.Context) ([]string, error) {
	return f.entries, f.err
}

type fakeAnomaly struct {
	flagged bool
	err     error
}

func (f *fakeAnomaly) Flag(ctx context.Context, amount float64, daysSincePolicy int) (bool, error) {
	return f.flagged, f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newScorer(classifier domain.ClassifierSource, qualitative domain.QualitativeAnalyzer, watchlist domain.WatchlistSource, anomaly domain.AnomalyDetector) *FraudScorer {
	return NewFraudScorer(classifier, qualitative, watchlist, anomaly, 85, 5*time.Second, testLogger())
}

func claimWith(amount, incidentDate string) domain.ClaimEntities {
	return domain.ClaimEntities{
		ClaimantName: domain.FieldValue{Value: "John Doe", Confidence: 0.9},
		PolicyNumber: domain.FieldValue{Value: "POL-12345", Confidence: 0.9},
		TotalAmount:  domain.FieldValue{Value: amount, Confidence: 0.9},
		IncidentDate: domain.FieldValue{Value: incidentDate, Confidence: 0.9},
		Description:  domain.FieldValue{Value: "vehicle damage after collision", Confidence: 0.9},
	}
}

func claimDocuments() []domain.DocumentRecord {
	return []domain.DocumentRecord{
		{ID: "doc-1", Type: domain.DocBill, RawText: "repair estimate for vehicle damage"},
	}
}

func TestAssessCombinedScenario(t *testing.T) {
	// Classifier fraud verdict p=0.7925 contributes 0.4+0.3*0.7925=0.6378,
	// MEDIUM qualitative adds 0.3, leading digit 9 deviates from 0.301 and
	// adds 0.1. 92750 is not round and the claim is 673 days into the
	// policy, so neither of those rules fire. Total 1.0378 clamps to 1.00.
	scorer := newScorer(
		&fakeClassifier{verdict: &domain.ClassifierVerdict{
			Prediction:  1,
			Probability: 0.7925,
			Confidence:  1.0,
		}},
		&fakeQualitative{verdict: &domain.QualitativeVerdict{
			RiskLevel:  domain.RiskMedium,
			Indicators: []string{"narrative mentions prior claims"},
			Rationale:  "amount high for described damage",
			Confidence: 0.75,
		}},
		&fakeWatchlist{},
		&fakeAnomaly{},
	)

	entities := claimWith("92750", "15/03/2024")
	incident := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	policy := &domain.PolicyRecord{
		PolicyNumber:  "POL-12345",
		EffectiveDate: incident.AddDate(0, 0, -673),
		ExpiryDate:    incident.AddDate(0, 1, 0),
	}

	assessment := scorer.Assess(context.Background(), entities, claimDocuments(), policy)

	assert.Equal(t, 1.0, assessment.Score)
	assert.Equal(t, domain.RiskCritical, assessment.Band)
	assert.Equal(t, "amount high for described damage", assessment.Rationale)
	assert.Contains(t, assessment.Indicators, "qualitative: narrative mentions prior claims")
	assert.Contains(t, assessment.Indicators, "rules: leading digit of claim amount deviates from expected distribution")
	assert.NotContains(t, assessment.Indicators, "rules: claim amount 92750 is a round multiple of 1000")
	assert.InDelta(t, (1.0+0.75)/2, assessment.Confidence, 1e-9)
}

func TestAssessLegitimateVerdictSubtracts(t *testing.T) {
	scorer := newScorer(
		&fakeClassifier{verdict: &domain.ClassifierVerdict{
			Prediction:  0,
			Probability: 0.1,
			Confidence:  1.0,
		}},
		nil, nil, nil,
	)

	// 92750: no round-amount, benford digit 9 adds 0.1, classifier
	// subtracts min(0.2*1.0, 0.15)=0.15. Sum -0.05 clamps to 0.
	assessment := scorer.Assess(context.Background(), claimWith("92750", ""), claimDocuments(), nil)

	assert.Equal(t, 0.0, assessment.Score)
	assert.Equal(t, domain.RiskLow, assessment.Band)
}

func TestAssessScoreAlwaysBounded(t *testing.T) {
	scorer := newScorer(
		&fakeClassifier{verdict: &domain.ClassifierVerdict{Prediction: 1, Probability: 1.0, Confidence: 1.0}},
		&fakeQualitative{verdict: &domain.QualitativeVerdict{RiskLevel: domain.RiskCritical, Confidence: 0.9}},
		&fakeWatchlist{entries: []string{"JOHN DOE"}},
		&fakeAnomaly{flagged: true},
	)

	entities := claimWith("90000", "03/01/2024")
	policy := &domain.PolicyRecord{
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	assessment := scorer.Assess(context.Background(), entities, claimDocuments(), policy)

	assert.Equal(t, 1.0, assessment.Score)
	assert.Equal(t, domain.RiskCritical, assessment.Band)
	assert.Contains(t, assessment.Indicators, `watchlist: claimant matches flagged name "JOHN DOE"`)
	assert.Contains(t, assessment.Indicators, "anomaly: claim amount is a statistical outlier for its policy age")
}

func TestAssessAllCollaboratorsFailing(t *testing.T) {
	// Collaborator failures degrade to no-signal; the run still produces
	// an assessment with the default confidence.
	scorer := newScorer(
		&fakeClassifier{err: errors.New("connection refused")},
		&fakeQualitative{err: errors.New("rate limited")},
		&fakeWatchlist{err: errors.New("unreadable directory")},
		&fakeAnomaly{err: errors.New("model not loaded")},
	)

	assessment := scorer.Assess(context.Background(), claimWith("12345", ""), claimDocuments(), nil)

	assert.Equal(t, 0.0, assessment.Score)
	assert.Equal(t, domain.RiskLow, assessment.Band)
	assert.Equal(t, 0.5, assessment.Confidence)
	assert.Empty(t, assessment.Indicators)
}

func TestRoundAmountRule(t *testing.T) {
	tests := []struct {
		amount  string
		trigger bool
	}{
		{"90000", true},
		{"1000", true},
		{"92750", false},
		{"90000.50", false},
		{"0", false},
		{"-1000", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			scorer := newScorer(nil, nil, nil, nil)
			assessment := scorer.Assess(context.Background(), claimWith(tt.amount, ""), claimDocuments(), nil)

			triggered := false
			for _, indicator := range assessment.Indicators {
				if indicator == "rules: claim amount "+tt.amount+" is a round multiple of 1000" {
					triggered = true
				}
			}
			assert.Equal(t, tt.trigger, triggered)
		})
	}
}

func TestEarlyClaimBoundary(t *testing.T) {
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := &domain.PolicyRecord{
		EffectiveDate: effective,
		ExpiryDate:    effective.AddDate(1, 0, 0),
	}

	tests := []struct {
		name     string
		incident string
		trigger  bool
	}{
		{"six days in triggers", "07/01/2024", true},
		{"seven days in does not", "08/01/2024", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := newScorer(nil, nil, nil, nil)
			// 12751 keeps the round-amount and benford rules quiet.
			assessment := scorer.Assess(context.Background(), claimWith("12751", tt.incident), claimDocuments(), policy)

			expected := 0.0
			if tt.trigger {
				expected = earlyClaimWeight
			}
			assert.InDelta(t, expected, assessment.Score, 1e-9)
		})
	}
}

func TestEarlyClaimRequiresBothDates(t *testing.T) {
	scorer := newScorer(nil, nil, nil, nil)

	// No policy: the rule cannot fire however recent the incident.
	assessment := scorer.Assess(context.Background(), claimWith("12751", "02/01/2024"), claimDocuments(), nil)
	assert.Equal(t, 0.0, assessment.Score)

	// Unparseable incident date: same.
	policy := &domain.PolicyRecord{EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	assessment = scorer.Assess(context.Background(), claimWith("12751", "soon after purchase"), claimDocuments(), policy)
	assert.Equal(t, 0.0, assessment.Score)
}

func TestBenfordDeviates(t *testing.T) {
	tests := []struct {
		amount  float64
		trigger bool
	}{
		{92750, true},  // digit 9, expected 0.046
		{45000.75, true}, // digit 4, expected 0.097
		{30000, false}, // digit 3, expected 0.125
		{12751, false}, // digit 1, expected 0.301
		{0, false},
		{-9000, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.trigger, benfordDeviates(tt.amount), "amount %f", tt.amount)
	}
}

func TestRiskBands(t *testing.T) {
	tests := []struct {
		score float64
		band  domain.RiskBand
	}{
		{0.0, domain.RiskLow},
		{0.29, domain.RiskLow},
		{0.3, domain.RiskMedium},
		{0.59, domain.RiskMedium},
		{0.6, domain.RiskHigh},
		{0.84, domain.RiskHigh},
		{0.85, domain.RiskCritical},
		{1.0, domain.RiskCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.band, riskBand(tt.score), "score %f", tt.score)
	}
}

func TestIndicatorsDeduplicated(t *testing.T) {
	scorer := newScorer(
		&fakeClassifier{verdict: &domain.ClassifierVerdict{
			Prediction:  1,
			Probability: 0.9,
			Confidence:  1.0,
			Indicators:  []string{"repeat indicator", "repeat indicator"},
		}},
		nil, nil, nil,
	)

	assessment := scorer.Assess(context.Background(), claimWith("12751", ""), claimDocuments(), nil)

	count := 0
	for _, indicator := range assessment.Indicators {
		if indicator == "classifier: repeat indicator" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestWatchlistThresholdStrict(t *testing.T) {
	scorer := newScorer(nil, nil, &fakeWatchlist{entries: []string{"JOHN DOE"}}, nil)

	assessment := scorer.Assess(context.Background(), claimWith("12751", ""), claimDocuments(), nil)
	require.NotEmpty(t, assessment.Indicators)
	assert.InDelta(t, watchlistWeight, assessment.Score, 1e-9)

	// A dissimilar name does not hit.
	entities := claimWith("12751", "")
	entities.ClaimantName = domain.FieldValue{Value: "Priya Sharma"}
	assessment = scorer.Assess(context.Background(), entities, claimDocuments(), nil)
	assert.Equal(t, 0.0, assessment.Score)
}
