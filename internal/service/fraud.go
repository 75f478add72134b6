package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/pkg/dates"
	"github.com/claim-risk-engine/pkg/fuzzy"
)

// Additive signal weights. Business policy constants.
const (
	classifierFraudBase   = 0.4
	classifierFraudSlope  = 0.3
	classifierLegitFactor = 0.2
	classifierLegitCap    = 0.15

	roundAmountWeight = 0.05
	earlyClaimWeight  = 0.1
	benfordWeight     = 0.1
	watchlistWeight   = 0.3
	anomalyWeight     = 0.2

	earlyClaimDays = 7

	// benfordReference is the expected frequency of leading digit 1.
	benfordReference = 0.301
	benfordDeviation = 0.2
)

// qualitativeWeights maps the collaborator's coarse risk label to its
// additive contribution.
var qualitativeWeights = map[domain.RiskBand]float64{
	domain.RiskLow:      0.1,
	domain.RiskMedium:   0.3,
	domain.RiskHigh:     0.6,
	domain.RiskCritical: 0.9,
}

// FraudScorer combines the external classifier verdict, the qualitative
// verdict, deterministic rule checks and the statistical outlier check
// into one bounded fraud score. Every collaborator degrades to no-signal
// on error or timeout; partial availability never blocks a decision.
type FraudScorer struct {
	classifier  domain.ClassifierSource
	qualitative domain.QualitativeAnalyzer
	watchlist   domain.WatchlistSource
	anomaly     domain.AnomalyDetector

	watchlistThreshold float64 // 0-100 similarity scale
	callTimeout        time.Duration
	log                *logrus.Logger
}

// NewFraudScorer creates a new fraud scorer. Any collaborator may be nil,
// in which case its signal is simply never raised.
func NewFraudScorer(
	classifier domain.ClassifierSource,
	qualitative domain.QualitativeAnalyzer,
	watchlist domain.WatchlistSource,
	anomaly domain.AnomalyDetector,
	watchlistThreshold float64,
	callTimeout time.Duration,
	logger *logrus.Logger,
) *FraudScorer {
	if watchlistThreshold <= 0 {
		watchlistThreshold = 85
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &FraudScorer{
		classifier:         classifier,
		qualitative:        qualitative,
		watchlist:          watchlist,
		anomaly:            anomaly,
		watchlistThreshold: watchlistThreshold,
		callTimeout:        callTimeout,
		log:                logger,
	}
}

// signalInputs carries the collaborator results gathered concurrently
// before the additive scoring pass.
type signalInputs struct {
	classifier  *domain.ClassifierVerdict
	qualitative *domain.QualitativeVerdict
	watchlist   []string
	anomalyHit  bool
}

// Assess computes the fraud assessment for one claim.
func (s *FraudScorer) Assess(ctx context.Context, entities domain.ClaimEntities, documents []domain.DocumentRecord, policy *domain.PolicyRecord) *domain.FraudAssessment {
	amount, amountOK := parseAmount(entities.TotalAmount.Value)
	daysSincePolicy, daysKnown := s.daysSincePolicy(entities, policy)

	inputs := s.gatherSignals(ctx, entities, documents, amount, amountOK, daysSincePolicy)

	score := 0.0
	var indicators []string
	var confidences []float64
	rationale := ""

	// External classifier signal.
	if verdict := inputs.classifier; verdict != nil {
		if verdict.Prediction == 1 {
			score += classifierFraudBase + classifierFraudSlope*verdict.Probability
			indicators = append(indicators, tagged("classifier",
				fmt.Sprintf("model predicts fraud (probability %.2f)", verdict.Probability)))
			for _, indicator := range verdict.Indicators {
				indicators = append(indicators, tagged("classifier", indicator))
			}
		} else {
			score -= math.Min(classifierLegitFactor*verdict.Confidence, classifierLegitCap)
		}
		confidences = append(confidences, verdict.Confidence)
	}

	// Qualitative-analysis signal.
	if verdict := inputs.qualitative; verdict != nil {
		if weight, ok := qualitativeWeights[verdict.RiskLevel]; ok {
			score += weight
		}
		for _, indicator := range verdict.Indicators {
			indicators = append(indicators, tagged("qualitative", indicator))
		}
		rationale = verdict.Rationale
		confidences = append(confidences, verdict.Confidence)
	}

	// Deterministic rule checks.
	if amountOK && isRoundAmount(amount) {
		score += roundAmountWeight
		indicators = append(indicators, tagged("rules",
			fmt.Sprintf("claim amount %.0f is a round multiple of 1000", amount)))
	}

	if daysKnown && daysSincePolicy < earlyClaimDays {
		score += earlyClaimWeight
		indicators = append(indicators, tagged("rules",
			fmt.Sprintf("claim filed %d days after policy start", daysSincePolicy)))
	}

	if amountOK && benfordDeviates(amount) {
		score += benfordWeight
		indicators = append(indicators, tagged("rules",
			"leading digit of claim amount deviates from expected distribution"))
	}

	if hit := s.watchlistHit(entities.ClaimantName.Value, inputs.watchlist); hit != "" {
		score += watchlistWeight
		indicators = append(indicators, tagged("watchlist",
			fmt.Sprintf("claimant matches flagged name %q", hit)))
	}

	if inputs.anomalyHit {
		score += anomalyWeight
		indicators = append(indicators, tagged("anomaly",
			"claim amount is a statistical outlier for its policy age"))
	}

	score = clamp01(score)

	assessment := &domain.FraudAssessment{
		Score:      score,
		Band:       riskBand(score),
		Indicators: dedupe(indicators),
		Rationale:  rationale,
		Confidence: meanOrDefault(confidences, 0.5),
	}

	s.log.WithFields(logrus.Fields{
		"score":      assessment.Score,
		"band":       assessment.Band,
		"indicators": len(assessment.Indicators),
	}).Info("Fraud assessment completed")

	return assessment
}

// gatherSignals issues the four independent collaborator calls
// concurrently, each under its own timeout. Failures are logged and
// degrade to no-signal.
func (s *FraudScorer) gatherSignals(ctx context.Context, entities domain.ClaimEntities, documents []domain.DocumentRecord, amount float64, amountOK bool, daysSincePolicy int) signalInputs {
	var inputs signalInputs

	g, gctx := errgroup.WithContext(ctx)

	if s.classifier != nil && (entities.PolicyNumber.Present() || entities.ClaimantName.Present()) {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.callTimeout)
			defer cancel()

			verdict, err := s.classifier.Verdict(callCtx, entities.PolicyNumber.Value, entities.ClaimantName.Value)
			if err != nil {
				s.log.WithError(err).Warn("Classifier unavailable, continuing without its signal")
				return nil
			}
			inputs.classifier = verdict
			return nil
		})
	}

	if s.qualitative != nil {
		if corpus := documentCorpus(documents); corpus != "" {
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gctx, s.callTimeout)
				defer cancel()

				verdict, err := s.qualitative.Analyze(callCtx, corpus)
				if err != nil {
					s.log.WithError(err).Warn("Qualitative analysis unavailable, continuing without its signal")
					return nil
				}
				inputs.qualitative = verdict
				return nil
			})
		}
	}

	if s.watchlist != nil && entities.ClaimantName.Present() {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.callTimeout)
			defer cancel()

			entries, err := s.watchlist.Entries(callCtx)
			if err != nil {
				s.log.WithError(err).Warn("Watchlist unavailable, continuing without its signal")
				return nil
			}
			inputs.watchlist = entries
			return nil
		})
	}

	if s.anomaly != nil && amountOK {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.callTimeout)
			defer cancel()

			flagged, err := s.anomaly.Flag(callCtx, amount, daysSincePolicy)
			if err != nil {
				s.log.WithError(err).Warn("Anomaly detector unavailable, continuing without its signal")
				return nil
			}
			inputs.anomalyHit = flagged
			return nil
		})
	}

	// Goroutines swallow their own errors, so Wait never fails.
	_ = g.Wait()

	return inputs
}

// daysSincePolicy computes the days between the policy effective date and
// the incident date. Both must be known for the early-claim rule to fire.
func (s *FraudScorer) daysSincePolicy(entities domain.ClaimEntities, policy *domain.PolicyRecord) (int, bool) {
	if policy == nil || policy.EffectiveDate.IsZero() {
		return 0, false
	}
	incident, ok := dates.Parse(entities.IncidentDate.Value)
	if !ok {
		return 0, false
	}
	return dates.DaysBetween(policy.EffectiveDate, incident), true
}

// watchlistHit returns the first flagged name whose similarity to the
// claimant exceeds the configured threshold.
func (s *FraudScorer) watchlistHit(claimant string, entries []string) string {
	if claimant == "" {
		return ""
	}
	for _, entry := range entries {
		if fuzzy.Similarity(claimant, entry)*100 > s.watchlistThreshold {
			return entry
		}
	}
	return ""
}

// isRoundAmount reports whether the amount is an exact integer multiple
// of 1000.
func isRoundAmount(amount float64) bool {
	if amount <= 0 || amount != math.Trunc(amount) {
		return false
	}
	return int64(amount)%1000 == 0
}

// benfordDeviates compares the expected frequency of the amount's leading
// digit under Benford's Law against the reference frequency of digit 1.
// Amounts that are zero or negative never trigger.
func benfordDeviates(amount float64) bool {
	if amount <= 0 {
		return false
	}
	n := int64(amount)
	for n >= 10 {
		n /= 10
	}
	if n < 1 {
		return false
	}
	expected := math.Log10(1 + 1/float64(n))
	return math.Abs(benfordReference-expected) > benfordDeviation
}

// riskBand maps a final score onto the fixed cutoffs. Comparisons are
// strict; a score of exactly 0.85 is CRITICAL.
func riskBand(score float64) domain.RiskBand {
	switch {
	case score < 0.3:
		return domain.RiskLow
	case score < 0.6:
		return domain.RiskMedium
	case score < 0.85:
		return domain.RiskHigh
	default:
		return domain.RiskCritical
	}
}

// documentCorpus concatenates the raw text of all documents for the
// qualitative analyzer.
func documentCorpus(documents []domain.DocumentRecord) string {
	var parts []string
	for _, doc := range documents {
		text := strings.TrimSpace(doc.RawText)
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", doc.Type, text))
	}
	return strings.Join(parts, "\n\n")
}

func tagged(signal, indicator string) string {
	return signal + ": " + indicator
}

// dedupe removes repeated indicator strings preserving first-seen order.
func dedupe(indicators []string) []string {
	return distinct(indicators)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func meanOrDefault(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
