package service

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/pkg/dates"
	"github.com/claim-risk-engine/pkg/fuzzy"
)

// passThreshold is the consistency score at or above which a claim passes
// cross-document validation. Business policy constant.
const passThreshold = 0.75

// nameMismatchThreshold flags a name pair as a mismatch when its
// similarity falls below it.
const nameMismatchThreshold = 0.85

// amountDiscrepancyRatio is the relative spread above which observed
// amounts are treated as discrepant.
const amountDiscrepancyRatio = 0.20

// dateSpanLimitDays is the maximum span between observed incident dates
// before they are flagged as inconsistent.
const dateSpanLimitDays = 90

// policyPlaceholders are values excluded before comparing policy numbers.
var policyPlaceholders = map[string]bool{
	"":        true,
	"N/A":     true,
	"UNKNOWN": true,
	"NONE":    true,
}

// ConsistencyValidator cross-checks names, policy numbers, amounts, dates
// and document content across all documents of one claim.
type ConsistencyValidator struct {
	log *logrus.Logger
}

// NewConsistencyValidator creates a new consistency validator
func NewConsistencyValidator(logger *logrus.Logger) *ConsistencyValidator {
	return &ConsistencyValidator{log: logger}
}

// Validate runs the five sub-checks and returns the aggregated result.
// Each sub-check scores in [0,1]; a sub-check with fewer than two observed
// values contributes a perfect 1.0. The overall score is the unweighted
// mean. A claim with no documents at all short-circuits to a trivial PASS.
func (v *ConsistencyValidator) Validate(entities domain.ClaimEntities, documents []domain.DocumentRecord) *domain.ConsistencyResult {
	result := &domain.ConsistencyResult{
		Score:  1.0,
		Status: domain.ConsistencyPass,
	}

	if len(documents) == 0 {
		v.log.Warn("No documents supplied, consistency trivially passes")
		return result
	}

	nameScore := v.checkNames(documents, result)
	policyScore := v.checkPolicyNumbers(documents, result)
	amountScore := v.checkAmounts(documents, result)
	dateScore := v.checkDates(documents, result)
	duplicateScore := v.checkDuplicates(documents, result)

	result.Score = (nameScore + policyScore + amountScore + dateScore + duplicateScore) / 5
	if result.Score < passThreshold {
		result.Status = domain.ConsistencyFail
	}

	v.log.WithFields(logrus.Fields{
		"score":      result.Score,
		"status":     result.Status,
		"mismatches": len(result.Mismatches),
	}).Info("Consistency validation completed")

	return result
}

// observedValues collects the non-empty values of one field across all
// documents, in document order.
func observedValues(documents []domain.DocumentRecord, field string) []string {
	var values []string
	for _, doc := range documents {
		if fv, ok := doc.Fields[field]; ok && fv.Present() {
			values = append(values, fv.Value)
		}
	}
	return values
}

// checkNames scores the mean pairwise similarity over all distinct
// observed claimant names and flags dissimilar pairs.
func (v *ConsistencyValidator) checkNames(documents []domain.DocumentRecord, result *domain.ConsistencyResult) float64 {
	names := distinct(observedValues(documents, domain.FieldClaimantName))
	if len(names) < 2 {
		return 1.0
	}

	var total float64
	pairs := 0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			similarity := fuzzy.Similarity(names[i], names[j])
			total += similarity
			pairs++
			if similarity < nameMismatchThreshold {
				result.Mismatches = append(result.Mismatches,
					fmt.Sprintf("claimant name mismatch: %q vs %q (similarity %.2f)",
						names[i], names[j], similarity))
			}
		}
	}

	return total / float64(pairs)
}

// checkPolicyNumbers requires all non-placeholder policy numbers to agree
// after normalization. Mismatches report the values as printed.
func (v *ConsistencyValidator) checkPolicyNumbers(documents []domain.DocumentRecord, result *domain.ConsistencyResult) float64 {
	var raw []string
	for _, value := range observedValues(documents, domain.FieldPolicyNumber) {
		if policyPlaceholders[strings.ToUpper(strings.TrimSpace(value))] {
			continue
		}
		raw = append(raw, value)
	}
	if len(raw) < 2 {
		return 1.0
	}

	normalized := make(map[string]bool)
	for _, value := range raw {
		normalized[fuzzy.NormalizePolicyNumber(value)] = true
	}
	if len(normalized) == 1 {
		return 1.0
	}

	values := distinct(raw)
	sort.Strings(values)
	result.Mismatches = append(result.Mismatches,
		fmt.Sprintf("policy number mismatch across documents: %s", strings.Join(values, ", ")))
	return 0.0
}

// checkAmounts compares parseable claim amounts; unparseable values are
// dropped silently.
func (v *ConsistencyValidator) checkAmounts(documents []domain.DocumentRecord, result *domain.ConsistencyResult) float64 {
	var amounts []float64
	for _, value := range observedValues(documents, domain.FieldTotalAmount) {
		if amount, ok := parseAmount(value); ok {
			amounts = append(amounts, amount)
		}
	}
	if len(amounts) < 2 {
		return 1.0
	}

	minAmount, maxAmount := amounts[0], amounts[0]
	for _, amount := range amounts[1:] {
		if amount < minAmount {
			minAmount = amount
		}
		if amount > maxAmount {
			maxAmount = amount
		}
	}

	if maxAmount > 0 && (maxAmount-minAmount)/maxAmount > amountDiscrepancyRatio {
		result.Mismatches = append(result.Mismatches,
			fmt.Sprintf("amount discrepancy across documents: min %.2f, max %.2f", minAmount, maxAmount))
		return 0.5
	}
	return 1.0
}

// checkDates flags incident dates spread over more than the allowed span.
// Unparseable literals are skipped.
func (v *ConsistencyValidator) checkDates(documents []domain.DocumentRecord, result *domain.ConsistencyResult) float64 {
	var parsed []time.Time
	for _, value := range observedValues(documents, domain.FieldIncidentDate) {
		if t, ok := dates.Parse(value); ok {
			parsed = append(parsed, t)
		}
	}
	if len(parsed) < 2 {
		return 1.0
	}

	earliest, latest := parsed[0], parsed[0]
	for _, t := range parsed[1:] {
		if t.Before(earliest) {
			earliest = t
		}
		if t.After(latest) {
			latest = t
		}
	}

	if span := dates.DaysBetween(earliest, latest); span > dateSpanLimitDays {
		result.Mismatches = append(result.Mismatches,
			fmt.Sprintf("incident dates span %d days across documents", span))
		return 0.7
	}
	return 1.0
}

// checkDuplicates hashes each document's raw text; any repeated hash is a
// duplicate submission.
func (v *ConsistencyValidator) checkDuplicates(documents []domain.DocumentRecord, result *domain.ConsistencyResult) float64 {
	if len(documents) < 2 {
		return 1.0
	}

	seen := make(map[[32]byte]string)
	duplicates := false
	for _, doc := range documents {
		hash := sha256.Sum256([]byte(doc.RawText))
		if original, ok := seen[hash]; ok {
			duplicates = true
			result.DuplicateDocuments = append(result.DuplicateDocuments, doc.ID)
			result.Mismatches = append(result.Mismatches,
				fmt.Sprintf("document %s duplicates %s", doc.ID, original))
			continue
		}
		seen[hash] = doc.ID
	}

	if duplicates {
		return 0.0
	}
	return 1.0
}

// distinct returns the unique values preserving first-seen order.
func distinct(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			out = append(out, value)
		}
	}
	return out
}
