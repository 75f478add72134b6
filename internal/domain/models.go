// Package domain contains the core business entities of the claim risk
// decisioning pipeline: the resolved claim facts, the per-stage result
// records, and the enumerations they share. Every stage exclusively owns the
// result record it returns; later stages receive prior results as read-only
// input and never mutate them.
package domain

import (
	"time"
)

// Core Enums and Types

// DocumentType tags an ingested claim document.
type DocumentType string

const (
	DocPolicy         DocumentType = "policy"
	DocBill           DocumentType = "bill"
	DocIdentity       DocumentType = "identity"
	DocIncidentReport DocumentType = "incident-report"
	DocOther          DocumentType = "other"
)

// ConsistencyStatus is the pass/fail outcome of cross-document validation.
type ConsistencyStatus string

const (
	ConsistencyPass ConsistencyStatus = "PASS"
	ConsistencyFail ConsistencyStatus = "FAIL"
)

// CoverageStatus enumerates the outcome of matching a claim against a policy.
type CoverageStatus string

const (
	CoverageNotFound    CoverageStatus = "NOT_FOUND"
	CoverageExpired     CoverageStatus = "EXPIRED"
	CoverageExcluded    CoverageStatus = "EXCLUDED"
	CoverageVerified    CoverageStatus = "VERIFIED"
	CoverageLikelyFound CoverageStatus = "LIKELY_FOUND"
)

// RiskBand is the coarse classification derived from the numeric fraud score.
type RiskBand string

const (
	RiskLow      RiskBand = "LOW"
	RiskMedium   RiskBand = "MEDIUM"
	RiskHigh     RiskBand = "HIGH"
	RiskCritical RiskBand = "CRITICAL"
)

// ClaimStatus is the terminal status rendered by the decision engine.
type ClaimStatus string

const (
	StatusApproved             ClaimStatus = "APPROVED"
	StatusRejected             ClaimStatus = "REJECTED"
	StatusFlaggedForReview     ClaimStatus = "FLAGGED_FOR_REVIEW"
	StatusEscalatedFraudReview ClaimStatus = "ESCALATED_FRAUD_REVIEW"
	StatusNeedsManualReview    ClaimStatus = "NEEDS_MANUAL_REVIEW"
)

// Severity is the estimated damage severity band used by outcome estimation.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Claim Input Models

// FieldValue is an extracted field with its extraction confidence in [0,1].
// A zero Confidence means the extractor did not report one.
type FieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Present reports whether the field carries a usable value.
func (f FieldValue) Present() bool {
	return f.Value != ""
}

// Canonical field names shared by ClaimEntities and per-document field sets.
const (
	FieldClaimantName = "claimant_name"
	FieldPolicyNumber = "policy_number"
	FieldTotalAmount  = "total_amount"
	FieldIncidentDate = "incident_date"
	FieldAddress      = "address"
	FieldPhone        = "phone"
	FieldEmail        = "email"
	FieldDescription  = "description"
)

// ClaimEntities holds the resolved, deduplicated claim-level facts. For any
// field observed in multiple documents the stored value is the single chosen
// golden value (most frequent, then highest-confidence source), never a list.
type ClaimEntities struct {
	ClaimantName FieldValue `json:"claimant_name"`
	PolicyNumber FieldValue `json:"policy_number"`
	TotalAmount  FieldValue `json:"total_amount"`
	IncidentDate FieldValue `json:"incident_date"`
	Address      FieldValue `json:"address"`
	Phone        FieldValue `json:"phone"`
	Email        FieldValue `json:"email"`
	Description  FieldValue `json:"description"`
}

// DocumentRecord is one ingested document. It is created once by the
// extraction collaborator and read-only afterward.
type DocumentRecord struct {
	ID                   string                `json:"id"`
	Type                 DocumentType          `json:"type"`
	RawText              string                `json:"raw_text"`
	Fields               map[string]FieldValue `json:"fields"`
	ExtractionConfidence float64               `json:"extraction_confidence,omitempty"`
}

// PolicyRecord is external reference data for one policy. Immutable within a
// pipeline run.
type PolicyRecord struct {
	PolicyNumber   string             `json:"policy_number"`
	HolderName     string             `json:"holder_name"`
	EffectiveDate  time.Time          `json:"effective_date"`
	ExpiryDate     time.Time          `json:"expiry_date"`
	SumInsured     float64            `json:"sum_insured"`
	CoverageLimits map[string]float64 `json:"coverage_limits,omitempty"`
	Deductible     float64            `json:"deductible"`
	Exclusions     []string           `json:"exclusions,omitempty"`
}

// Stage Result Models

// ConsistencyResult is produced once per run by the consistency validator.
type ConsistencyResult struct {
	Score              float64           `json:"score"`
	Status             ConsistencyStatus `json:"status"`
	Mismatches         []string          `json:"mismatches"`
	DuplicateDocuments []string          `json:"duplicate_documents"`
}

// CoverageResult is the outcome of the coverage evaluation stage.
type CoverageResult struct {
	IsCovered           bool           `json:"is_covered"`
	Status              CoverageStatus `json:"status"`
	Reason              string         `json:"reason,omitempty"`
	TriggeredExclusions []string       `json:"triggered_exclusions,omitempty"`
	PayableAmount       float64        `json:"payable_amount"`
	Deductible          float64        `json:"deductible"`
	PolicyLimit         float64        `json:"policy_limit"`
	MatchConfidence     float64        `json:"match_confidence"`
}

// FraudAssessment is the combined output of all fraud signals. Immutable once
// produced.
type FraudAssessment struct {
	Score      float64  `json:"score"`
	Band       RiskBand `json:"band"`
	Indicators []string `json:"indicators"`
	Rationale  string   `json:"rationale,omitempty"`
	Confidence float64  `json:"confidence"`
}

// DecisionResult is the terminal artifact of a pipeline run. It is never
// mutated by the core; a later human override is recorded separately.
type DecisionResult struct {
	Status              ClaimStatus `json:"status"`
	HumanReviewRequired bool        `json:"human_review_required"`
	Reason              string      `json:"reason"`
}

// Downstream Models

// OutcomeEstimate carries the downstream cost and settlement projections.
type OutcomeEstimate struct {
	PredictedFinalCost      float64  `json:"predicted_final_cost"`
	DamageSeverity          Severity `json:"damage_severity"`
	RecommendedReserve      float64  `json:"recommended_reserve"`
	EstimatedSettlementDays int      `json:"estimated_settlement_days"`
	Confidence              float64  `json:"confidence"`
}

// SubrogationHint flags recovery potential detected in the incident report.
type SubrogationHint struct {
	Possible            bool    `json:"possible"`
	RecoveryProbability float64 `json:"recovery_probability"`
	Reason              string  `json:"reason,omitempty"`
}

// PipelineResult bundles every stage output for one claim run.
type PipelineResult struct {
	ClaimID        string             `json:"claim_id"`
	Entities       ClaimEntities      `json:"entities"`
	Consistency    *ConsistencyResult `json:"consistency"`
	Coverage       *CoverageResult    `json:"coverage"`
	Fraud          *FraudAssessment   `json:"fraud"`
	Decision       *DecisionResult    `json:"decision"`
	Estimate       *OutcomeEstimate   `json:"estimate,omitempty"`
	Subrogation    *SubrogationHint   `json:"subrogation,omitempty"`
	ProcessingTime time.Duration      `json:"processing_time"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Collaborator Verdict Models

// ClassifierVerdict is the response of the external binary fraud classifier.
// Prediction is 1 for fraud, 0 for legitimate.
type ClassifierVerdict struct {
	Prediction  int      `json:"prediction"`
	Probability float64  `json:"probability"`
	Confidence  float64  `json:"confidence"`
	Indicators  []string `json:"indicators,omitempty"`
}

// QualitativeVerdict is the response of the qualitative document analysis
// collaborator. Indicators and Rationale are carried into the fraud
// assessment verbatim.
type QualitativeVerdict struct {
	RiskLevel  RiskBand `json:"risk_level"`
	Indicators []string `json:"indicators,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
	Confidence float64  `json:"confidence"`
}
