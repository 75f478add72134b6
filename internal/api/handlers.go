package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/internal/review"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// EvaluateRequest is the body of POST /api/v1/claims/evaluate. ClaimID is
// optional; the pipeline generates one when it is absent.
type EvaluateRequest struct {
	ClaimID   string                  `json:"claim_id,omitempty"`
	Documents []domain.DocumentRecord `json:"documents"`
}

// EvaluateResponse wraps the pipeline result together with the review
// queueing outcome.
type EvaluateResponse struct {
	Result       *domain.PipelineResult `json:"result"`
	ReviewQueued bool                   `json:"review_queued"`
}

// ReviewDecisionRequest is the body of POST /api/v1/reviews/:id/decision.
type ReviewDecisionRequest struct {
	Decision review.Decision `json:"decision"`
	Notes    string          `json:"notes,omitempty"`
}

// handleEvaluateClaim runs the decisioning pipeline over one claim bundle.
func (s *Server) handleEvaluateClaim(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}

	result := s.pipeline.Evaluate(c.Request.Context(), req.ClaimID, req.Documents)

	queued := false
	if result.Decision.HumanReviewRequired && s.reviews != nil {
		if err := s.queueReview(c.Request.Context(), result); err != nil {
			// Queueing is best effort. The caller still gets the decision
			// and the failure is surfaced in the response and the logs.
			s.log.WithFields(logrus.Fields{
				"claim_id": result.ClaimID,
				"error":    err.Error(),
			}).Error("Failed to queue claim for human review")
		} else {
			queued = true
		}
	}

	c.JSON(http.StatusOK, EvaluateResponse{Result: result, ReviewQueued: queued})
}

// queueReview persists a pipeline result into the human review queue.
func (s *Server) queueReview(ctx context.Context, result *domain.PipelineResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	reasons := make([]string, 0, 1+len(result.Fraud.Indicators))
	if result.Decision.Reason != "" {
		reasons = append(reasons, result.Decision.Reason)
	}
	reasons = append(reasons, result.Fraud.Indicators...)

	return s.reviews.Save(ctx, &review.Review{
		ClaimRef:     result.ClaimID,
		ClaimantName: result.Entities.ClaimantName.Value,
		PolicyNumber: result.Entities.PolicyNumber.Value,
		Status:       result.Decision.Status,
		FraudScore:   result.Fraud.Score,
		RiskBand:     result.Fraud.Band,
		Reasons:      reasons,
		ResultJSON:   string(payload),
	})
}

// handleListReviews returns queued reviews, newest first.
func (s *Server) handleListReviews(c *gin.Context) {
	if s.reviews == nil {
		s.abortWithError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "review queue is not configured", "")
		return
	}

	pendingOnly := c.Query("status") == string(review.DecisionPending)
	limit := queryInt(c, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	reviews, err := s.reviews.List(c.Request.Context(), pendingOnly, limit, offset)
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to list reviews", err.Error())
		return
	}

	total, err := s.reviews.Count(c.Request.Context())
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to count reviews", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetReview returns one queued review by ID.
func (s *Server) handleGetReview(c *gin.Context) {
	if s.reviews == nil {
		s.abortWithError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "review queue is not configured", "")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "review id must be an integer", c.Param("id"))
		return
	}

	entry, err := s.reviews.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		s.abortWithError(c, http.StatusNotFound, domain.ErrInvalidInput, "review not found", c.Param("id"))
		return
	}
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load review", err.Error())
		return
	}

	c.JSON(http.StatusOK, entry)
}

// handleReviewDecision records a reviewer's verdict on a queued claim.
func (s *Server) handleReviewDecision(c *gin.Context) {
	if s.reviews == nil {
		s.abortWithError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "review queue is not configured", "")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "review id must be an integer", c.Param("id"))
		return
	}

	var req ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}
	if req.Decision != review.DecisionApproved && req.Decision != review.DecisionRejected {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "decision must be APPROVED or REJECTED", string(req.Decision))
		return
	}

	err = s.reviews.Decide(c.Request.Context(), id, req.Decision, req.Notes)
	if errors.Is(err, domain.ErrNotFound) {
		s.abortWithError(c, http.StatusNotFound, domain.ErrInvalidInput, "review not found", c.Param("id"))
		return
	}
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to record decision", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"decision": req.Decision,
	})
}

// handleHealth probes the configured dependencies and reports the result.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = "degraded"
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now().UTC(),
	})
}

// abortWithError writes the standardized error envelope and stops the chain.
func (s *Server) abortWithError(c *gin.Context, httpStatus int, code, message, details string) {
	c.AbortWithStatusJSON(httpStatus, domain.NewAPIError(code, message, details, c.GetString("correlation_id")))
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
