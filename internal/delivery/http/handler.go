package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dermaguide/backend/internal/domain"
)

// Recommender runs the recommendation pipeline for one request.
type Recommender interface {
	Recommend(ctx context.Context, request *domain.RecommendationRequest) (*domain.Recommendation, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommender    Recommender
	snapshots      domain.SnapshotProvider
	requestTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(recommender Recommender, snapshots domain.SnapshotProvider, requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 3 * time.Second
	}
	return &Handler{
		recommender:    recommender,
		snapshots:      snapshots,
		requestTimeout: requestTimeout,
	}
}

// HealthCheck returns the health status of the API, including the
// ruleset-health signal that distinguishes "passed safely" from
// "no rules were available to evaluate".
func (h *Handler) HealthCheck(c *gin.Context) {
	status := gin.H{
		"status":  "healthy",
		"service": "dermaguide-backend",
		"version": "1.0.0",
	}

	snapshot, err := h.snapshots.Current()
	if err != nil {
		status["status"] = "degraded"
		status["ruleset"] = gin.H{"available": false}
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	status["ruleset"] = gin.H{
		"available":        true,
		"eligibilityRules": len(snapshot.EligibilityRules),
		"scoringRules":     len(snapshot.ScoringRules),
		"ageSeconds":       int(time.Since(snapshot.LoadedAt).Seconds()),
	}
	c.JSON(http.StatusOK, status)
}

// Recommend handles recommendation requests
func (h *Handler) Recommend(c *gin.Context) {
	var request domain.RecommendationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if request.TopN < 0 || request.TopN > 20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topN must be between 1 and 20"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	recommendation, err := h.recommender.Recommend(ctx, &request)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNoCandidates):
			c.JSON(http.StatusNotFound, gin.H{"error": "no candidate products found"})
		case errors.Is(err, domain.ErrSnapshotUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rule set unavailable, try again shortly"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, recommendation)
}

// RuleStats returns counts and version of the active rule snapshot
func (h *Handler) RuleStats(c *gin.Context) {
	snapshot, err := h.snapshots.Current()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rule set unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":          snapshot.Version,
		"loadedAt":         snapshot.LoadedAt,
		"eligibilityRules": len(snapshot.EligibilityRules),
		"scoringRules":     len(snapshot.ScoringRules),
		"aliases":          len(snapshot.AliasMap),
	})
}
