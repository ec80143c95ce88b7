package recommend

import (
	"errors"
	"net/http"

	"skincare-advisor/internal/core/recommendation"
	"skincare-advisor/internal/core/run"
	"skincare-advisor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecommendRequest carries the user profile plus the upstream needs
// analysis for one recommendation run
type RecommendRequest struct {
	Profile  recommendation.UserProfile `json:"profile" binding:"required"`
	Analysis recommendation.Analysis    `json:"analysis"`
}

// RecommendResponse wraps the finished recommendation with its run id
type RecommendResponse struct {
	RunID          string                         `json:"run_id"`
	Recommendation *recommendation.Recommendation `json:"recommendation"`
}

// Handler serves recommendation runs
type Handler struct {
	service     *recommendation.Service
	statusStore *run.Store
}

// NewHandler creates the recommendation handler
func NewHandler(service *recommendation.Service, statusStore *run.Store) *Handler {
	return &Handler{
		service:     service,
		statusStore: statusStore,
	}
}

// HandleRecommend executes one full recommendation run
func (h *Handler) HandleRecommend(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}

	common.LogInfo("starting recommendation request",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("invalid request format",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if req.Profile.SkinType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "profile.skin_type is required"})
		return
	}

	runID := uuid.New().String()
	rec, err := h.service.Recommend(c.Request.Context(), runID, &req.Profile, &req.Analysis)
	if err != nil {
		// the pipeline recovers everything except persistence and a
		// fully unreadable catalog
		status := http.StatusInternalServerError
		code := common.ErrCodeInternalError
		if errors.Is(err, common.ErrPersistence) {
			status = http.StatusServiceUnavailable
			code = common.ErrCodeServiceUnavailable
		}
		common.LogError("recommendation run failed",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("run_id", runID),
		)
		c.JSON(status, gin.H{"error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, RecommendResponse{
		RunID:          runID,
		Recommendation: rec,
	})
}

// HandleRunStatus reports a run's recorded stage
func (h *Handler) HandleRunStatus(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id is required"})
		return
	}

	status, err := h.statusStore.GetStatus(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found", "code": common.ErrCodeNotFound})
		return
	}

	c.JSON(http.StatusOK, status)
}
