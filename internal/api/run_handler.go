package api

import (
	"errors"
	"net/http"
	"strings"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/pipeline"
	"fitcoach/programgen/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RunHandler struct {
	runner service.GenerationRunner
	logger *zap.Logger
}

func NewRunHandler(runner service.GenerationRunner, logger *zap.Logger) *RunHandler {
	return &RunHandler{runner: runner, logger: logger}
}

// --- DTOs ---

// GenerateProgramRequest is sent by the conversational front-end once requirements are gathered.
type GenerateProgramRequest struct {
	OwnerID        string                `json:"ownerId"`
	CoachID        string                `json:"coachId" binding:"required"`
	ConversationID string                `json:"conversationId"`
	Requirements   domain.RequirementBag `json:"requirements"`
}

type GenerateProgramResponse struct {
	RunID  string           `json:"runId"`
	Status domain.RunStatus `json:"status"`
}

// GenerateProgram godoc
// @Summary Start generating a training program
// @Description Queues an unattended generation run. The response only acknowledges the trigger;
// @Description the outcome is recorded on the run.
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GenerateProgramRequest true "Trigger"
// @Success 202 {object} GenerateProgramResponse "Run queued"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 503 {object} gin.H "Generation queue is full or stopped"
// @Router /programs/generate [post]
func (h *RunHandler) GenerateProgram(c *gin.Context) {
	var req GenerateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	ownerID, err := ownerFromRequest(c, strings.TrimSpace(req.OwnerID))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}

	run, err := h.runner.Submit(c.Request.Context(), pipeline.Trigger{
		OwnerID:        ownerID,
		CoachID:        strings.TrimSpace(req.CoachID),
		ConversationID: req.ConversationID,
		Requirements:   req.Requirements,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRun):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrRunnerStopped):
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error("failed to queue generation run", zap.String("ownerId", ownerID), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to start generation.")
		}
		return
	}
	c.JSON(http.StatusAccepted, GenerateProgramResponse{RunID: run.ID, Status: run.Status})
}

// GetRun godoc
// @Summary Inspect a generation run
// @Description Returns the run record: stage, outcome, error kind and blocking issues.
// @Tags Runs
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Success 200 {object} domain.GenerationRun
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not an operator)"
// @Failure 404 {object} gin.H "Run not found"
// @Router /runs/{runId} [get]
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.runner.GetRun(c.Request.Context(), c.Param("runId"))
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to load generation run", zap.String("runId", c.Param("runId")), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve run.")
		return
	}
	c.JSON(http.StatusOK, run)
}
