package api

import (
	"errors"
	"net/http"
	"strconv"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/pipeline"
	"fitcoach/programgen/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultListLimit = 20

type ProgramHandler struct {
	programService service.ProgramService
	logger         *zap.Logger
}

func NewProgramHandler(programService service.ProgramService, logger *zap.Logger) *ProgramHandler {
	return &ProgramHandler{programService: programService, logger: logger}
}

// RegenerateWorkoutRequest optionally explains why the workout is being replaced.
type RegenerateWorkoutRequest struct {
	Reason string `json:"reason"`
}

// handleServiceError maps service errors to HTTP status codes.
func (h *ProgramHandler) handleServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrProgramNotFound), errors.Is(err, service.ErrWorkoutNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrProgramNotActive), errors.Is(err, service.ErrProgramNotPaused),
		errors.Is(err, service.ErrWorkoutClosed):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidOutcome):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrGenerationUnparseable):
		abortWithError(c, http.StatusBadGateway, "The coach could not produce a replacement workout.")
	default:
		h.logger.Error("program request failed",
			zap.String("action", action), zap.String("programId", c.Param("programId")), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to "+action+".")
	}
}

// ListPrograms godoc
// @Summary List programs
// @Description Newest first. Coaches pass the owner in the ownerId query parameter.
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param ownerId query string false "Owner (coaches only)"
// @Param limit query int false "Maximum number of programs"
// @Success 200 {array} domain.Program
// @Failure 403 {object} gin.H "Forbidden"
// @Router /programs [get]
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	limit := int64(defaultListLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	programs, err := h.programService.ListPrograms(c.Request.Context(), ownerID, limit)
	if err != nil {
		h.handleServiceError(c, err, "list programs")
		return
	}
	if programs == nil {
		c.JSON(http.StatusOK, []domain.Program{}) // Return empty JSON array, not null
		return
	}
	c.JSON(http.StatusOK, programs)
}

// GetProgram godoc
// @Summary Get a program
// @Description Program metadata with the current day and progress recomputed.
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Success 200 {object} service.ProgramDetails
// @Failure 404 {object} gin.H "Program not found"
// @Router /programs/{programId} [get]
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	details, err := h.programService.GetProgram(c.Request.Context(), ownerID, c.Param("programId"))
	if err != nil {
		h.handleServiceError(c, err, "retrieve program")
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetToday godoc
// @Summary Today's workouts
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Success 200 {object} service.DayWorkouts
// @Failure 404 {object} gin.H "Program not found"
// @Router /programs/{programId}/today [get]
func (h *ProgramHandler) GetToday(c *gin.Context) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	day, err := h.programService.TodaysWorkouts(c.Request.Context(), ownerID, c.Param("programId"))
	if err != nil {
		h.handleServiceError(c, err, "retrieve today's workouts")
		return
	}
	c.JSON(http.StatusOK, day)
}

// PauseProgram godoc
// @Summary Pause a program
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Success 200 {object} domain.Program
// @Failure 409 {object} gin.H "Program is not active"
// @Router /programs/{programId}/pause [post]
func (h *ProgramHandler) PauseProgram(c *gin.Context) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	p, err := h.programService.Pause(c.Request.Context(), ownerID, c.Param("programId"))
	if err != nil {
		h.handleServiceError(c, err, "pause program")
		return
	}
	c.JSON(http.StatusOK, p)
}

// ResumeProgram godoc
// @Summary Resume a paused program
// @Description Days spent paused push every remaining workout back.
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Success 200 {object} domain.Program
// @Failure 409 {object} gin.H "Program is not paused"
// @Router /programs/{programId}/resume [post]
func (h *ProgramHandler) ResumeProgram(c *gin.Context) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	p, err := h.programService.Resume(c.Request.Context(), ownerID, c.Param("programId"))
	if err != nil {
		h.handleServiceError(c, err, "resume program")
		return
	}
	c.JSON(http.StatusOK, p)
}

// CompleteWorkout godoc
// @Summary Mark a workout completed
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Param workoutId path string true "Workout template ID"
// @Success 200 {object} domain.WorkoutTemplate
// @Failure 404 {object} gin.H "Workout not found"
// @Failure 409 {object} gin.H "Workout already closed"
// @Router /programs/{programId}/workouts/{workoutId}/complete [post]
func (h *ProgramHandler) CompleteWorkout(c *gin.Context) {
	h.recordOutcome(c, domain.WorkoutCompleted)
}

// SkipWorkout godoc
// @Summary Mark a workout skipped
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Param workoutId path string true "Workout template ID"
// @Success 200 {object} domain.WorkoutTemplate
// @Router /programs/{programId}/workouts/{workoutId}/skip [post]
func (h *ProgramHandler) SkipWorkout(c *gin.Context) {
	h.recordOutcome(c, domain.WorkoutSkipped)
}

func (h *ProgramHandler) recordOutcome(c *gin.Context, outcome domain.WorkoutStatus) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	w, err := h.programService.RecordWorkoutOutcome(c.Request.Context(), ownerID, c.Param("programId"), c.Param("workoutId"), outcome)
	if err != nil {
		h.handleServiceError(c, err, "record workout")
		return
	}
	c.JSON(http.StatusOK, w)
}

// RegenerateWorkout godoc
// @Summary Replace a pending workout
// @Description Generates a new template for the same day; the old one is kept as regenerated.
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Param workoutId path string true "Workout template ID"
// @Param request body RegenerateWorkoutRequest false "Reason"
// @Success 200 {object} domain.WorkoutTemplate
// @Failure 502 {object} gin.H "Generation failed"
// @Router /programs/{programId}/workouts/{workoutId}/regenerate [post]
func (h *ProgramHandler) RegenerateWorkout(c *gin.Context) {
	ownerID, err := ownerFromRequest(c, c.Query("ownerId"))
	if err != nil {
		abortWithError(c, http.StatusForbidden, err.Error())
		return
	}
	var req RegenerateWorkoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}
	w, err := h.programService.RegenerateWorkout(c.Request.Context(), ownerID, c.Param("programId"), c.Param("workoutId"), req.Reason)
	if err != nil {
		h.handleServiceError(c, err, "regenerate workout")
		return
	}
	c.JSON(http.StatusOK, w)
}
