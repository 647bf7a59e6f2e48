package api

import (
	"net/http"

	"fitcoach/programgen/internal/domain" // Needed for RoleMiddleware
	"fitcoach/programgen/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	programService service.ProgramService,
	runner service.GenerationRunner,
	logger *zap.Logger,
) {
	programHandler := NewProgramHandler(programService, logger)
	runHandler := NewRunHandler(runner, logger)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Program Routes ---
		programGroup := protected.Group("/programs")
		programGroup.Use(RoleMiddleware(domain.RoleAthlete, domain.RoleCoach))
		{
			// POST /api/v1/programs/generate - acknowledged with 202, outcome lives on the run
			programGroup.POST("/generate", runHandler.GenerateProgram)
			programGroup.GET("", programHandler.ListPrograms)
			programGroup.GET("/:programId", programHandler.GetProgram)
			programGroup.GET("/:programId/today", programHandler.GetToday)
			programGroup.POST("/:programId/pause", programHandler.PauseProgram)
			programGroup.POST("/:programId/resume", programHandler.ResumeProgram)

			// --- Workout Routes ---
			programGroup.POST("/:programId/workouts/:workoutId/complete", programHandler.CompleteWorkout)
			programGroup.POST("/:programId/workouts/:workoutId/skip", programHandler.SkipWorkout)
			programGroup.POST("/:programId/workouts/:workoutId/regenerate", programHandler.RegenerateWorkout)
		}

		// --- Operator Routes ---
		runGroup := protected.Group("/runs")
		runGroup.Use(RoleMiddleware(domain.RoleOperator))
		{
			runGroup.GET("/:runId", runHandler.GetRun)
		}
	}
}
