package handlers

import (
	"github.com/examstack/exam-engine/internal/services"
	"github.com/examstack/exam-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	jwtSecret      string
}

func NewHandlerManager(
	admission services.AdmissionService,
	scoring services.ScoringService,
	validator *utils.Validator,
	logger utils.Logger,
	jwtSecret string,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(admission, scoring, validator, logger),
		jwtSecret:      jwtSecret,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-engine",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.jwtSecret))
	{
		exams := v1.Group("/exams")
		{
			exams.POST("/:id/start", hm.attemptHandler.StartAttempt)
			exams.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			exams.GET("/:id/attempts/current", hm.attemptHandler.GetCurrentAttempt)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
		}
	}
}
