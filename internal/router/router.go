package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/handler"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	StudentQuiz *handler.StudentQuizHandler
	TeacherQuiz *handler.TeacherQuizHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// Limiters groups the rate limiters applied to specific routes.
type Limiters struct {
	Submit *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiters *Limiters,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Student Group ──────────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService), middleware.NoStore())
	{
		studentAPI.GET("/quizzes", handlers.StudentQuiz.ListQuizzes)
		studentAPI.POST("/quizzes/:quiz_id/session", handlers.StudentQuiz.OpenSession)
		studentAPI.GET("/quizzes/:quiz_id/session", handlers.StudentQuiz.GetSession)
		studentAPI.PUT("/quizzes/:quiz_id/answers/:question_id", handlers.StudentQuiz.SetAnswer)

		submit := []gin.HandlerFunc{handlers.StudentQuiz.Submit}
		if limiters != nil && limiters.Submit != nil {
			submit = append([]gin.HandlerFunc{limiters.Submit.Middleware()}, submit...)
		}
		studentAPI.POST("/quizzes/:quiz_id/submit", submit...)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	// Browsers cannot set headers on a WebSocket handshake, so the token
	// may also arrive as ?token=.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentJWT(authService))
	{
		ws.GET("/student/quizzes/:quiz_id/stream", handlers.WS.QuizStream)
	}

	// ─── 3. Teacher Group ──────────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService), middleware.NoStore())
	{
		teacherAPI.POST("/extract", handlers.TeacherQuiz.ExtractQuestions)
		teacherAPI.GET("/draft", handlers.TeacherQuiz.GetDraft)
		teacherAPI.PUT("/draft", handlers.TeacherQuiz.SaveDraft)
		teacherAPI.DELETE("/draft", handlers.TeacherQuiz.DeleteDraft)
		teacherAPI.POST("/publish", handlers.TeacherQuiz.Publish)
		teacherAPI.GET("/classes", handlers.TeacherQuiz.ListClasses)
	}

	return router
}
