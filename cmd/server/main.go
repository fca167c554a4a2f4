package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/backend"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/handler"
	"github.com/stemsi/quizdesk/internal/logger"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/router"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/session"
	"github.com/stemsi/quizdesk/internal/store"
	"github.com/stemsi/quizdesk/internal/validator"
	"github.com/stemsi/quizdesk/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("backend", cfg.BackendURL).
		Str("store", cfg.StoreDriver).
		Msg("Starting QuizDesk")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Progress Store ───────────────────────────────────────────
	st, closeStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open progress store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Store close error")
		}
	}()

	// ─── Initialize Services ──────────────────────────────────────────
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)

	authService := service.NewAuthService(cfg.JWTSecret)
	if !authService.Verifies() {
		log.Warn().Msg("JWT_SECRET is empty; tokens are decoded without signature verification")
	}
	catalogService := service.NewCatalogService(client, cfg.TimezoneCorrection, log)
	authoringService := service.NewAuthoringService(client, st, validator.Struct, log)
	mediaService := service.NewMediaService(cfg.MaxUploadBytes)

	sessions := session.NewRegistry(session.RegistryOptions{
		Quizzes:          client,
		Store:            st,
		Submitter:        client,
		Clock:            session.SystemClock{},
		QuestionsPerPage: cfg.QuestionsPerPage,
		Log:              log,
	})

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		StudentQuiz: handler.NewStudentQuizHandler(catalogService, sessions, log),
		TeacherQuiz: handler.NewTeacherQuizHandler(authoringService, mediaService, log),
		WS:          handler.NewWSHandler(sessions, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(st, cfg.StoreDriver, sessions, log),
	}
	limiters := &router.Limiters{
		Submit: middleware.NewRateLimiter(ctx, cfg.SubmitRatePerMinute, time.Minute),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	sweeper := worker.NewSessionSweeper(sessions, time.Minute, log)
	go sweeper.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiters, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop workers, then stop every countdown. Progress stays in the
	// store so attempts resume after restart.
	workerCancel()
	sessions.CloseAll()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
