package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stemsi/quizdesk/internal/backend"
	"github.com/stemsi/quizdesk/internal/cli"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/logger"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/session"
	"github.com/stemsi/quizdesk/internal/store"
	"golang.org/x/term"
)

func main() {
	quizID := flag.Int64("quiz", 0, "Quiz ID to take; omit to list your quizzes")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	if os.Getenv("STORE_DRIVER") == "" {
		cfg.StoreDriver = config.StoreDriverSQLite
	}

	// Logs go to stderr so the quiz on stdout stays readable.
	log := logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Identity ──────────────────────────────────────────────────────
	token := cfg.AccessToken
	if token == "" {
		fmt.Print("Access token: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("Error reading token")
			os.Exit(1)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		fmt.Println("Error: an access token is required")
		os.Exit(1)
	}

	authService := service.NewAuthService(cfg.JWTSecret)
	claims, err := authService.ValidateToken(token)
	if err != nil {
		fmt.Printf("Error: invalid token: %v\n", err)
		os.Exit(1)
	}
	studentID := cfg.StudentID
	if studentID == "" {
		studentID = claims.ID()
	}
	if studentID == "" {
		fmt.Println("Error: token carries no user id; set STUDENT_ID")
		os.Exit(1)
	}

	// ─── Dependencies ──────────────────────────────────────────────────
	st, closeStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open progress store")
	}
	defer closeStore()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)
	console := cli.NewConsole(os.Stdin, os.Stdout)

	if *quizID == 0 {
		catalogService := service.NewCatalogService(client, cfg.TimezoneCorrection, log)
		var catalog *service.Catalog
		err := console.Retry(ctx, "load your quizzes", func() (err error) {
			catalog, err = catalogService.Load(ctx, token)
			return err
		})
		if err != nil {
			os.Exit(1)
		}
		cli.PrintCatalog(console, catalog)
		console.Println("\nRun with -quiz <id> to start.")
		return
	}

	// ─── Take the Quiz ─────────────────────────────────────────────────
	var quiz *model.Quiz
	err = console.Retry(ctx, "load the quiz", func() (err error) {
		quiz, err = client.GetQuiz(ctx, token, *quizID)
		return err
	})
	if err != nil {
		os.Exit(1)
	}

	ctrl, err := session.New(session.Options{
		Identity:         session.Identity{StudentID: studentID, Token: token},
		Quiz:             quiz,
		Store:            st,
		Submitter:        client,
		QuestionsPerPage: cfg.QuestionsPerPage,
		Log:              log,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := console.Retry(ctx, "read your saved progress", func() error {
		return ctrl.Start(ctx)
	}); err != nil {
		os.Exit(1)
	}
	defer ctrl.Close()

	if _, err := cli.NewTaker(console, ctrl, log).Run(ctx); err != nil {
		if errors.Is(err, cli.ErrQuit) || errors.Is(err, context.Canceled) {
			fmt.Println("\nProgress saved.")
			return
		}
		log.Error().Err(err).Msg("Quiz ended with error")
	}
}
