package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizdesk/internal/app"
	"quizdesk/internal/config"
	"quizdesk/internal/infra/memory"
	pgstore "quizdesk/internal/infra/postgres"
	rediscache "quizdesk/internal/infra/redis"
	"quizdesk/internal/infra/sqlite"
	"quizdesk/internal/infra/trivia"
	transport "quizdesk/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	verifier := app.PlainVerifier{}

	var store app.ScoreStore
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewScoreStore(pool, verifier)
	case cfg.SQLite.Path != "":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		sqliteStore := sqlite.NewScoreStore(db, verifier)
		if err := sqliteStore.Init(ctx); err != nil {
			return err
		}
		store = sqliteStore
	default:
		db, err := sqlite.Open("quizdesk.db")
		if err != nil {
			return err
		}
		defer db.Close()
		sqliteStore := sqlite.NewScoreStore(db, verifier)
		if err := sqliteStore.Init(ctx); err != nil {
			return err
		}
		store = sqliteStore
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.Duration(cfg.Redis.TTL, time.Minute)
		store = rediscache.NewLeaderboardCache(client, store, ttl)
	}

	source := trivia.NewClient(cfg.Trivia.URL, config.Duration(cfg.Trivia.Timeout, trivia.DefaultTimeout))

	seconds := cfg.Quiz.QuestionSeconds
	if seconds <= 0 {
		seconds = app.DefaultQuestionSeconds
	}
	service := app.NewQuizServiceWithClock(store, source, memory.NewSessionRegistry(), seconds, app.AfterFunc, time.Now)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizdesk on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
