package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-live-service/internal/app"
	"quiz-live-service/internal/config"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/memory"
	"quiz-live-service/internal/infra/postgres"
	infraredis "quiz-live-service/internal/infra/redis"
	transport "quiz-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// resultBackend persists final standings and serves them back.
type resultBackend interface {
	app.ResultStore
	transport.ResultReader
}

// idleSweeper drops sessions nobody has touched for a while.
type idleSweeper func(ctx context.Context, idle time.Duration) ([]string, error)

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		loader  memory.QuizLoader
		status  app.StatusRepository
		results resultBackend
	)
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
		status = postgres.NewStatusStore(pool)
		results = postgres.NewResultStore(pool)
	} else {
		static := memory.NewStaticQuizLoader(sampleQuizzes())
		loader = static
		status = memory.NewStatusStore(static.Codes()...)
		results = memory.NewResultStore()
		log.Printf("postgres not configured; serving sample quizzes %v from memory", static.Codes())
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	// every event for a session goes through the local hub; sessions are
	// pinned to one instance by the redis ownership marker
	hub := memory.NewHub(cfg.Session.OutboundBuffer)
	var (
		store   app.SessionRepository
		sweeper idleSweeper
	)
	if redisClient != nil {
		redisStore := infraredis.NewSessionStore(redisClient, redisTTL, instanceID())
		store = redisStore
		sweeper = redisStore.Refresh
	} else {
		memStore := memory.NewSessionStore()
		store = memStore
		sweeper = func(_ context.Context, idle time.Duration) ([]string, error) {
			return memStore.SweepIdle(idle), nil
		}
	}

	coordinator := app.NewCoordinator(store, quizRepo, status, results, hub)
	if cfg.Session.ExaminerName != "" {
		coordinator = coordinator.WithExaminerName(cfg.Session.ExaminerName)
	}
	wsHandler := transport.NewWSHandler(coordinator, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	transport.NewRESTHandler(coordinator, results).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweepInterval := config.TTLDuration(cfg.Session.SweepInterval, 5*time.Minute)
	if redisClient != nil && sweepInterval >= redisTTL {
		log.Printf("session.sweepInterval %s is not shorter than redis.ttl %s; ownership markers may expire under live sessions", sweepInterval, redisTTL)
	}
	go runSweeper(sweepCtx, sweeper, config.TTLDuration(cfg.Session.IdleTTL, 2*time.Hour), sweepInterval)

	go func() {
		log.Printf("starting quiz-live on :%s", finalPort)
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

// instanceID names this process in session ownership markers.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "quiz-live"
	}
	return host + "-" + uuid.NewString()[:8]
}

func runSweeper(ctx context.Context, sweep idleSweeper, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := sweep(ctx, idle)
			if err != nil {
				log.Printf("session sweep: %v", err)
			}
			if len(swept) > 0 {
				log.Printf("expired idle sessions: %v", swept)
			}
		}
	}
}

// sampleQuizzes backs the server when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"DEMO1": {
			Code:  "DEMO1",
			Title: "Warmup",
			Questions: []domain.Question{
				{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: "4", TimeMinutes: 1},
				{Text: "Which planet is the largest?", Options: []string{"Mars", "Venus", "Jupiter", "Mercury"}, CorrectOption: "Jupiter"},
				{Text: "Which gas do plants absorb?", Options: []string{"Oxygen", "Carbon dioxide", "Nitrogen"}, CorrectOption: "Carbon dioxide", TimeMinutes: 0.5},
			},
		},
	}
}
