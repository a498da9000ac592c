package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"quiz-live-service/internal/config"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/postgres"
	infraredis "quiz-live-service/internal/infra/redis"
)

// NewSeedCmd loads quiz definitions from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <quizzes.yaml>",
		Short: "Store quiz definitions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, args[0])
		},
	}
}

type quizFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

func readQuizFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file quizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, quiz := range file.Quizzes {
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("quiz %q: %w", quiz.Code, err)
		}
	}
	return file.Quizzes, nil
}

func runSeed(ctx context.Context, configPath, quizPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	quizzes, err := readQuizFile(quizPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)
	var cache *infraredis.QuizRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache = infraredis.NewQuizRepository(client, loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	}

	for _, quiz := range quizzes {
		if err := loader.SaveQuiz(ctx, quiz); err != nil {
			return err
		}
		// running servers must not keep serving the old definition
		if cache != nil {
			if err := cache.Invalidate(ctx, quiz.Code); err != nil {
				log.Printf("seed: invalidate cached quiz %s: %v", quiz.Code, err)
			}
		}
		log.Printf("seeded quiz %s (%d questions)", quiz.Code, len(quiz.Questions))
	}
	return nil
}
