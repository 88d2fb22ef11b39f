package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	rediscache "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/logger"
)

// NewPublishCmd flips a quiz between published and retired and drops the shared redis copy.
func NewPublishCmd(configPath *string) *cobra.Command {
	var (
		quizID string
		active bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish or retire a quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" && cfg.SQLite.Path == "" {
				return errors.New("publish needs postgres.url or sqlite.path; the in-memory store lives only inside the server")
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close()

			var caches []app.QuizCache
			redisClient, err := openRedis(ctx, cfg)
			if err != nil {
				return err
			}
			if redisClient != nil {
				defer redisClient.Close()
				quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
				caches = append(caches, rediscache.NewQuizRepository(redisClient, b.store, quizTTL, log))
			}

			if err := app.SetQuizActive(ctx, b.store, quizID, active, caches...); err != nil {
				return err
			}
			log.Info("quiz updated", "quiz_id", quizID, "active", active, "caches_invalidated", len(caches))
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "id", "", "quiz id")
	cmd.Flags().BoolVar(&active, "active", true, "true to publish, false to retire")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
