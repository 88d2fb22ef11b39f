package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/infra/memory"
	rediscache "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/logger"
	"quizmaster-service/internal/notify"
	transport "quizmaster-service/internal/transport/http"
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
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()
	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	redisClient, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Wizard.SessionTTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))

	var quizRepo app.QuizRepository
	var sessions app.SessionStore
	if redisClient != nil {
		quizRepo = rediscache.NewQuizRepository(redisClient, b.store, quizTTL, log)
		sessions = rediscache.NewSessionStore(redisClient, sessionTTL)
	} else {
		quizRepo = memory.NewQuizRepository(b.store, quizTTL)
		sessions = memory.NewSessionStore(sessionTTL)
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return err
	}

	scorer := app.NewScorer(b.store, notifier, log)
	wizard := app.NewWizard(sessions, quizRepo, scorer, app.WizardConfig{
		OnQuizMismatch:   app.MismatchPolicy(cfg.Wizard.OnQuizMismatch),
		OptionValidation: app.ValidationPolicy(cfg.Wizard.OptionValidation),
	}, log)
	catalog := app.NewCatalog(quizRepo, b.store, b.store)

	router := transport.NewRouter(transport.RouterConfig{
		Handler:        transport.NewHandler(wizard, catalog, log),
		WSHandler:      transport.NewWSHandler(wizard, catalog, log),
		AuthMiddleware: auth.NewMiddleware(log, tokens, cfg.Server.SecureCookie),
		Log:            log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newNotifier(cfg config.Config, log *logger.Logger) (app.Notifier, error) {
	sg := cfg.Notify.SendGrid
	if sg.APIKey == "" {
		return notify.NewLog(log), nil
	}
	client, err := notify.NewSendGrid(log, notify.SendGridConfig{
		APIKey:     sg.APIKey,
		BaseURL:    sg.BaseURL,
		FromEmail:  sg.FromEmail,
		FromName:   sg.FromName,
		MaxRetries: sg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// openRedis returns nil when no redis address is configured.
func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
