package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/logger"
)

// NewSeedCmd loads categories and quizzes from a YAML file into the configured database.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quizzes from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var seed app.SeedFile
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			ctx := cmd.Context()
			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
					return err
				}
			}
			b, err := openBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close()

			created, err := app.Seed(ctx, b.store, seed)
			if err != nil {
				return err
			}
			log.Info("seed complete", "file", file, "created", created, "skipped", len(seed.Quizzes)-created)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to seed YAML")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
