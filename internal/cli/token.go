package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/config"
)

// NewTokenCmd prints a signed access token, for local testing without an identity provider.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID, email, name string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 0))
			if err != nil {
				return err
			}
			raw, err := tokens.Issue(userID, email, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "email for result notifications")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
