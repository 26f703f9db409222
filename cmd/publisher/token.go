package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"telegram-object-publisher/internal/infra/api"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("admin.jwt_secret is not set")
			}
			tok, err := api.NewAuthManager(cfg.Admin.JWTSecret).Mint(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject, shows up in admin API logs")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
