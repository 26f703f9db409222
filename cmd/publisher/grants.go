package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"telegram-object-publisher/internal/infra/db/postgres"
	"telegram-object-publisher/internal/infra/logging"
	"telegram-object-publisher/internal/usecase"
)

func grantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Manage who may publish and with which contact template",
	}

	var (
		dest     string
		template string
		ttl      time.Duration
	)
	grant := &cobra.Command{
		Use:   "grant <submitter-id>",
		Short: "Create or replace a submitter's grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("submitter id: %w", err)
			}
			return withAccess(cmd, func(uc usecase.AccessUseCase) error {
				g, err := uc.Grant(cmd.Context(), id, dest, template, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %d -> %s\n", g.SubmitterID, destOrDefault(g.DestinationID))
				return nil
			})
		},
	}
	grant.Flags().StringVar(&dest, "dest", "", "destination channel (default: bot.channel)")
	grant.Flags().StringVar(&template, "template", "", "contact template appended to every post")
	grant.Flags().DurationVar(&ttl, "ttl", 0, "grant lifetime, 0 for no expiry")
	_ = grant.MarkFlagRequired("template")
	cmd.AddCommand(grant)

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <submitter-id>",
		Short: "Deactivate a submitter's grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("submitter id: %w", err)
			}
			return withAccess(cmd, func(uc usecase.AccessUseCase) error {
				if err := uc.Revoke(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %d\n", id)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active grants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(cmd, func(uc usecase.AccessUseCase) error {
				gs, err := uc.ListActive(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SUBMITTER\tDESTINATION\tEXPIRES")
				for _, g := range gs {
					exp := "never"
					if g.ExpiresAt != nil {
						exp = g.ExpiresAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", g.SubmitterID, destOrDefault(g.DestinationID), exp)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}

func destOrDefault(d string) string {
	if d == "" {
		return "(default)"
	}
	return d
}

func withAccess(cmd *cobra.Command, fn func(usecase.AccessUseCase) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	b, err := openBacking(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()
	return fn(usecase.NewAccessUseCase(postgres.NewGrantRepo(b.pool), cfg.Bot.Channel, logger))
}
