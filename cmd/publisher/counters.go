package main

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"telegram-object-publisher/internal/infra/logging"
	"telegram-object-publisher/internal/usecase"
)

func countersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Inspect or move per-channel sequence counters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the last published number of every channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSequences(cmd, func(seq *usecase.SequenceAllocator) error {
				snap, err := seq.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				dests := make([]string, 0, len(snap))
				for d := range snap {
					dests = append(dests, d)
				}
				sort.Strings(dests)
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DESTINATION\tLAST")
				for _, d := range dests {
					fmt.Fprintf(tw, "%s\t%d\n", d, snap[d])
				}
				return tw.Flush()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <destination> <value>",
		Short: "Move a channel's counter forward; the next post gets value+1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}
			return withSequences(cmd, func(seq *usecase.SequenceAllocator) error {
				if err := seq.Advance(cmd.Context(), args[0], value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %d\n", args[0], value)
				return nil
			})
		},
	})
	return cmd
}

func withSequences(cmd *cobra.Command, fn func(*usecase.SequenceAllocator) error) error {
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
	store, err := b.counterStore(cfg, logger)
	if err != nil {
		return err
	}
	return fn(usecase.NewSequenceAllocator(store, logger))
}
