// File: cmd/publisher/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"telegram-object-publisher/internal/config"
)

var (
	version = "dev"
	commit  = "none"

	configPath string
	devMode    bool
)

func main() {
	root := &cobra.Command{
		Use:           "publisher",
		Short:         "Republishes real-estate announcements to Telegram channels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&devMode, "dev", false, "enable developer mode (console logs, debug level)")

	root.AddCommand(serveCmd())
	root.AddCommand(countersCmd())
	root.AddCommand(grantsCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath, devMode)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", version, commit)
		},
	}
}
