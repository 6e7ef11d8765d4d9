package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agronix"
	"github.com/hupe1980/agronix/config"
)

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "agronix",
		Short:         "AgroNix agronomic assistant",
		Long:          "Conversational assistant for strawberry growers: crop telemetry, alerts, daily tasks and a personal task calendar.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file")

	cmd.AddCommand(
		newChatCmd(opts),
		newEventsCmd(opts),
		newCropCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// open loads the configuration and builds the application.
func (o *rootOptions) open() (*agronix.AgroNix, error) {
	cfg, err := config.Load(o.configFile, func(lo *config.LoadOptions) {
		lo.EnvFiles = nil
		if o.envFile != "" {
			lo.EnvFiles = []string{o.envFile}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return agronix.FromConfig(cfg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agronix %s\n", version)
		},
	}
}
