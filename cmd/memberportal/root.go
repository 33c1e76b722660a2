package main

import (
	"github.com/spf13/cobra"

	"github.com/goserg/memberportal/internal/config"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "memberportal",
		Short:         "Members portal with server-side sessions and admin roles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", config.DefaultPath, "config file path")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before env overrides")

	cmd.AddCommand(NewServeCmd(flags))
	cmd.AddCommand(NewMigrateCmd(flags))
	return cmd
}

func (f *rootFlags) load() (config.Config, error) {
	return config.Load(f.configFile, f.envFile)
}
