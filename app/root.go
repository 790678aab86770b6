// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/datacentricdesign/profile-api/internal/config"
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Directory holding main.toml")
}

var (
	configPath string // Path to the configuration directory
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:   "profile-api",
		Short: "Profile API is the identity service of the Data-Centric Design platform",
		Long: `Profile API handles the login, consent and logout steps of the OAuth2
authorization server, keeps the person accounts and manages groups and
access policies on the policy engine.`,
		Args:         cobra.OnlyValidArgs,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() error {
	var err error
	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return nil
}
