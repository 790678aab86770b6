package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/datacentricdesign/profile-api/internal/daemon"
	"github.com/datacentricdesign/profile-api/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the Profile API web service",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			return logger.Init(cfg.Log)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			d, err := daemon.New(ctx, &cfg)
			if err != nil {
				return err
			}

			log.Info().Int("port", cfg.Webserver.Port).Bool("dev", cfg.DevMode).Msg("starting profile api")

			return d.Start()
		},
	}
)
