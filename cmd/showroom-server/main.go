package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/showroomhq/showroom/pkg/server"
)

func main() {
	settings := server.DefaultSettings()
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "showroom-server",
		Short: "Real-time coordination backend for the dealership showroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(logLevel)
			srv, err := server.NewServer(settings)
			if err != nil {
				return err
			}
			return srv.Run(context.Background())
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&settings.Host, "host", settings.Host, "listen host")
	flags.IntVar(&settings.Port, "port", settings.Port, "listen port")
	flags.BoolVar(&settings.RedisEnabled, "redis", settings.RedisEnabled, "use redis streams for queue updates")
	flags.StringVar(&settings.RedisAddr, "redis-addr", settings.RedisAddr, "redis address")
	flags.StringVar(&settings.OpenAIModel, "model", settings.OpenAIModel, "chat assistant model")
	flags.DurationVar(&settings.JanitorInterval, "janitor-interval", settings.JanitorInterval, "janitor sweep interval")
	flags.DurationVar(&settings.GraceWindow, "grace-window", settings.GraceWindow, "disconnected shopper grace window")
	flags.DurationVar(&settings.CollabTTL, "collab-ttl", settings.CollabTTL, "pending collaboration request TTL")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
