package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"taskremind/internal/config"
	"taskremind/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func Run() {
	var command = &cobra.Command{
		Use:          "taskremind",
		Short:        "Deadline reminders and notification digests",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	command.AddCommand(apiCmd())
	command.AddCommand(workerCmd())
	command.AddCommand(serveCmd())
	command.AddCommand(digestCmd())
	command.AddCommand(seedCmd())

	if err := command.Execute(); err != nil {
		log.Fatal().Msgf("failed to execute command, err: %v", err.Error())
	}
}

// bootstrap loads the config, sets up logging and returns a context that
// is cancelled on SIGINT or SIGTERM.
func bootstrap() (context.Context, context.CancelFunc, *config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := logging.Init(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return logger.WithContext(ctx), stop, cfg, nil
}
