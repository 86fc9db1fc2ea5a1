package cmd

import (
	"context"
	"errors"
	"taskremind/internal/api"
	"taskremind/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func apiCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "api",
		Short: "Start API server with websocket push",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer stop()

			a, err := app.New(ctx, cfg, app.Options{Realtime: app.RealtimeRedis, Hub: true})
			if err != nil {
				return err
			}
			defer a.Close()

			relay, err := a.Relay()
			if err != nil {
				return err
			}
			log.Ctx(ctx).Info().Msgf("API server relaying channels %s", a.Redis.ChannelPattern())

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ignoreCanceled(relay.Run(ctx)) })
			g.Go(func() error { return newAPIServer(a).Run(ctx, port) })
			return g.Wait()
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	return command
}

func newAPIServer(a *app.App) *api.Server {
	return api.NewServer(api.Deps{
		Notifier:      a.Notifier(),
		Notifications: a.Store,
		Hub:           a.Hub,
		Ping:          a.Ping,
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
