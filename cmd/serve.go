package cmd

import (
	"taskremind/internal/app"
	"taskremind/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "serve",
		Short: "Run API, scanner and digest in one process without Redis pub/sub",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer stop()

			a, err := app.New(ctx, cfg, app.Options{Realtime: app.RealtimeLocal, Markers: true})
			if err != nil {
				return err
			}
			defer a.Close()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return worker.Run(ctx, a, worker.Config{Scan: true, Digest: true}) })
			g.Go(func() error { return newAPIServer(a).Run(ctx, port) })
			return g.Wait()
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	return command
}
