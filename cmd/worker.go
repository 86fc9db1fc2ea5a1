package cmd

import (
	"taskremind/internal/app"
	"taskremind/internal/worker"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var (
		scan   bool
		digest bool
	)

	var command = &cobra.Command{
		Use:   "worker",
		Short: "Start deadline scanner and digest scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer stop()

			a, err := app.New(ctx, cfg, workerOptions(scan))
			if err != nil {
				return err
			}
			defer a.Close()

			return worker.Run(ctx, a, worker.Config{Scan: scan, Digest: digest})
		},
	}

	command.Flags().BoolVar(&scan, "scan", true, "Run the deadline scanner")
	command.Flags().BoolVar(&digest, "digest", true, "Run the digest schedule")

	return command
}

// workerOptions wires the Redis publisher and markers only when the scanner
// runs; a digest-only worker emits no notifications of its own.
func workerOptions(scan bool) app.Options {
	if !scan {
		return app.Options{Realtime: app.RealtimeNone}
	}
	return app.Options{Realtime: app.RealtimeRedis, Markers: true}
}
