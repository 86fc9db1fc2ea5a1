package cmd

import (
	"taskremind/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send pending notification digests once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer stop()

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Aggregator().RunOnce(ctx)
			if err != nil {
				return err
			}
			log.Ctx(ctx).Info().
				Int("recipients", res.Recipients).
				Int("sent", res.Sent).
				Int("failed", res.Failed).
				Msg("digest done")
			return nil
		},
	}
}
