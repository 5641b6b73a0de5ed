package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/angularhub/hub/internal/app"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApplication(ctx, opts.cfg)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
}
