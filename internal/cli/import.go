package cli

import (
	"fmt"

	"github.com/angularhub/hub/internal/app"
	"github.com/angularhub/hub/internal/utils"
	"github.com/angularhub/hub/pkg/event"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy events into the database",
		Long: `Replace the events stored in the database with the events of a JSON or YAML
file, or with the events of the configured source when --file is not given.
The database source then serves them in the same order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			var source event.Source
			switch {
			case file != "":
				source = event.NewFileSource(file, cfg.Location())
			case cfg.Source.Kind == "db":
				return fmt.Errorf("the configured source is the database itself, pass --file")
			default:
				var err error
				source, err = app.NewEventSource(ctx, cfg, nil, utils.SystemClock{})
				if err != nil {
					return err
				}
			}

			events, err := source.Load(ctx)
			if err != nil {
				return err
			}

			db, dialect, err := app.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := event.NewRepository(db, dialect, cfg.Location())
			if err := event.ReplaceAll(ctx, repo, events); err != nil {
				return fmt.Errorf("failed to import events: %w", err)
			}
			log.Infof("Imported %d events from %s", len(events), source.Name())
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events\n", len(events))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON or YAML events file")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, dialect, err := app.OpenDatabase(opts.cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", dialect)
			return nil
		},
	}
}
