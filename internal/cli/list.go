package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/angularhub/hub/internal/app"
	"github.com/angularhub/hub/internal/config"
	"github.com/angularhub/hub/internal/utils"
	"github.com/angularhub/hub/pkg/event"
	"github.com/angularhub/hub/pkg/listing"
	"github.com/spf13/cobra"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var date, language, output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the events matching a date and language",
		Long: `Load the events from the configured source and print those matching the
filters. Without filters every event is printed, in source order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := loadView(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			if err := applyFilters(view, opts.cfg, date, language); err != nil {
				return err
			}

			events := view.FilteredEvents()
			switch output {
			case "table":
				return writeTable(cmd.OutOrStdout(), events, opts.cfg.Location())
			case "json":
				records := make([]event.Record, 0, len(events))
				for _, e := range events {
					records = append(records, event.ToRecord(e))
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case "csv":
				body, err := listing.RenderCSV(events, opts.cfg.Location())
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			case "ics":
				_, err := io.WriteString(cmd.OutOrStdout(), listing.ExportICS(events, view.Snapshot().LoadedAt, opts.cfg.Location()))
				return err
			default:
				return fmt.Errorf("unknown output format %q (use table, json, csv or ics)", output)
			}
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only events on this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&language, "language", "", "Only events in this language")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, csv or ics")
	return cmd
}

func newLanguagesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "Print the languages offered by the loaded events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := loadView(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			for _, language := range view.Languages() {
				fmt.Fprintln(cmd.OutOrStdout(), language)
			}
			return nil
		},
	}
}

// loadView loads the configured source once and wraps the snapshot in a View.
func loadView(ctx context.Context, cfg config.Application) (*listing.View, error) {
	var repo event.Repository
	if cfg.Source.Kind == "db" {
		db, dialect, err := app.OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		repo = event.NewRepository(db, dialect, cfg.Location())
	}

	clock := utils.SystemClock{}
	source, err := app.NewEventSource(ctx, cfg, repo, clock)
	if err != nil {
		return nil, err
	}
	snapshot, err := event.NewLoader(source, clock).Load(ctx)
	if err != nil {
		return nil, err
	}

	policy, err := listing.ParseStaleLanguagePolicy(cfg.Listing.StaleLanguage)
	if err != nil {
		return nil, err
	}
	return listing.NewView(snapshot, listing.Options{Location: cfg.Location(), StaleLanguage: policy}), nil
}

func applyFilters(view *listing.View, cfg config.Application, date, language string) error {
	if date != "" {
		d, err := event.ParseDate(date, cfg.Location())
		if err != nil {
			return err
		}
		view.SetSelectedDate(&d)
	}
	if language != "" {
		return view.SetSelectedLanguage(&language)
	}
	return nil
}

func writeTable(w io.Writer, events []event.Event, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tLANGUAGE\tTYPE\tLOCATION")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Date.In(loc).Format(time.DateOnly), e.Name, e.Language, e.Type, e.Location)
	}
	return tw.Flush()
}
