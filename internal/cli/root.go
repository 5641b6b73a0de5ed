package cli

import (
	"os"

	"github.com/angularhub/hub/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cfg        config.Application
}

// NewRootCommand builds the hub command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Community events directory",
		Long: `hub serves a directory of community events that visitors can filter by
date and language.

  serve          Run the HTTP API and frontend
  list           Print the events matching a date and language
  languages      Print the languages offered by the loaded events
  import         Copy events into the database
  migrate        Apply database migrations
  hash-password  Create the admin credentials file`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			applyLogLevel(cfg.Log.Level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to the configuration file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newLanguagesCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newHashPasswordCommand(opts))
	return cmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// applyLogLevel sets the configured level unless LOG_LEVEL already decided it.
func applyLogLevel(level string) {
	if os.Getenv("LOG_LEVEL") != "" || level == "" {
		return
	}
	logrusLevel, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid log level %q, keeping %s", level, log.GetLevel())
		return
	}
	log.SetLevel(logrusLevel)
}
