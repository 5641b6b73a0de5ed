package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/angularhub/hub/internal/auth"
	"github.com/angularhub/hub/internal/config"
	"github.com/angularhub/hub/internal/database"
	"github.com/angularhub/hub/internal/utils"
	"github.com/angularhub/hub/pkg/event"
	"github.com/angularhub/hub/pkg/listing"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock utils.Clock

	// DB is only opened for the db source kind.
	DB              *sql.DB
	EventRepository event.Repository

	EventSource    event.Source
	EventLoader    *event.Loader
	EventRefresher *event.Refresher

	ListingHandler *listing.Handler

	AdminCredentials *auth.Credentials
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(ctx context.Context, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}
	deps.Clock = utils.SystemClock{}

	if cfg.Source.Kind == "db" {
		db, dialect, err := OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		deps.DB = db
		deps.EventRepository = event.NewRepository(db, dialect, cfg.Location())
	}

	source, err := NewEventSource(ctx, cfg, deps.EventRepository, deps.Clock)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.EventSource = source
	deps.EventLoader = event.NewLoader(source, deps.Clock)

	if cfg.Refresh.Cron != "" {
		deps.EventRefresher, err = event.NewRefresher(deps.EventLoader, cfg.Refresh.Cron)
		if err != nil {
			deps.Close()
			return nil, err
		}
	}

	policy, err := listing.ParseStaleLanguagePolicy(cfg.Listing.StaleLanguage)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.ListingHandler = listing.NewHandler(deps.EventLoader, listing.Options{
		Location:      cfg.Location(),
		StaleLanguage: policy,
	})

	deps.AdminCredentials, err = auth.LoadCredentials(cfg.Admin.AuthFile)
	if err != nil {
		deps.Close()
		return nil, err
	}

	return deps, nil
}

// Close releases the database, if one was opened.
func (d *Dependencies) Close() {
	if d.DB == nil {
		return
	}
	if err := d.DB.Close(); err != nil {
		log.Errorf("failed to close database: %v", err)
	}
	d.DB = nil
}

// OpenDatabase opens the configured database and applies all migrations.
func OpenDatabase(cfg config.Application) (*sql.DB, database.Dialect, error) {
	db, dialect, err := database.Open(cfg.Database)
	if err != nil {
		return nil, "", err
	}
	if err := database.Migrate(db, dialect); err != nil {
		db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

// NewEventSource builds the Source selected by cfg.Source.Kind. repo is used by
// the db kind only.
func NewEventSource(ctx context.Context, cfg config.Application, repo event.Repository, clock utils.Clock) (event.Source, error) {
	loc := cfg.Location()
	switch cfg.Source.Kind {
	case "file":
		return event.NewFileSource(cfg.Source.File, loc), nil
	case "ics":
		if cfg.Source.ICS.URL == "" {
			return nil, fmt.Errorf("ics source needs source.ics.url")
		}
		return event.NewICSSource(cfg.Source.ICS.URL, event.ICSOptions{
			DefaultLanguage: cfg.Source.ICS.DefaultLanguage,
			HorizonDays:     cfg.Source.ICS.HorizonDays,
			Location:        loc,
			Clock:           clock,
		}), nil
	case "google":
		g := cfg.Source.Google
		if g.CalendarId == "" {
			return nil, fmt.Errorf("google source needs source.google.calendarid")
		}
		lister, err := event.NewGoogleEventLister(ctx, g.ApiKey, g.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return event.NewGoogleSource(lister, g.CalendarId, event.GoogleOptions{
			DefaultLanguage: g.DefaultLanguage,
			HorizonDays:     g.HorizonDays,
			Location:        loc,
			Clock:           clock,
		}), nil
	case "db":
		if repo == nil {
			return nil, fmt.Errorf("db source needs an open database")
		}
		return event.NewRepositorySource(repo), nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.Source.Kind)
	}
}
