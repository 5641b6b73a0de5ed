package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/angularhub/hub/internal/database"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	StoreEvents(ctx context.Context, events []Event) error
	GetEvents(ctx context.Context) ([]Event, error)
	DeleteAll(ctx context.Context) error
}

type RepositoryImpl struct {
	db       *sql.DB
	tx       *sql.Tx
	dialect  database.Dialect
	location *time.Location
}

func NewRepository(db *sql.DB, dialect database.Dialect, location *time.Location) *RepositoryImpl {
	if location == nil {
		location = time.UTC
	}
	return &RepositoryImpl{db: db, dialect: dialect, location: location}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op once committed
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx, dialect: r.dialect, location: r.location}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// StoreEvents appends events after the ones already stored, keeping their order.
func (r *RepositoryImpl) StoreEvents(ctx context.Context, events []Event) error {
	var offset int
	row := r.queryRow(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM community_event`)
	if err := row.Scan(&offset); err != nil {
		err := fmt.Errorf("could not read last position: %w", err)
		log.Error(err)
		return err
	}

	query := database.Rebind(r.dialect, `INSERT INTO community_event (
                            uid,
                            position,
                            name,
                            event_date,
                            language,
                            type,
                            location,
                            url,
                            logo,
                            call_for_papers,
                            is_free,
                            is_remote
						) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	stmt, err := r.getQueryer().PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	for i, e := range events {
		uid, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("could not generate uid: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			uid.String(),
			offset+i,
			e.Name,
			e.Date.UnixMilli(),
			e.Language,
			string(e.Type),
			e.Location,
			e.URL,
			e.Logo,
			e.CallForPapersURL,
			e.IsFree,
			e.IsRemote,
		)
		if err != nil {
			err := fmt.Errorf("could not store event %q: %w", e.Name, err)
			log.Error(err)
			return err
		}
	}
	return nil
}

// GetEvents returns all stored events in insertion order.
func (r *RepositoryImpl) GetEvents(ctx context.Context) ([]Event, error) {
	query := `SELECT name, event_date, language, type, location, url, logo, call_for_papers, is_free, is_remote
              FROM community_event
              ORDER BY position`

	rows, err := r.getQueryer().QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query community events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 32)
	for rows.Next() {
		var e Event
		var dateMillis int64
		var eventType string
		err := rows.Scan(&e.Name, &dateMillis, &e.Language, &eventType, &e.Location, &e.URL, &e.Logo, &e.CallForPapersURL, &e.IsFree, &e.IsRemote)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		e.Date = time.UnixMilli(dateMillis).In(r.location)
		e.Type = ParseType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate community events: %w", err)
	}
	return events, nil
}

func (r *RepositoryImpl) DeleteAll(ctx context.Context) error {
	_, err := r.getQueryer().ExecContext(ctx, `DELETE FROM community_event`)
	if err != nil {
		err := fmt.Errorf("could not delete community events: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	query = database.Rebind(r.dialect, query)
	if r.tx != nil {
		return r.tx.QueryRowContext(ctx, query, args...)
	}
	return r.db.QueryRowContext(ctx, query, args...)
}

// ReplaceAll swaps the stored list for events in a single transaction.
func ReplaceAll(ctx context.Context, repo Repository, events []Event) error {
	if err := ValidateNames(events); err != nil {
		return err
	}
	return repo.WithTransaction(ctx, func(tx Repository) error {
		if err := tx.DeleteAll(ctx); err != nil {
			return err
		}
		return tx.StoreEvents(ctx, events)
	})
}

// RepositorySource exposes the stored events as a Source.
type RepositorySource struct {
	repo Repository
}

func NewRepositorySource(repo Repository) *RepositorySource {
	return &RepositorySource{repo: repo}
}

func (s *RepositorySource) Name() string {
	return "db"
}

func (s *RepositorySource) Load(ctx context.Context) ([]Event, error) {
	return s.repo.GetEvents(ctx)
}
