package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angularhub/hub/internal/utils"
	log "github.com/sirupsen/logrus"
)

var ErrNotLoaded = errors.New("events are not loaded yet")

type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Snapshot is one loaded, immutable event list. Callers must not modify Events.
type Snapshot struct {
	Events   []Event
	LoadedAt time.Time
	Source   string
}

type Status struct {
	State      State
	Source     string
	LoadedAt   time.Time
	EventCount int
	LastError  error
}

// Loader runs a Source and keeps the latest successful snapshot.
// It starts pending; the first Load moves it to ready or failed. A failed reload
// after a successful one keeps the previous snapshot and only records the error.
type Loader struct {
	source Source
	clock  utils.Clock

	// loadMu serializes loads so an older result never replaces a newer one.
	loadMu sync.Mutex

	mu       sync.RWMutex
	state    State
	snapshot *Snapshot
	lastErr  error
}

func NewLoader(source Source, clock utils.Clock) *Loader {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Loader{
		source: source,
		clock:  clock,
		state:  StatePending,
	}
}

// Load fetches events from the source and publishes a new snapshot.
func (l *Loader) Load(ctx context.Context) (Snapshot, error) {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	events, err := l.source.Load(ctx)
	if err == nil {
		err = ValidateNames(events)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("failed to load events from %s: %w", l.source.Name(), err)
		l.lastErr = err
		if l.snapshot == nil {
			l.state = StateFailed
		}
		log.Error(err)
		return Snapshot{}, err
	}

	snapshot := &Snapshot{
		Events:   events,
		LoadedAt: l.clock.Now(),
		Source:   l.source.Name(),
	}
	l.snapshot = snapshot
	l.state = StateReady
	l.lastErr = nil
	log.Infof("Loaded %d events from %s", len(events), snapshot.Source)
	return *snapshot, nil
}

// Snapshot returns the current snapshot, ErrNotLoaded while pending, or the
// load error when the first load failed.
func (l *Loader) Snapshot() (Snapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.state {
	case StateReady:
		return *l.snapshot, nil
	case StateFailed:
		return Snapshot{}, l.lastErr
	default:
		return Snapshot{}, ErrNotLoaded
	}
}

func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	status := Status{
		State:     l.state,
		Source:    l.source.Name(),
		LastError: l.lastErr,
	}
	if l.snapshot != nil {
		status.LoadedAt = l.snapshot.LoadedAt
		status.EventCount = len(l.snapshot.Events)
	}
	return status
}
