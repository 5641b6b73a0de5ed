package event

import (
	"context"
	"errors"
	"sync"
)

var ErrDuplicateName = errors.New("duplicate event name")

// Source supplies the ordered event list at load time.
type Source interface {
	Load(ctx context.Context) ([]Event, error)
	Name() string
}

// StaticSource serves a fixed list.
type StaticSource struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewStaticSource(events ...Event) *StaticSource {
	return &StaticSource{events: events}
}

func (s *StaticSource) Load(ctx context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *StaticSource) Name() string {
	return "static"
}

func (s *StaticSource) Set(events []Event, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	s.err = err
}
