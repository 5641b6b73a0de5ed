package utils

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable clock for tests. Safe for use from a cron goroutine.
type MockClock struct {
	mu       sync.Mutex
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FixedNow = now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FixedNow = m.FixedNow.Add(d)
}
