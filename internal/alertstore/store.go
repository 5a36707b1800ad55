package alertstore

import (
	"context"
	"sync"
	"time"
)

// Store remembers, per symbol, the bar time of the last alert sent.
// Keying is per symbol only: a later event on the same bar is suppressed whatever its direction.
type Store interface {
	// ShouldAlert reports whether no alert was recorded for symbol at barTime.
	ShouldAlert(ctx context.Context, symbol string, barTime time.Time) (bool, error)
	// Record overwrites the symbol's last alerted bar time.
	Record(ctx context.Context, symbol string, barTime time.Time) error
	// Snapshot returns a copy of all records.
	Snapshot(ctx context.Context) (map[string]time.Time, error)
}

// Memory is a process-lifetime Store; its contents are lost on restart.
type Memory struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{last: make(map[string]time.Time)}
}

func (m *Memory) ShouldAlert(_ context.Context, symbol string, barTime time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.last[symbol]
	return !ok || !prev.Equal(barTime), nil
}

func (m *Memory) Record(_ context.Context, symbol string, barTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[symbol] = barTime
	return nil
}

func (m *Memory) Snapshot(_ context.Context) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(m.last))
	for k, v := range m.last {
		out[k] = v
	}
	return out, nil
}
