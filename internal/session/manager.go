package session

import (
	"fmt"
	"sync"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
)

// Manager holds the classroom's active session. One session runs at a time;
// a new one can be created only after the previous ended.
type Manager struct {
	mu      sync.Mutex
	clk     clock.Clock
	pub     Publisher
	current *Coordinator
	agg     *Aggregator
}

func NewManager(clk clock.Clock, pub Publisher) *Manager {
	return &Manager{clk: clk, pub: pub}
}

// Create builds a new draft session and makes it the active one.
func (m *Manager) Create(packageID string, specs []QuestionSpec) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Status() != StatusEnded {
		return nil, fmt.Errorf("session %s is still %s: %w", m.current.Code(), m.current.Status(), apperrors.ErrConflict)
	}
	coord, err := Create(m.clk, m.pub, packageID, specs)
	if err != nil {
		return nil, err
	}
	m.current = coord
	m.agg = NewAggregator(m.clk, coord)
	return coord, nil
}

// Active returns the current session's coordinator and aggregator.
func (m *Manager) Active() (*Coordinator, *Aggregator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, nil, false
	}
	return m.current, m.agg, true
}
