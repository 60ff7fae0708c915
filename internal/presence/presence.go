package presence

import (
	"sync"
	"time"

	"github.com/smartclass-id/classroom_core_v1/internal/clock"
)

// Status is derived, never stored: a device is online iff its last heartbeat
// is fresher than the staleness timeout.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// DefaultStalenessTimeout assumes devices heartbeat roughly every 10s.
const DefaultStalenessTimeout = 25 * time.Second

// Record is the point-in-time view of one device's liveness.
type Record struct {
	DeviceCode      string    `json:"device_code"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	BatteryLevel    int       `json:"battery_level"`
	SignalStrength  int       `json:"signal_strength"`
	Status          Status    `json:"status"`
}

// Heartbeat is one liveness report from a device.
type Heartbeat struct {
	BatteryLevel   int
	SignalStrength int
	At             time.Time
}

// Tracker keeps the latest heartbeat per device code. It accepts codes it has
// never seen before; a device can report in before anyone claims it.
type Tracker struct {
	mu      sync.Mutex
	clk     clock.Clock
	timeout time.Duration
	records map[string]Record
}

func NewTracker(clk clock.Clock) *Tracker {
	return &Tracker{
		clk:     clk,
		timeout: DefaultStalenessTimeout,
		records: make(map[string]Record),
	}
}

// SetStalenessTimeout changes the online/offline threshold.
func (t *Tracker) SetStalenessTimeout(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > 0 {
		t.timeout = d
	}
}

// OnHeartbeat replaces the stored record for code, last-write-wins by the
// heartbeat's own timestamp. A heartbeat older than the stored one is a
// reordered delivery and is ignored.
func (t *Tracker) OnHeartbeat(code string, hb Heartbeat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.records[code]; ok && hb.At.Before(prev.LastHeartbeatAt) {
		return
	}
	t.records[code] = Record{
		DeviceCode:      code,
		LastHeartbeatAt: hb.At,
		BatteryLevel:    clamp(hb.BatteryLevel),
		SignalStrength:  clamp(hb.SignalStrength),
	}
}

// Snapshot returns every tracked device with its status computed against the
// current clock. The same record always yields the same status for the same
// query time.
func (t *Tracker) Snapshot() map[string]Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	out := make(map[string]Record, len(t.records))
	for code, rec := range t.records {
		rec.Status = t.statusAt(rec.LastHeartbeatAt, now)
		out[code] = rec
	}
	return out
}

// StatusOf computes one device's status; unknown codes are offline.
func (t *Tracker) StatusOf(code string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[code]
	if !ok {
		return StatusOffline
	}
	return t.statusAt(rec.LastHeartbeatAt, t.clk.Now())
}

func (t *Tracker) statusAt(last, now time.Time) Status {
	if now.Sub(last) < t.timeout {
		return StatusOnline
	}
	return StatusOffline
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
