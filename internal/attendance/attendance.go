package attendance

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
	"github.com/smartclass-id/classroom_core_v1/internal/store"
)

// Status is the per-student attendance bucket. NotMarked is the implicit
// state of every roster member nobody has marked yet.
type Status string

const (
	StatusNotMarked  Status = "not_marked"
	StatusHadir      Status = "hadir"
	StatusSakit      Status = "sakit"
	StatusIzin       Status = "izin"
	StatusDispensasi Status = "dispensasi"
	StatusAlpha      Status = "alpha"
)

// Source identifies who made the most recent write.
type Source string

const (
	SourceManual      Source = "manual"
	SourceRecognition Source = "face_recognition"
)

var validStatus = map[Status]struct{}{
	StatusHadir:      {},
	StatusSakit:      {},
	StatusIzin:       {},
	StatusDispensasi: {},
	StatusAlpha:      {},
}

// Record is the authoritative per-student attendance state. One record per
// NIM; writes overwrite in place, never duplicate.
type Record struct {
	NIM        string    `json:"nim"`
	Status     Status    `json:"status"`
	MarkedBy   Source    `json:"marked_by,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const recordPrefix = "attendance/record/"

// Tracker merges the two attendance sources, manual entry and the
// face-recognition callback, into one record per student. Precedence is
// last-write-wins by call order regardless of source.
type Tracker struct {
	mu      sync.Mutex
	clk     clock.Clock
	port    store.Port
	roster  map[string]struct{}
	records map[string]Record
}

// NewTracker builds a tracker over the class roster. Marks for NIMs outside
// the roster are refused; Stats partitions exactly the roster.
func NewTracker(clk clock.Clock, port store.Port, roster []string) (*Tracker, error) {
	t := &Tracker{
		clk:     clk,
		port:    port,
		roster:  make(map[string]struct{}, len(roster)),
		records: make(map[string]Record),
	}
	for _, nim := range roster {
		t.roster[nim] = struct{}{}
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) load() error {
	entries, err := t.port.List(recordPrefix)
	if err != nil {
		return fmt.Errorf("load attendance records: %w", err)
	}
	for key, raw := range entries {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode attendance record %s: %w", key, err)
		}
		if _, known := t.roster[rec.NIM]; known {
			t.records[rec.NIM] = rec
		}
	}
	return nil
}

// MarkManual records an operator-entered status for nim.
func (t *Tracker) MarkManual(nim string, status Status) (Record, error) {
	return t.mark(nim, status, SourceManual, nil)
}

// MarkFromRecognition records a face-recognition detection. Confidence is
// kept for audit; it never outranks a manual entry, later writes simply win.
func (t *Tracker) MarkFromRecognition(nim string, status Status, confidence float64) (Record, error) {
	return t.mark(nim, status, SourceRecognition, &confidence)
}

func (t *Tracker) mark(nim string, status Status, src Source, confidence *float64) (Record, error) {
	if _, ok := validStatus[status]; !ok {
		return Record{}, fmt.Errorf("attendance status %q: %w", status, apperrors.ErrValidation)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, known := t.roster[nim]; !known {
		return Record{}, fmt.Errorf("nim %s is not on the roster: %w", nim, apperrors.ErrNotFound)
	}
	rec := Record{
		NIM:        nim,
		Status:     status,
		MarkedBy:   src,
		Confidence: confidence,
		UpdatedAt:  t.clk.Now(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if err := t.port.Set(recordPrefix+nim, raw); err != nil {
		return Record{}, fmt.Errorf("persist attendance for %s: %w", nim, err)
	}
	t.records[nim] = rec
	return rec, nil
}

// AddToRoster admits newly enrolled students so Stats keeps partitioning the
// full class.
func (t *Tracker) AddToRoster(nims ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, nim := range nims {
		t.roster[nim] = struct{}{}
	}
}

// RemoveFromRoster drops a student and any record held for them.
func (t *Tracker) RemoveFromRoster(nim string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.roster, nim)
	delete(t.records, nim)
}

// StatusOf returns the record for nim, a not_marked placeholder if nobody
// marked them yet.
func (t *Tracker) StatusOf(nim string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, known := t.roster[nim]; !known {
		return Record{}, fmt.Errorf("nim %s is not on the roster: %w", nim, apperrors.ErrNotFound)
	}
	if rec, ok := t.records[nim]; ok {
		return rec, nil
	}
	return Record{NIM: nim, Status: StatusNotMarked}, nil
}

// Stats buckets the whole roster by status. Every roster member lands in
// exactly one bucket, unmarked students under not_marked, so the counts sum
// to the roster size.
func (t *Tracker) Stats() map[Status]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := map[Status]int{
		StatusNotMarked:  0,
		StatusHadir:      0,
		StatusSakit:      0,
		StatusIzin:       0,
		StatusDispensasi: 0,
		StatusAlpha:      0,
	}
	for nim := range t.roster {
		if rec, ok := t.records[nim]; ok {
			stats[rec.Status]++
		} else {
			stats[StatusNotMarked]++
		}
	}
	return stats
}

// Snapshot lists one record per roster member, marked or not.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, 0, len(t.roster))
	for nim := range t.roster {
		if rec, ok := t.records[nim]; ok {
			out = append(out, rec)
		} else {
			out = append(out, Record{NIM: nim, Status: StatusNotMarked})
		}
	}
	return out
}
