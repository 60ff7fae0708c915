package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
	"github.com/smartclass-id/classroom_core_v1/internal/store"
)

var t0 = time.Unix(1700000000, 0)

var roster = []string{"0642001", "0642002", "0642003", "0642004"}

func newTestTracker(t *testing.T) (*Tracker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	tr, err := NewTracker(clk, store.NewMemory(), roster)
	require.NoError(t, err)
	return tr, clk
}

func TestLastWriteWinsAcrossSources(t *testing.T) {
	tr, clk := newTestTracker(t)

	_, err := tr.MarkManual("0642001", StatusHadir)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	rec, err := tr.MarkFromRecognition("0642001", StatusAlpha, 0.9)
	require.NoError(t, err)
	assert.Equal(t, StatusAlpha, rec.Status)
	assert.Equal(t, SourceRecognition, rec.MarkedBy)
	require.NotNil(t, rec.Confidence)
	assert.Equal(t, 0.9, *rec.Confidence)

	// And back: a later manual correction overrides recognition.
	clk.Advance(time.Minute)
	rec, err = tr.MarkManual("0642001", StatusIzin)
	require.NoError(t, err)
	assert.Equal(t, StatusIzin, rec.Status)
	assert.Equal(t, SourceManual, rec.MarkedBy)
	assert.Nil(t, rec.Confidence)

	got, err := tr.StatusOf("0642001")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestMarkValidation(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.MarkManual("0642001", Status("bolos"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// not_marked is the implicit default, never written explicitly.
	_, err = tr.MarkManual("0642001", StatusNotMarked)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = tr.MarkManual("9999999", StatusHadir)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = tr.StatusOf("9999999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUnmarkedStudentReadsNotMarked(t *testing.T) {
	tr, _ := newTestTracker(t)
	rec, err := tr.StatusOf("0642002")
	require.NoError(t, err)
	assert.Equal(t, StatusNotMarked, rec.Status)
	assert.Empty(t, rec.MarkedBy)
}

func TestStatsPartitionRoster(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.MarkManual("0642001", StatusHadir)
	require.NoError(t, err)
	_, err = tr.MarkFromRecognition("0642002", StatusHadir, 0.97)
	require.NoError(t, err)
	_, err = tr.MarkManual("0642003", StatusSakit)
	require.NoError(t, err)
	// Overwrite in place, no duplicate bucket entry.
	_, err = tr.MarkManual("0642003", StatusDispensasi)
	require.NoError(t, err)

	stats := tr.Stats()
	assert.Equal(t, 2, stats[StatusHadir])
	assert.Equal(t, 0, stats[StatusSakit])
	assert.Equal(t, 1, stats[StatusDispensasi])
	assert.Equal(t, 1, stats[StatusNotMarked])

	total := 0
	for _, n := range stats {
		total += n
	}
	assert.Equal(t, len(roster), total)

	assert.Len(t, tr.Snapshot(), len(roster))
}

func TestRecordsSurviveRestart(t *testing.T) {
	port := store.NewMemory()
	clk := clock.NewFake(t0)

	tr, err := NewTracker(clk, port, roster)
	require.NoError(t, err)
	_, err = tr.MarkFromRecognition("0642004", StatusHadir, 0.88)
	require.NoError(t, err)

	reloaded, err := NewTracker(clk, port, roster)
	require.NoError(t, err)
	rec, err := reloaded.StatusOf("0642004")
	require.NoError(t, err)
	assert.Equal(t, StatusHadir, rec.Status)
	assert.Equal(t, SourceRecognition, rec.MarkedBy)
}
