package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
)

func newAggregator(t *testing.T) (*Coordinator, *Aggregator, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	coord, err := Create(clk, &fakePublisher{}, "pkg-1", threeQuestions())
	require.NoError(t, err)
	require.NoError(t, coord.Start())
	return coord, NewAggregator(clk, coord), clk
}

func TestSubmitRequiresOpenQuestion(t *testing.T) {
	coord, agg, _ := newAggregator(t)

	_, err := agg.Submit("q1", "S001", "B")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = agg.Submit("nope", "S001", "B")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, coord.OpenQuestion("q1"))
	_, err = agg.Submit("q1", "S001", "B")
	assert.NoError(t, err)

	require.NoError(t, coord.CloseQuestion())
	_, err = agg.Submit("q1", "S002", "A")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestFirstAnswerWins(t *testing.T) {
	coord, agg, _ := newAggregator(t)
	require.NoError(t, coord.OpenQuestion("q1"))

	resp, err := agg.Submit("q1", "S001", "B")
	require.NoError(t, err)
	assert.Equal(t, "B", resp.AnswerLabel)

	_, err = agg.Submit("q1", "S001", "C")
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	dist, err := agg.Distribution("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, dist.Total)
	assert.Equal(t, 1, dist.Counts["B"])
	assert.Equal(t, 0, dist.Counts["C"])
}

func TestSubmitValidatesLabelAndNIM(t *testing.T) {
	coord, agg, _ := newAggregator(t)
	require.NoError(t, coord.OpenQuestion("q1"))

	_, err := agg.Submit("q1", "S001", "Z")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = agg.Submit("q1", "", "B")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAutoCloseStopsAcceptingAnswers(t *testing.T) {
	coord, agg, clk := newAggregator(t)
	require.NoError(t, coord.OpenQuestion("q1"))

	_, err := agg.Submit("q1", "S001", "A")
	require.NoError(t, err)

	// Countdown elapses with no manual close.
	clk.Advance(30 * time.Second)

	_, err = agg.Submit("q1", "S002", "B")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	dist, err := agg.Distribution("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, dist.Total)
}

func TestDistributionAccountsEveryAcceptedAnswerOnce(t *testing.T) {
	coord, agg, _ := newAggregator(t)
	require.NoError(t, coord.OpenQuestion("q1"))

	answers := map[string]string{
		"S001": "A", "S002": "B", "S003": "B",
		"S004": "C", "S005": "B", "S006": "A",
	}
	for nim, label := range answers {
		_, err := agg.Submit("q1", nim, label)
		require.NoError(t, err)
	}
	// Duplicates change nothing.
	agg.Submit("q1", "S001", "C")
	agg.Submit("q1", "S004", "A")

	dist, err := agg.Distribution("q1")
	require.NoError(t, err)
	assert.Equal(t, len(answers), dist.Total)
	assert.Equal(t, 2, dist.Counts["A"])
	assert.Equal(t, 3, dist.Counts["B"])
	assert.Equal(t, 1, dist.Counts["C"])

	sum := 0
	for _, n := range dist.Counts {
		sum += n
	}
	assert.Equal(t, dist.Total, sum)
	assert.Len(t, agg.Responses("q1"), dist.Total)
}

func TestAnswersAreKeptPerQuestion(t *testing.T) {
	coord, agg, _ := newAggregator(t)

	require.NoError(t, coord.OpenQuestion("q1"))
	_, err := agg.Submit("q1", "S001", "A")
	require.NoError(t, err)
	require.NoError(t, coord.CloseQuestion())

	require.NoError(t, coord.OpenQuestion("q2"))
	// Same student may answer the next question.
	_, err = agg.Submit("q2", "S001", "C")
	require.NoError(t, err)

	d1, err := agg.Distribution("q1")
	require.NoError(t, err)
	d2, err := agg.Distribution("q2")
	require.NoError(t, err)
	assert.Equal(t, 1, d1.Total)
	assert.Equal(t, 1, d2.Total)
	assert.Equal(t, 1, d1.Counts["A"])
	assert.Equal(t, 1, d2.Counts["C"])
}
