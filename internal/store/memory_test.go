package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set("device/assign/A1B2", []byte(`{"owner":"S001"}`)))
	v, ok, err := m.Get("device/assign/A1B2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"owner":"S001"}`, string(v))

	require.NoError(t, m.Delete("device/assign/A1B2"))
	_, ok, err = m.Get("device/assign/A1B2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting twice is fine.
	require.NoError(t, m.Delete("device/assign/A1B2"))
}

func TestMemoryListByPrefix(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("attendance/record/1", []byte("a")))
	require.NoError(t, m.Set("attendance/record/2", []byte("b")))
	require.NoError(t, m.Set("device/assign/A1B2", []byte("c")))

	got, err := m.List("attendance/record/")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("a"), got["attendance/record/1"])
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	val := []byte("original")
	require.NoError(t, m.Set("k", val))
	val[0] = 'X'

	got, ok, err := m.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", string(got))

	// Mutating the returned slice must not poison the store.
	got[0] = 'Y'
	again, _, _ := m.Get("k")
	assert.Equal(t, "original", string(again))
}
