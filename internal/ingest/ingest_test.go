package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass-id/classroom_core_v1/internal/bridge"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
	"github.com/smartclass-id/classroom_core_v1/internal/presence"
	"github.com/smartclass-id/classroom_core_v1/internal/registry"
	"github.com/smartclass-id/classroom_core_v1/internal/session"
	"github.com/smartclass-id/classroom_core_v1/internal/store"
)

var t0 = time.Unix(1700000000, 0)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) has(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e == event {
			return true
		}
	}
	return false
}

type fixture struct {
	ing      *Ingest
	br       *bridge.Bridge
	reg      *registry.Registry
	pres     *presence.Tracker
	sessions *session.Manager
	notifier *fakeNotifier
	clk      *clock.Fake
	server   *websocket.Conn
}

// newFixture wires an ingest over a real bridge connected to an in-process
// broker so confirm publishes can be observed server-side.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	br := bridge.New()
	require.NoError(t, br.Connect(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")))
	t.Cleanup(br.Disconnect)
	server := <-conns

	clk := clock.NewFake(t0)
	reg, err := registry.New(registry.NewStaticInventory("A1B2", "C3D4"), store.NewMemory(), clk)
	require.NoError(t, err)
	pres := presence.NewTracker(clk)
	sessions := session.NewManager(clk, br)
	notifier := &fakeNotifier{}

	ing := New(br, reg, pres, sessions, notifier)
	ing.Start()
	t.Cleanup(ing.Stop)

	return &fixture{
		ing: ing, br: br, reg: reg, pres: pres,
		sessions: sessions, notifier: notifier, clk: clk, server: server,
	}
}

func (f *fixture) startSession(t *testing.T) *session.Coordinator {
	t.Helper()
	opts := []session.Option{{Label: "A"}, {Label: "B"}, {Label: "C"}}
	coord, err := f.sessions.Create("pkg-1", []session.QuestionSpec{
		{ID: "q1", Order: 1, Body: "first?", Options: opts, CorrectOptionLabel: "B", TimeLimitSeconds: 30},
	})
	require.NoError(t, err)
	require.NoError(t, coord.Start())
	require.NoError(t, coord.OpenQuestion("q1"))
	return coord
}

type frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// readConfirm skips the session broadcasts and returns the next
// answer-confirm frame.
func (f *fixture) readConfirm(t *testing.T) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.server.SetReadDeadline(deadline)
		var fr frame
		require.NoError(t, f.server.ReadJSON(&fr))
		if fr.Topic != bridge.TopicAnswerConfirm {
			continue
		}
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(fr.Payload, &payload))
		return payload
	}
}

func TestMalformedPayloadsAreDropped(t *testing.T) {
	f := newFixture(t)

	f.ing.handleRegister(bridge.TopicDeviceRegister, []byte("{broken"))
	f.ing.handleRegister(bridge.TopicDeviceRegister, []byte(`{"device_code":""}`))
	f.ing.handleHeartbeat(bridge.TopicDeviceHeartbeat, []byte("not json"))
	f.ing.handleAnswer(bridge.TopicAnswer, []byte(`[]`))

	_, ok := f.reg.LookupOwner("A1B2")
	assert.False(t, ok)
	assert.Empty(t, f.pres.Snapshot())
	assert.Empty(t, f.notifier.events)
}

func TestRegisterBindsDevice(t *testing.T) {
	f := newFixture(t)

	f.ing.handleRegister(bridge.TopicDeviceRegister, []byte(`{"device_code":"A1B2","student_nim":"0642001"}`))

	owner, ok := f.reg.LookupOwner("A1B2")
	require.True(t, ok)
	assert.Equal(t, "0642001", owner)
	assert.True(t, f.notifier.has("device_assigned"))

	// A second claim for the same code is refused and not broadcast twice.
	f.ing.handleRegister(bridge.TopicDeviceRegister, []byte(`{"device_code":"A1B2","student_nim":"0642002"}`))
	owner, _ = f.reg.LookupOwner("A1B2")
	assert.Equal(t, "0642001", owner)
}

func TestHeartbeatFeedsPresence(t *testing.T) {
	f := newFixture(t)

	f.ing.handleHeartbeat(bridge.TopicDeviceHeartbeat,
		[]byte(`{"device_code":"C3D4","status":"ok","battery_level":64,"signal_strength":80,"timestamp":"2023-11-14T22:13:20Z"}`))

	snap := f.pres.Snapshot()
	require.Contains(t, snap, "C3D4")
	assert.Equal(t, 64, snap["C3D4"].BatteryLevel)
	assert.Equal(t, 80, snap["C3D4"].SignalStrength)
	assert.True(t, f.notifier.has("device_heartbeat"))
}

func TestAnswerAcceptedAndConfirmed(t *testing.T) {
	f := newFixture(t)
	coord := f.startSession(t)

	f.ing.handleAnswer(bridge.TopicAnswer, []byte(
		`{"device_code":"A1B2","student_nim":"0642001","quiz_id":"`+coord.Code()+`","question_id":"q1","answer":"B"}`))

	confirm := f.readConfirm(t)
	assert.Equal(t, "accepted", confirm["status"])
	assert.Equal(t, "A1B2", confirm["device_code"])
	assert.Equal(t, "q1", confirm["question_id"])
	assert.True(t, f.notifier.has("answer_accepted"))

	_, agg, ok := f.sessions.Active()
	require.True(t, ok)
	dist, err := agg.Distribution("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, dist.Total)
	assert.Equal(t, 1, dist.Counts["B"])
}

func TestAnswerRejectedWithoutSession(t *testing.T) {
	f := newFixture(t)

	f.ing.handleAnswer(bridge.TopicAnswer,
		[]byte(`{"device_code":"A1B2","student_nim":"0642001","question_id":"q1","answer":"B"}`))

	confirm := f.readConfirm(t)
	assert.Equal(t, "rejected", confirm["status"])
}

func TestAnswerFromStolenDeviceRejected(t *testing.T) {
	f := newFixture(t)
	coord := f.startSession(t)

	f.ing.handleRegister(bridge.TopicDeviceRegister, []byte(`{"device_code":"A1B2","student_nim":"0642001"}`))

	// Someone else answering through 0642001's clicker.
	f.ing.handleAnswer(bridge.TopicAnswer, []byte(
		`{"device_code":"A1B2","student_nim":"0642002","quiz_id":"`+coord.Code()+`","question_id":"q1","answer":"B"}`))

	confirm := f.readConfirm(t)
	assert.Equal(t, "rejected", confirm["status"])

	_, agg, ok := f.sessions.Active()
	require.True(t, ok)
	dist, err := agg.Distribution("q1")
	require.NoError(t, err)
	assert.Equal(t, 0, dist.Total)
}

func TestDuplicateAnswerRejectedButConfirmed(t *testing.T) {
	f := newFixture(t)
	coord := f.startSession(t)

	payload := `{"device_code":"A1B2","student_nim":"0642001","quiz_id":"` + coord.Code() + `","question_id":"q1","answer":"B"}`
	f.ing.handleAnswer(bridge.TopicAnswer, []byte(payload))
	f.ing.handleAnswer(bridge.TopicAnswer, []byte(
		`{"device_code":"A1B2","student_nim":"0642001","quiz_id":"`+coord.Code()+`","question_id":"q1","answer":"C"}`))

	first := f.readConfirm(t)
	second := f.readConfirm(t)
	assert.Equal(t, "accepted", first["status"])
	assert.Equal(t, "rejected", second["status"])

	_, agg, ok := f.sessions.Active()
	require.True(t, ok)
	dist, err := agg.Distribution("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, dist.Total)
	assert.Equal(t, 1, dist.Counts["B"])
	assert.Equal(t, 0, dist.Counts["C"])
}
