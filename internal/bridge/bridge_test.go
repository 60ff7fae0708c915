package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
)

// testBroker is a minimal broker endpoint: it hands the server side of each
// accepted connection to the test.
func testBroker(t *testing.T) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, srv *httptest.Server, conns chan *websocket.Conn) (*Bridge, *websocket.Conn) {
	t.Helper()
	b := New()
	require.NoError(t, b.Connect(context.Background(), wsURL(srv)))
	t.Cleanup(b.Disconnect)
	select {
	case conn := <-conns:
		return b, conn
	case <-time.After(2 * time.Second):
		t.Fatal("broker never accepted the connection")
		return nil, nil
	}
}

type received struct {
	topic   string
	payload string
}

func collector(buf int) (Handler, chan received) {
	ch := make(chan received, buf)
	return func(topic string, payload []byte) {
		ch <- received{topic: topic, payload: string(payload)}
	}, ch
}

func recv(t *testing.T, ch chan received) received {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return received{}
	}
}

func TestPublishWhileDisconnected(t *testing.T) {
	b := New()
	err := b.Publish(TopicAnswerConfirm, map[string]string{"status": "accepted"})
	assert.ErrorIs(t, err, apperrors.ErrConnection)
}

func TestFanOutDeliversToEverySubscriberInOrder(t *testing.T) {
	srv, conns := testBroker(t)
	b, server := connect(t, srv, conns)

	h1, ch1 := collector(8)
	h2, ch2 := collector(8)
	h3, ch3 := collector(8)
	b.Subscribe(TopicDeviceHeartbeat, h1)
	b.Subscribe(TopicDeviceHeartbeat, h2)
	b.Subscribe(TopicAnswer, h3)

	for _, code := range []string{"A1B2", "C3D4", "E5F6"} {
		require.NoError(t, server.WriteJSON(envelope{
			Topic:   TopicDeviceHeartbeat,
			Payload: json.RawMessage(`{"device_code":"` + code + `"}`),
		}))
	}

	for _, ch := range []chan received{ch1, ch2} {
		for _, code := range []string{"A1B2", "C3D4", "E5F6"} {
			msg := recv(t, ch)
			assert.Equal(t, TopicDeviceHeartbeat, msg.topic)
			assert.Contains(t, msg.payload, code)
		}
	}
	select {
	case msg := <-ch3:
		t.Fatalf("answer subscriber got a heartbeat: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeRemovesByHandleIdentity(t *testing.T) {
	srv, conns := testBroker(t)
	b, server := connect(t, srv, conns)

	// The same handler twice: removing one handle must keep the other.
	h, ch := collector(8)
	unsub1 := b.Subscribe(TopicDeviceRegister, h)
	b.Subscribe(TopicDeviceRegister, h)

	unsub1()
	unsub1() // safe to call again

	require.NoError(t, server.WriteJSON(envelope{
		Topic:   TopicDeviceRegister,
		Payload: json.RawMessage(`{"device_code":"A1B2"}`),
	}))

	recv(t, ch)
	select {
	case msg := <-ch:
		t.Fatalf("unsubscribed handler still delivered: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	srv, conns := testBroker(t)
	b, server := connect(t, srv, conns)

	h, ch := collector(8)
	b.Subscribe(TopicAnswer, h)

	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte("not json at all")))
	require.NoError(t, server.WriteJSON(envelope{
		Topic:   TopicAnswer,
		Payload: json.RawMessage(`{"answer":"B"}`),
	}))

	msg := recv(t, ch)
	assert.Equal(t, TopicAnswer, msg.topic)
	assert.Contains(t, msg.payload, "B")
}

func TestPublishReachesBroker(t *testing.T) {
	srv, conns := testBroker(t)
	b, server := connect(t, srv, conns)

	require.NoError(t, b.Publish(TopicQuestion, map[string]interface{}{
		"question_id": "q1",
		"order":       1,
	}))

	var env envelope
	require.NoError(t, server.ReadJSON(&env))
	assert.Equal(t, TopicQuestion, env.Topic)
	assert.Contains(t, string(env.Payload), "q1")
}

func TestTransportErrorNotifiesStatusListeners(t *testing.T) {
	srv, conns := testBroker(t)
	b, server := connect(t, srv, conns)

	states := make(chan State, 4)
	b.SubscribeStatus(func(s State) { states <- s })

	server.Close()

	select {
	case s := <-states:
		assert.Equal(t, StateDisconnected, s)
	case <-time.After(2 * time.Second):
		t.Fatal("status listener never heard about the drop")
	}
	assert.False(t, b.Connected())

	err := b.Publish(TopicAnswerConfirm, map[string]string{"status": "accepted"})
	assert.ErrorIs(t, err, apperrors.ErrConnection)
}

func TestReconnectAfterDropResumesSubscriptions(t *testing.T) {
	srv, conns := testBroker(t)
	b, server := connect(t, srv, conns)

	h, ch := collector(8)
	b.Subscribe(TopicDeviceHeartbeat, h)

	server.Close()
	require.Eventually(t, func() bool { return !b.Connected() }, 2*time.Second, 10*time.Millisecond)

	// The caller decides to reconnect; the subscription is still live.
	require.NoError(t, b.Connect(context.Background(), wsURL(srv)))
	server2 := <-conns
	require.NoError(t, server2.WriteJSON(envelope{
		Topic:   TopicDeviceHeartbeat,
		Payload: json.RawMessage(`{"device_code":"A1B2"}`),
	}))

	msg := recv(t, ch)
	assert.Equal(t, TopicDeviceHeartbeat, msg.topic)
}

func TestDisconnectIsIdempotentAndClearsSubscriptions(t *testing.T) {
	srv, conns := testBroker(t)
	b, _ := connect(t, srv, conns)

	h, ch := collector(8)
	b.Subscribe(TopicAnswer, h)

	b.Disconnect()
	b.Disconnect()
	assert.False(t, b.Connected())

	// Reconnect: the explicit disconnect dropped the old subscription.
	require.NoError(t, b.Connect(context.Background(), wsURL(srv)))
	server2 := <-conns
	require.NoError(t, server2.WriteJSON(envelope{
		Topic:   TopicAnswer,
		Payload: json.RawMessage(`{"answer":"B"}`),
	}))

	select {
	case msg := <-ch:
		t.Fatalf("cleared subscription still delivered: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}
