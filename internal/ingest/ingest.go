// Package ingest wires the topic bridge's inbound traffic to the trackers.
// Every handler parses its payload fail-soft: a malformed message is logged
// and dropped so one bad device can never stall fan-out to the others.
package ingest

import (
	"encoding/json"
	"log"
	"time"

	"github.com/smartclass-id/classroom_core_v1/internal/bridge"
	"github.com/smartclass-id/classroom_core_v1/internal/presence"
	"github.com/smartclass-id/classroom_core_v1/internal/registry"
	"github.com/smartclass-id/classroom_core_v1/internal/session"
)

// Notifier pushes live updates to dashboard clients. Implemented by the
// websocket hub; nil disables pushes.
type Notifier interface {
	Notify(event string, payload interface{})
}

type registerPayload struct {
	DeviceCode string    `json:"device_code"`
	StudentNIM string    `json:"student_nim"`
	Timestamp  time.Time `json:"timestamp"`
}

type heartbeatPayload struct {
	DeviceCode     string    `json:"device_code"`
	Status         string    `json:"status"`
	BatteryLevel   int       `json:"battery_level"`
	SignalStrength int       `json:"signal_strength"`
	Timestamp      time.Time `json:"timestamp"`
}

type answerPayload struct {
	DeviceCode string    `json:"device_code"`
	StudentNIM string    `json:"student_nim"`
	QuizID     string    `json:"quiz_id"`
	QuestionID string    `json:"question_id"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

type answerConfirm struct {
	DeviceCode string    `json:"device_code"`
	QuizID     string    `json:"quiz_id"`
	QuestionID string    `json:"question_id"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Ingest routes inbound broker messages to the registry, presence tracker and
// the active session's aggregator, and answers devices on the confirm topic.
type Ingest struct {
	br       *bridge.Bridge
	reg      *registry.Registry
	pres     *presence.Tracker
	sessions *session.Manager
	notifier Notifier
	unsubs   []bridge.Unsubscribe
}

func New(br *bridge.Bridge, reg *registry.Registry, pres *presence.Tracker, sessions *session.Manager, notifier Notifier) *Ingest {
	return &Ingest{br: br, reg: reg, pres: pres, sessions: sessions, notifier: notifier}
}

// Start subscribes the inbound topics. Call Stop to detach.
func (i *Ingest) Start() {
	i.unsubs = append(i.unsubs,
		i.br.Subscribe(bridge.TopicDeviceRegister, i.handleRegister),
		i.br.Subscribe(bridge.TopicDeviceHeartbeat, i.handleHeartbeat),
		i.br.Subscribe(bridge.TopicAnswer, i.handleAnswer),
	)
}

func (i *Ingest) Stop() {
	for _, u := range i.unsubs {
		u()
	}
	i.unsubs = nil
}

func (i *Ingest) handleRegister(topic string, payload []byte) {
	var msg registerPayload
	if err := json.Unmarshal(payload, &msg); err != nil || msg.DeviceCode == "" || msg.StudentNIM == "" {
		log.Printf("ingest: dropping malformed %s payload: %v", topic, err)
		return
	}
	dev, err := i.reg.Assign(msg.StudentNIM, msg.DeviceCode)
	if err != nil {
		log.Printf("ingest: register %s for %s refused: %v", msg.DeviceCode, msg.StudentNIM, err)
		return
	}
	i.notify("device_assigned", dev)
}

func (i *Ingest) handleHeartbeat(topic string, payload []byte) {
	var msg heartbeatPayload
	if err := json.Unmarshal(payload, &msg); err != nil || msg.DeviceCode == "" {
		log.Printf("ingest: dropping malformed %s payload: %v", topic, err)
		return
	}
	at := msg.Timestamp
	if at.IsZero() {
		// Devices without a synced clock omit the timestamp.
		at = time.Now()
	}
	i.pres.OnHeartbeat(msg.DeviceCode, presence.Heartbeat{
		BatteryLevel:   msg.BatteryLevel,
		SignalStrength: msg.SignalStrength,
		At:             at,
	})
	i.notify("device_heartbeat", msg)
}

func (i *Ingest) handleAnswer(topic string, payload []byte) {
	var msg answerPayload
	if err := json.Unmarshal(payload, &msg); err != nil || msg.QuestionID == "" || msg.StudentNIM == "" {
		log.Printf("ingest: dropping malformed %s payload: %v", topic, err)
		return
	}

	status := "accepted"
	if err := i.submit(msg); err != nil {
		log.Printf("ingest: answer from %s rejected: %v", msg.StudentNIM, err)
		status = "rejected"
	} else {
		i.notify("answer_accepted", msg)
	}

	confirm := answerConfirm{
		DeviceCode: msg.DeviceCode,
		QuizID:     msg.QuizID,
		QuestionID: msg.QuestionID,
		Status:     status,
		Timestamp:  time.Now(),
	}
	if err := i.br.Publish(bridge.TopicAnswerConfirm, confirm); err != nil {
		log.Printf("ingest: confirm to %s failed: %v", msg.DeviceCode, err)
	}
}

func (i *Ingest) submit(msg answerPayload) error {
	coord, agg, ok := i.sessions.Active()
	if !ok {
		return errNoSession
	}
	if msg.QuizID != "" && msg.QuizID != coord.Code() {
		return errWrongSession
	}
	// A claimed device may only answer for its own student.
	if owner, claimed := i.reg.LookupOwner(msg.DeviceCode); claimed && owner != msg.StudentNIM {
		return errDeviceOwner
	}
	_, err := agg.Submit(msg.QuestionID, msg.StudentNIM, msg.Answer)
	return err
}

func (i *Ingest) notify(event string, payload interface{}) {
	if i.notifier != nil {
		i.notifier.Notify(event, payload)
	}
}
