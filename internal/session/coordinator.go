package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/bridge"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
	"github.com/smartclass-id/classroom_core_v1/internal/utils"
)

// Status is the session life-cycle state. Ended is terminal.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

// Publisher is the outbound half of the topic bridge the coordinator needs.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// Coordinator drives one quiz/poll session question by question. Every
// mutation happens under one mutex, including the countdown's auto-close, so
// transitions never interleave.
type Coordinator struct {
	mu  sync.Mutex
	clk clock.Clock
	pub Publisher

	id        string
	code      string
	packageID string
	status    Status
	questions []*Question
	byID      map[string]*Question
	cursor    int
	current   *Question
	startedAt *time.Time
	endedAt   *time.Time

	timer    clock.Timer
	timerGen int
}

// Create builds a draft session from the package's question specs. Orders
// must be the exact 1..n sequence; option labels must be unique within each
// question.
func Create(clk clock.Clock, pub Publisher, packageID string, specs []QuestionSpec) (*Coordinator, error) {
	if packageID == "" {
		return nil, fmt.Errorf("package id is required: %w", apperrors.ErrValidation)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("session needs at least one question: %w", apperrors.ErrValidation)
	}

	questions := make([]*Question, len(specs))
	byID := make(map[string]*Question, len(specs))
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if spec.Order < 1 || spec.Order > len(specs) {
			return nil, fmt.Errorf("question order %d outside 1..%d: %w", spec.Order, len(specs), apperrors.ErrValidation)
		}
		if questions[spec.Order-1] != nil {
			return nil, fmt.Errorf("question order %d repeats: %w", spec.Order, apperrors.ErrValidation)
		}
		q := &Question{
			ID:                 spec.ID,
			Order:              spec.Order,
			Body:               spec.Body,
			Options:            spec.Options,
			CorrectOptionLabel: spec.CorrectOptionLabel,
			TimeLimitSeconds:   spec.TimeLimitSeconds,
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("question id %s repeats: %w", q.ID, apperrors.ErrValidation)
		}
		questions[spec.Order-1] = q
		byID[q.ID] = q
	}

	code, err := utils.GenerateCode(6)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		clk:       clk,
		pub:       pub,
		id:        uuid.NewString(),
		code:      code,
		packageID: packageID,
		status:    StatusDraft,
		questions: questions,
		byID:      byID,
		cursor:    -1, // nothing selected until Next or OpenQuestion
	}, nil
}

func (c *Coordinator) ID() string        { return c.id }
func (c *Coordinator) Code() string      { return c.code }
func (c *Coordinator) PackageID() string { return c.packageID }

// Start moves the session from draft to running and announces it to devices.
// It deliberately opens no question; broadcasting the first question is a
// separate operator action.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusDraft {
		return fmt.Errorf("start from %s: %w", c.status, apperrors.ErrConflict)
	}
	now := c.clk.Now()
	c.status = StatusRunning
	c.startedAt = &now
	c.publish(bridge.TopicSessionStart, SessionStartEvent{
		SessionCode: c.code,
		PackageID:   c.packageID,
		Timestamp:   now,
	})
	return nil
}

// OpenQuestion broadcasts the question and starts accepting answers for it.
// Only one question may be open at a time, and a question can be opened only
// once.
func (c *Coordinator) OpenQuestion(questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusRunning {
		return fmt.Errorf("open question while %s: %w", c.status, apperrors.ErrConflict)
	}
	q, ok := c.byID[questionID]
	if !ok {
		return fmt.Errorf("question %s: %w", questionID, apperrors.ErrNotFound)
	}
	if c.current != nil && c.current.State() == QuestionOpen {
		return fmt.Errorf("question %s is still open: %w", c.current.ID, apperrors.ErrConflict)
	}
	if q.State() != QuestionPending {
		return fmt.Errorf("question %s already %s: %w", questionID, q.State(), apperrors.ErrConflict)
	}

	now := c.clk.Now()
	q.OpenedAt = &now
	c.current = q
	c.cursor = q.Order - 1

	c.timerGen++
	gen := c.timerGen
	c.timer = c.clk.AfterFunc(time.Duration(q.TimeLimitSeconds)*time.Second, func() {
		c.autoClose(gen)
	})

	options := make([]Option, len(q.Options))
	copy(options, q.Options)
	c.publish(bridge.TopicQuestion, QuestionEvent{
		SessionCode: c.code,
		QuestionID:  q.ID,
		Order:       q.Order,
		Question:    q.Body,
		Options:     options,
		TimeLimit:   q.TimeLimitSeconds,
		Timestamp:   now,
	})
	return nil
}

// CloseQuestion stops accepting answers for the open question and cancels its
// countdown.
func (c *Coordinator) CloseQuestion() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.State() != QuestionOpen {
		return fmt.Errorf("no question is open: %w", apperrors.ErrConflict)
	}
	c.closeCurrentLocked()
	return nil
}

// autoClose is the countdown callback. The generation guard makes a cancelled
// or superseded timer a no-op, so a manual close followed by a late firing
// can never close twice.
func (c *Coordinator) autoClose(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.timerGen {
		return
	}
	if c.current == nil || c.current.State() != QuestionOpen {
		return
	}
	c.closeCurrentLocked()
}

func (c *Coordinator) closeCurrentLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	now := c.clk.Now()
	c.current.ClosedAt = &now
	c.publish(bridge.TopicQuestionClose, QuestionCloseEvent{
		SessionCode: c.code,
		QuestionID:  c.current.ID,
		Timestamp:   now,
	})
}

// RevealAnswer discloses the correct option of the closed question. Revealing
// while the question still accepts answers is refused; revealing twice keeps
// the first RevealedAt.
func (c *Coordinator) RevealAnswer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return fmt.Errorf("no question to reveal: %w", apperrors.ErrConflict)
	}
	switch c.current.State() {
	case QuestionRevealed:
		return nil
	case QuestionClosed:
	default:
		return fmt.Errorf("reveal before close of question %s: %w", c.current.ID, apperrors.ErrConflict)
	}
	now := c.clk.Now()
	c.current.RevealedAt = &now
	c.publish(bridge.TopicQuestionReveal, QuestionRevealEvent{
		SessionCode:  c.code,
		QuestionID:   c.current.ID,
		CorrectLabel: c.current.CorrectOptionLabel,
		Timestamp:    now,
	})
	return nil
}

// Next moves the navigation cursor to the next still-pending question and
// returns it. Questions that already ran are skipped.
func (c *Coordinator) Next() (*Question, error) {
	return c.navigate(1)
}

// Prev moves the navigation cursor to the previous still-pending question.
func (c *Coordinator) Prev() (*Question, error) {
	return c.navigate(-1)
}

func (c *Coordinator) navigate(step int) (*Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusRunning {
		return nil, fmt.Errorf("navigate while %s: %w", c.status, apperrors.ErrConflict)
	}
	for i := c.cursor + step; i >= 0 && i < len(c.questions); i += step {
		if c.questions[i].State() == QuestionPending {
			c.cursor = i
			cp := *c.questions[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no pending question in that direction: %w", apperrors.ErrNotFound)
}

// End force-closes any open question and terminates the session. Ending an
// already ended session is a no-op.
func (c *Coordinator) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusEnded {
		return nil
	}
	if c.current != nil && c.current.State() == QuestionOpen {
		c.closeCurrentLocked()
	}
	now := c.clk.Now()
	c.status = StatusEnded
	c.endedAt = &now
	return nil
}

// Status returns the session state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CheckOpen returns the question iff it is currently accepting answers. The
// aggregator relies on this instead of tracking open/closed itself.
func (c *Coordinator) CheckOpen(questionID string) (*Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.byID[questionID]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", questionID, apperrors.ErrNotFound)
	}
	if c.status != StatusRunning || q.State() != QuestionOpen {
		return nil, fmt.Errorf("question %s is not open: %w", questionID, apperrors.ErrConflict)
	}
	cp := *q
	return &cp, nil
}

// Question returns a copy of the identified question.
func (c *Coordinator) Question(questionID string) (*Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.byID[questionID]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", questionID, apperrors.ErrNotFound)
	}
	cp := *q
	return &cp, nil
}

// Snapshot returns the session header and all questions for the dashboard.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	questions := make([]Question, len(c.questions))
	for i, q := range c.questions {
		questions[i] = *q
	}
	snap := Snapshot{
		ID:        c.id,
		Code:      c.code,
		PackageID: c.packageID,
		Status:    c.status,
		StartedAt: c.startedAt,
		EndedAt:   c.endedAt,
		Questions: questions,
	}
	if c.current != nil {
		snap.CurrentQuestionID = c.current.ID
	}
	return snap
}

// Snapshot is a read-only view of the session for the UI layer.
type Snapshot struct {
	ID                string     `json:"id"`
	Code              string     `json:"code"`
	PackageID         string     `json:"package_id"`
	Status            Status     `json:"status"`
	CurrentQuestionID string     `json:"current_question_id,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	Questions         []Question `json:"questions"`
}

// publish sends a broadcast event, tolerating a disconnected bridge: the
// transition already happened and stays valid, devices catch up after the
// operator reconnects.
func (c *Coordinator) publish(topic string, payload interface{}) {
	if c.pub == nil {
		return
	}
	if err := c.pub.Publish(topic, payload); err != nil {
		log.Printf("session %s: publish %s: %v", c.code, topic, err)
	}
}
