package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
)

// Response is one accepted answer. The (question, student) pair is unique;
// the first accepted answer is final.
type Response struct {
	SessionID   string    `json:"session_id"`
	QuestionID  string    `json:"question_id"`
	StudentNIM  string    `json:"student_nim"`
	AnswerLabel string    `json:"answer_label"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Distribution is the live answer breakdown of one question. Total always
// equals the sum of Counts.
type Distribution struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// Aggregator collects answers for whichever question the coordinator has
// open. It never tracks open/closed itself; the coordinator's state is
// authoritative, so a late answer that arrives after close is rejected no
// matter the delivery order.
type Aggregator struct {
	mu        sync.Mutex
	clk       clock.Clock
	coord     *Coordinator
	responses map[string]map[string]Response // question id -> student nim
}

func NewAggregator(clk clock.Clock, coord *Coordinator) *Aggregator {
	return &Aggregator{
		clk:       clk,
		coord:     coord,
		responses: make(map[string]map[string]Response),
	}
}

// Submit records one answer. It is accepted only while the question is open,
// the label is one of the question's options, and the student has not
// answered this question before.
func (a *Aggregator) Submit(questionID, nim, answerLabel string) (*Response, error) {
	if nim == "" {
		return nil, fmt.Errorf("student nim is required: %w", apperrors.ErrValidation)
	}
	q, err := a.coord.CheckOpen(questionID)
	if err != nil {
		return nil, err
	}
	if !q.HasOption(answerLabel) {
		return nil, fmt.Errorf("answer %q is not an option of question %s: %w", answerLabel, questionID, apperrors.ErrValidation)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	byNIM := a.responses[questionID]
	if byNIM == nil {
		byNIM = make(map[string]Response)
		a.responses[questionID] = byNIM
	}
	if _, exists := byNIM[nim]; exists {
		return nil, fmt.Errorf("student %s already answered question %s: %w", nim, questionID, apperrors.ErrDuplicate)
	}
	resp := Response{
		SessionID:   a.coord.ID(),
		QuestionID:  questionID,
		StudentNIM:  nim,
		AnswerLabel: answerLabel,
		SubmittedAt: a.clk.Now(),
	}
	byNIM[nim] = resp
	return &resp, nil
}

// Distribution computes the per-label counts from the accepted set. Every
// option of the question appears, zero or not, and the total equals the
// number of accepted responses.
func (a *Aggregator) Distribution(questionID string) (Distribution, error) {
	q, err := a.coord.Question(questionID)
	if err != nil {
		return Distribution{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	dist := Distribution{Counts: make(map[string]int, len(q.Options))}
	for _, opt := range q.Options {
		dist.Counts[opt.Label] = 0
	}
	for _, resp := range a.responses[questionID] {
		dist.Counts[resp.AnswerLabel]++
		dist.Total++
	}
	return dist, nil
}

// Responses returns a copy of the accepted answers for one question.
func (a *Aggregator) Responses(questionID string) []Response {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Response, 0, len(a.responses[questionID]))
	for _, resp := range a.responses[questionID] {
		out = append(out, resp)
	}
	return out
}
