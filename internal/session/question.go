package session

import (
	"fmt"
	"time"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
)

// QuestionState is the per-question sub-state within a running session.
type QuestionState string

const (
	QuestionPending  QuestionState = "pending"
	QuestionOpen     QuestionState = "open"
	QuestionClosed   QuestionState = "closed"
	QuestionRevealed QuestionState = "revealed"
)

// Option is one selectable answer of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is one step of a session. The three timestamps are stamped by the
// corresponding transitions and never change afterwards.
type Question struct {
	ID                 string     `json:"id"`
	Order              int        `json:"order"`
	Body               string     `json:"body"`
	Options            []Option   `json:"options"`
	CorrectOptionLabel string     `json:"correct_option_label"`
	TimeLimitSeconds   int        `json:"time_limit_seconds"`
	OpenedAt           *time.Time `json:"opened_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	RevealedAt         *time.Time `json:"revealed_at,omitempty"`
}

// State derives the sub-state from the stamped timestamps.
func (q *Question) State() QuestionState {
	switch {
	case q.RevealedAt != nil:
		return QuestionRevealed
	case q.ClosedAt != nil:
		return QuestionClosed
	case q.OpenedAt != nil:
		return QuestionOpen
	default:
		return QuestionPending
	}
}

// HasOption reports whether label names one of the question's options.
func (q *Question) HasOption(label string) bool {
	for _, opt := range q.Options {
		if opt.Label == label {
			return true
		}
	}
	return false
}

// QuestionSpec is the operator-supplied definition used by Create.
type QuestionSpec struct {
	ID                 string   `json:"id"`
	Order              int      `json:"order"`
	Body               string   `json:"body" binding:"required"`
	Options            []Option `json:"options" binding:"required"`
	CorrectOptionLabel string   `json:"correct_option_label"`
	TimeLimitSeconds   int      `json:"time_limit_seconds"`
}

func (s QuestionSpec) validate() error {
	if s.Body == "" {
		return fmt.Errorf("question body is required: %w", apperrors.ErrValidation)
	}
	if len(s.Options) < 2 {
		return fmt.Errorf("question needs at least two options: %w", apperrors.ErrValidation)
	}
	seen := map[string]struct{}{}
	for _, opt := range s.Options {
		if opt.Label == "" {
			return fmt.Errorf("option label is required: %w", apperrors.ErrValidation)
		}
		if _, dup := seen[opt.Label]; dup {
			return fmt.Errorf("option label %q repeats within the question: %w", opt.Label, apperrors.ErrValidation)
		}
		seen[opt.Label] = struct{}{}
	}
	if s.CorrectOptionLabel != "" {
		if _, ok := seen[s.CorrectOptionLabel]; !ok {
			return fmt.Errorf("correct option %q is not among the options: %w", s.CorrectOptionLabel, apperrors.ErrValidation)
		}
	}
	if s.TimeLimitSeconds <= 0 {
		return fmt.Errorf("time limit must be positive: %w", apperrors.ErrValidation)
	}
	return nil
}
