package session

import "time"

// Broadcast payloads pushed to devices through the topic bridge.

type SessionStartEvent struct {
	SessionCode string    `json:"session_code"`
	PackageID   string    `json:"package_id"`
	Timestamp   time.Time `json:"timestamp"`
}

type QuestionEvent struct {
	SessionCode string    `json:"session_code"`
	QuestionID  string    `json:"question_id"`
	Order       int       `json:"order"`
	Question    string    `json:"question"`
	Options     []Option  `json:"options"`
	TimeLimit   int       `json:"time_limit"`
	Timestamp   time.Time `json:"timestamp"`
}

type QuestionCloseEvent struct {
	SessionCode string    `json:"session_code"`
	QuestionID  string    `json:"question_id"`
	Timestamp   time.Time `json:"timestamp"`
}

type QuestionRevealEvent struct {
	SessionCode  string    `json:"session_code"`
	QuestionID   string    `json:"question_id"`
	CorrectLabel string    `json:"correct_label"`
	Timestamp    time.Time `json:"timestamp"`
}
