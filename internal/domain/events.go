package domain

import "time"

// Event types pushed to live subscribers.
const (
	EventStatus      = "status"
	EventLeaderboard = "leaderboard"
)

// QuizStatusView is what waiting rooms poll for.
type QuizStatusView struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Status           QuizStatus `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ParticipantCount int        `json:"participant_count"`
	QuestionCount    int        `json:"question_count"`
	TimeLimit        int        `json:"time_limit"`
	RemainingSeconds int        `json:"remaining_seconds"`
}

// QuizEvent is a change notification for one quiz.
type QuizEvent struct {
	Type        string          `json:"type"`
	QuizID      string          `json:"quiz_id"`
	Status      *QuizStatusView `json:"status,omitempty"`
	Leaderboard *Leaderboard    `json:"leaderboard,omitempty"`
}
