package domain

import (
	"encoding/json"
	"time"
)

// QuizStatus is the lifecycle state of a quiz. It only ever moves forward.
type QuizStatus string

const (
	StatusDraft      QuizStatus = "draft"
	StatusActive     QuizStatus = "active"
	StatusInProgress QuizStatus = "in_progress"
	StatusFinished   QuizStatus = "finished"
)

// Joinable reports whether participants may enter a quiz in this state.
func (s QuizStatus) Joinable() bool {
	return s == StatusActive || s == StatusInProgress
}

// Editable reports whether questions and the time limit may still change.
func (s QuizStatus) Editable() bool {
	return s == StatusDraft || s == StatusActive
}

// Role of an account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an organizer account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Quiz is the unit participants join with a code.
type Quiz struct {
	ID              string     `json:"id"`
	CreatorID       string     `json:"creator_id"`
	CreatorName     string     `json:"creator_name,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Code            string     `json:"code"`
	MaxParticipants int        `json:"max_participants"`
	TimeLimit       int        `json:"time_limit"` // seconds per question
	Status          QuizStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`

	ParticipantCount int `json:"participant_count"`
	QuestionCount    int `json:"question_count"`
}

// Option is one possible answer of a question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"option_text"`
	Order      int    `json:"option_order"`
	IsCorrect  bool   `json:"is_correct"`
}

// Question is a multiple-choice question. Its time limit is the quiz's.
type Question struct {
	ID      string   `json:"id"`
	QuizID  string   `json:"quiz_id"`
	Text    string   `json:"question_text"`
	Order   int      `json:"question_order"`
	Points  int      `json:"points"`
	Options []Option `json:"options"`
}

// Option returns the option with the given id.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// QuestionSheet is the ordered question set of a quiz, options included.
type QuestionSheet struct {
	QuizID    string     `json:"quiz_id"`
	Questions []Question `json:"questions"`
}

// Question looks a question up by id.
func (s QuestionSheet) Question(questionID string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// Len is the number of questions.
func (s QuestionSheet) Len() int {
	return len(s.Questions)
}

// Participant is an identity taking part in one quiz.
type Participant struct {
	ID          string
	QuizID      string
	Identity    Identity
	DisplayName string
	JoinedAt    time.Time
	TotalScore  int
	TotalTimeMs int64
	CompletedAt *time.Time
}

// Completed reports whether every question has been answered.
func (p Participant) Completed() bool {
	return p.CompletedAt != nil
}

type participantJSON struct {
	ID              string     `json:"id"`
	QuizID          string     `json:"quiz_id"`
	UserID          string     `json:"user_id,omitempty"`
	CPF             string     `json:"cpf,omitempty"`
	ParticipantName string     `json:"participant_name"`
	JoinedAt        time.Time  `json:"joined_at"`
	TotalScore      int        `json:"total_score"`
	TotalTimeMs     int64      `json:"total_time_ms"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// MarshalJSON flattens the identity into the user_id / cpf columns clients expect.
func (p Participant) MarshalJSON() ([]byte, error) {
	out := participantJSON{
		ID:              p.ID,
		QuizID:          p.QuizID,
		ParticipantName: p.DisplayName,
		JoinedAt:        p.JoinedAt,
		TotalScore:      p.TotalScore,
		TotalTimeMs:     p.TotalTimeMs,
		CompletedAt:     p.CompletedAt,
	}
	switch id := p.Identity.(type) {
	case AccountIdentity:
		out.UserID = id.UserID
	case AnonymousIdentity:
		out.CPF = id.CPF
	}
	return json.Marshal(out)
}

// Answer is immutable once recorded.
type Answer struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	QuestionID    string    `json:"question_id"`
	OptionID      string    `json:"option_id"`
	AnsweredAt    time.Time `json:"answered_at"`
	TimeTakenMs   int64     `json:"time_taken_ms"`
	IsCorrect     bool      `json:"is_correct"`
	PointsEarned  int       `json:"points_earned"`
}

// AnswerOutcome is the participant aggregate after an answer was recorded.
type AnswerOutcome struct {
	TotalScore  int
	TotalTimeMs int64
	Answered    int
	Completed   bool
}

// Participation pairs a quiz with one participant row, for "my quizzes" views.
type Participation struct {
	Quiz        Quiz
	Participant Participant
}
