package app

import (
	"context"
	"time"

	"torcida-quiz-service/internal/domain"
)

// UserRepository persists organizer accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// QuizRepository persists quizzes. Reads fill ParticipantCount and QuestionCount.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
	ListQuizzesByCreator(ctx context.Context, creatorID string) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	// SetQuizStatus moves a quiz from one status to another only if it is still
	// in from, stamping started_at or finished_at with at.
	SetQuizStatus(ctx context.Context, quizID string, from, to domain.QuizStatus, at time.Time) (domain.Quiz, error)
}

// QuestionRepository persists questions with their options.
type QuestionRepository interface {
	// AddQuestion stores the question after the current last one and returns it
	// with its assigned order.
	AddQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, quizID, questionID string) error
	SheetLoader
}

// SheetLoader reads the ordered question sheet of a quiz from the backing store.
type SheetLoader interface {
	LoadSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error)
}

// ParticipantRepository persists participants and their answers.
type ParticipantRepository interface {
	FindParticipant(ctx context.Context, quizID string, identity domain.Identity) (domain.Participant, error)
	// AddParticipant inserts p unless the quiz is at capacity. If the identity
	// already joined, the existing row is returned instead.
	AddParticipant(ctx context.Context, p domain.Participant) (domain.Participant, error)
	// RecordAnswer stores the answer and updates the participant totals in one
	// transaction, marking the participant completed once questionCount answers exist.
	RecordAnswer(ctx context.Context, answer domain.Answer, questionCount int) (domain.AnswerOutcome, error)
	AnsweredQuestionIDs(ctx context.Context, participantID string) ([]string, error)
	Leaderboard(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error)
	ParticipationsByCPF(ctx context.Context, cpf string) ([]domain.Participation, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	UserRepository
	QuizRepository
	QuestionRepository
	ParticipantRepository
}

// SheetCache serves question sheets, loading them through a SheetLoader on miss.
type SheetCache interface {
	GetSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error)
	Invalidate(ctx context.Context, quizID string) error
}

// Broadcaster fans quiz events out to live subscribers.
// The caller must invoke the returned cancel function to avoid leaks.
type Broadcaster interface {
	Publish(ctx context.Context, event domain.QuizEvent) error
	Subscribe(ctx context.Context, quizID string) (<-chan domain.QuizEvent, func(), error)
}

// TokenIssuer signs access tokens for accounts.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}
