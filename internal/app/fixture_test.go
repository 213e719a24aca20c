package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"torcida-quiz-service/internal/auth"
	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/infra/memory"
	"torcida-quiz-service/internal/logger"
)

const (
	cpfAna   = "529.982.247-25"
	cpfBruno = "111.444.777-35"
	cpfCaio  = "390.533.447-05"
)

var baseTime = time.Date(2025, 10, 15, 19, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	events  *memory.Broadcaster
	auth    *AuthService
	quizzes *QuizService
	play    *PlayService
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), events: memory.NewBroadcaster(), now: baseTime}
	clock := func() time.Time { return f.now }
	sheets := memory.NewSheetCache(f.store, time.Minute)
	log := logger.Nop()
	f.auth = NewAuthService(f.store, auth.NewTokenIssuer("test-secret-with-length", time.Hour), log)
	f.quizzes = newQuizServiceWithClock(f.store, f.store, f.store, sheets, f.events, Defaults{}, log, clock)
	f.play = newPlayServiceWithClock(f.store, f.store, f.store, sheets, f.events, log, clock)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) organizer(t *testing.T, email string) domain.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Email: email, Password: "segredo123", Name: "Org " + email})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res.User
}

// draftQuiz creates a quiz with n questions whose first option is correct.
func (f *fixture) draftQuiz(t *testing.T, owner domain.User, timeLimit, maxParticipants, n int) (domain.Quiz, []domain.Question) {
	t.Helper()
	ctx := context.Background()
	quiz, err := f.quizzes.Create(ctx, owner.ID, CreateQuizInput{Title: "Quiz da torcida", TimeLimit: timeLimit, MaxParticipants: maxParticipants})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	questions := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		q, err := f.quizzes.AddQuestion(ctx, quiz.ID, owner.ID, AddQuestionInput{
			Text: fmt.Sprintf("Pergunta %d", i),
			Options: []OptionInput{
				{Text: "Certa", IsCorrect: true},
				{Text: "Errada"},
				{Text: "Também errada"},
			},
		})
		if err != nil {
			t.Fatalf("add question %d: %v", i, err)
		}
		questions = append(questions, q)
	}
	return quiz, questions
}

// runningQuiz activates and starts a fresh quiz at the fixture's current time.
func (f *fixture) runningQuiz(t *testing.T, owner domain.User, timeLimit, maxParticipants, n int) (domain.Quiz, []domain.Question) {
	t.Helper()
	quiz, questions := f.draftQuiz(t, owner, timeLimit, maxParticipants, n)
	ctx := context.Background()
	if _, err := f.quizzes.Activate(ctx, quiz.ID, owner.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	started, err := f.quizzes.Start(ctx, quiz.ID, owner.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return started, questions
}

func (f *fixture) join(t *testing.T, quiz domain.Quiz, cpf, name string) domain.Participant {
	t.Helper()
	res, err := f.play.Join(context.Background(), quiz.Code, domain.AnonymousIdentity{CPF: cpf, Name: name})
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	if res.Participant == nil {
		t.Fatalf("join %s: no participant in %+v", name, res)
	}
	return *res.Participant
}

func (f *fixture) answer(quiz domain.Quiz, cpf string, q domain.Question, correct bool, ms int64) (AnswerResult, error) {
	opt := q.Options[1]
	if correct {
		opt = q.Options[0]
	}
	return f.play.SubmitAnswer(context.Background(), quiz.ID, domain.AnonymousIdentity{CPF: cpf}, SubmitAnswerInput{
		QuestionID:  q.ID,
		OptionID:    opt.ID,
		TimeTakenMs: ms,
	})
}
