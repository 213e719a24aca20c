package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"torcida-quiz-service/internal/domain"
)

func seededStore(t *testing.T, maxParticipants, questions int) *Store {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	if err := s.CreateQuiz(ctx, domain.Quiz{ID: "quiz-1", CreatorID: "u1", Title: "Final", Code: "ABC234", MaxParticipants: maxParticipants, TimeLimit: 30, Status: domain.StatusDraft}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := 1; i <= questions; i++ {
		q := domain.Question{
			ID:     fmt.Sprintf("q%d", i),
			QuizID: "quiz-1",
			Text:   fmt.Sprintf("question %d", i),
			Points: 100,
			Options: []domain.Option{
				{ID: fmt.Sprintf("q%d-a", i), Order: 1, IsCorrect: true},
				{ID: fmt.Sprintf("q%d-b", i), Order: 2},
			},
		}
		if _, err := s.AddQuestion(ctx, q); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	return s
}

func anon(cpf string) domain.Identity {
	return domain.AnonymousIdentity{CPF: cpf, Name: "Torcedor"}
}

func TestStoreCodeIsUnique(t *testing.T) {
	s := seededStore(t, 10, 0)
	err := s.CreateQuiz(context.Background(), domain.Quiz{ID: "quiz-2", Code: "ABC234", MaxParticipants: 1, TimeLimit: 30})
	if !errors.Is(err, domain.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestStoreAssignsNextQuestionOrder(t *testing.T) {
	s := seededStore(t, 10, 2)
	if err := s.DeleteQuestion(context.Background(), "quiz-1", "q2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	q, err := s.AddQuestion(context.Background(), domain.Question{ID: "q3", QuizID: "quiz-1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if q.Order != 2 {
		t.Fatalf("expected order 2, got %d", q.Order)
	}
	quiz, _ := s.GetQuiz(context.Background(), "quiz-1")
	if quiz.QuestionCount != 2 {
		t.Fatalf("expected 2 questions, got %d", quiz.QuestionCount)
	}
}

func TestStoreSetQuizStatusIsCompareAndSet(t *testing.T) {
	s := seededStore(t, 10, 1)
	at := time.Date(2025, 10, 1, 20, 0, 0, 0, time.UTC)
	quiz, err := s.SetQuizStatus(context.Background(), "quiz-1", domain.StatusDraft, domain.StatusInProgress, at)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if quiz.StartedAt == nil || !quiz.StartedAt.Equal(at) {
		t.Fatalf("expected started_at to be set, got %v", quiz.StartedAt)
	}
	if _, err := s.SetQuizStatus(context.Background(), "quiz-1", domain.StatusDraft, domain.StatusActive, at); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStoreCapacityAndIdempotentJoin(t *testing.T) {
	s := seededStore(t, 1, 1)
	ctx := context.Background()

	first, err := s.AddParticipant(ctx, domain.Participant{ID: "p1", QuizID: "quiz-1", Identity: anon("52998224725")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	again, err := s.AddParticipant(ctx, domain.Participant{ID: "p-dup", QuizID: "quiz-1", Identity: anon("52998224725")})
	if err != nil || again.ID != first.ID {
		t.Fatalf("expected existing participant, got %+v err=%v", again, err)
	}
	if _, err := s.AddParticipant(ctx, domain.Participant{ID: "p2", QuizID: "quiz-1", Identity: anon("11144477735")}); !errors.Is(err, domain.ErrQuizFull) {
		t.Fatalf("expected ErrQuizFull, got %v", err)
	}
}

func TestStoreRecordAnswerCompletesOnce(t *testing.T) {
	s := seededStore(t, 10, 2)
	ctx := context.Background()
	_, _ = s.AddParticipant(ctx, domain.Participant{ID: "p1", QuizID: "quiz-1", Identity: anon("52998224725")})

	out, err := s.RecordAnswer(ctx, domain.Answer{ID: "a1", ParticipantID: "p1", QuestionID: "q1", PointsEarned: 80, TimeTakenMs: 4000, IsCorrect: true}, 2)
	if err != nil || out.Completed || out.TotalScore != 80 {
		t.Fatalf("unexpected outcome %+v err=%v", out, err)
	}
	if _, err := s.RecordAnswer(ctx, domain.Answer{ID: "a1b", ParticipantID: "p1", QuestionID: "q1"}, 2); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	out, err = s.RecordAnswer(ctx, domain.Answer{ID: "a2", ParticipantID: "p1", QuestionID: "q2", TimeTakenMs: 1000}, 2)
	if err != nil || !out.Completed || out.TotalTimeMs != 5000 || out.Answered != 2 {
		t.Fatalf("unexpected outcome %+v err=%v", out, err)
	}
	if _, err := s.RecordAnswer(ctx, domain.Answer{ID: "a3", ParticipantID: "p1", QuestionID: "q3"}, 2); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	entries, _ := s.Leaderboard(ctx, "quiz-1")
	if len(entries) != 1 || entries[0].CorrectAnswers != 1 || entries[0].TotalAnswered != 2 || entries[0].TotalQuestions != 2 || !entries[0].Completed {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}
}

func TestStoreConcurrentDuplicateAnswers(t *testing.T) {
	s := seededStore(t, 10, 3)
	ctx := context.Background()
	_, _ = s.AddParticipant(ctx, domain.Participant{ID: "p1", QuizID: "quiz-1", Identity: anon("52998224725")})

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RecordAnswer(ctx, domain.Answer{ID: fmt.Sprintf("a%d", i), ParticipantID: "p1", QuestionID: "q1", PointsEarned: 100}, 3)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrAlreadyAnswered) {
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one accepted answer, got %d", accepted)
	}
	p, _ := s.FindParticipant(ctx, "quiz-1", anon("52998224725"))
	if p.TotalScore != 100 {
		t.Fatalf("expected score counted once, got %d", p.TotalScore)
	}
}

func TestStoreDeleteQuizCascades(t *testing.T) {
	s := seededStore(t, 10, 1)
	ctx := context.Background()
	_, _ = s.AddParticipant(ctx, domain.Participant{ID: "p1", QuizID: "quiz-1", Identity: anon("52998224725")})

	if err := s.DeleteQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetQuizByCode(ctx, "ABC234"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected code released, got %v", err)
	}
	rows, _ := s.ParticipationsByCPF(ctx, "52998224725")
	if len(rows) != 0 {
		t.Fatalf("expected participations removed, got %d", len(rows))
	}
}
