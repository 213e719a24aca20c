package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"torcida-quiz-service/internal/domain"
)

type countingLoader struct {
	mu     sync.Mutex
	calls  int
	sheets map[string]domain.QuestionSheet
}

func (l *countingLoader) LoadSheet(_ context.Context, quizID string) (domain.QuestionSheet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	sheet, ok := l.sheets[quizID]
	if !ok {
		return domain.QuestionSheet{}, domain.ErrQuizNotFound
	}
	return sheet, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleSheet() domain.QuestionSheet {
	return domain.QuestionSheet{
		QuizID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:     "q1",
				QuizID: "quiz-1",
				Text:   "Quem venceu a Copa de 2002?",
				Order:  1,
				Points: 100,
				Options: []domain.Option{
					{ID: "o1", Text: "Alemanha"},
					{ID: "o2", Text: "Brasil", IsCorrect: true},
				},
			},
		},
	}
}

func TestSheetCacheCaches(t *testing.T) {
	loader := &countingLoader{sheets: map[string]domain.QuestionSheet{"quiz-1": sampleSheet()}}
	cache := NewSheetCache(loader, time.Minute)

	if _, err := cache.GetSheet(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get sheet: %v", err)
	}
	if _, err := cache.GetSheet(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get sheet 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestSheetCacheExpires(t *testing.T) {
	loader := &countingLoader{sheets: map[string]domain.QuestionSheet{"quiz-1": sampleSheet()}}
	cache := NewSheetCache(loader, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.GetSheet(context.Background(), "quiz-1")
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetSheet(context.Background(), "quiz-1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestSheetCacheInvalidate(t *testing.T) {
	loader := &countingLoader{sheets: map[string]domain.QuestionSheet{"quiz-1": sampleSheet()}}
	cache := NewSheetCache(loader, time.Minute)

	_, _ = cache.GetSheet(context.Background(), "quiz-1")
	if err := cache.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.GetSheet(context.Background(), "quiz-1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.count())
	}
}

func TestSheetCacheDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{sheets: map[string]domain.QuestionSheet{}}
	cache := NewSheetCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetSheet(context.Background(), "missing"); err != domain.ErrQuizNotFound {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	}
	if loader.count() != 2 {
		t.Fatalf("expected errors to bypass the cache, loader calls %d", loader.count())
	}
}
