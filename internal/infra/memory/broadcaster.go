package memory

import (
	"context"
	"sync"

	"torcida-quiz-service/internal/domain"
)

const subscriberBuffer = 8

// Broadcaster fans quiz events out to subscribers of this process.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.QuizEvent]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]map[chan domain.QuizEvent]struct{})}
}

func (b *Broadcaster) Publish(_ context.Context, event domain.QuizEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[event.QuizID] {
		Offer(ch, event)
	}
	return nil
}

func (b *Broadcaster) Subscribe(_ context.Context, quizID string) (<-chan domain.QuizEvent, func(), error) {
	ch := make(chan domain.QuizEvent, subscriberBuffer)

	b.mu.Lock()
	subs, ok := b.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.QuizEvent]struct{})
		b.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[quizID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, quizID)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many live subscriptions a quiz has.
func (b *Broadcaster) Subscribers(quizID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[quizID])
}

// Offer delivers event without blocking. When ch is full the oldest pending
// event is dropped so slow readers always see the latest state.
// ch must only be written by the caller, under its own lock.
func Offer(ch chan domain.QuizEvent, event domain.QuizEvent) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}
