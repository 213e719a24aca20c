package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/infra/memory"
)

const subscriberBuffer = 8

// Broadcaster fans quiz events out through Redis pub/sub so every instance
// behind the load balancer sees them.
type Broadcaster struct {
	client *redis.Client
}

func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

func (b *Broadcaster) Publish(ctx context.Context, event domain.QuizEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.client.Publish(ctx, eventsChannel(event.QuizID), raw).Err()
}

func (b *Broadcaster) Subscribe(ctx context.Context, quizID string) (<-chan domain.QuizEvent, func(), error) {
	pubsub := b.client.Subscribe(ctx, eventsChannel(quizID))
	// wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", quizID, err)
	}

	out := make(chan domain.QuizEvent, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event domain.QuizEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			memory.Offer(out, event)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = pubsub.Close() })
	}
	return out, cancel, nil
}

func eventsChannel(quizID string) string {
	return "quiz:events:" + quizID
}
