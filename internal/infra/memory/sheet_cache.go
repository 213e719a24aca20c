package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"torcida-quiz-service/internal/domain"
)

// SheetLoader fetches question sheets from a backing store.
type SheetLoader interface {
	LoadSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error)
}

// SheetCache caches question sheets with TTL to avoid repeated DB hits.
type SheetCache struct {
	loader SheetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedSheet
	// generation is bumped on invalidation so loads started earlier do not
	// repopulate the cache with a stale sheet.
	generation map[string]uint64
}

type cachedSheet struct {
	sheet     domain.QuestionSheet
	expiresAt time.Time
}

func NewSheetCache(loader SheetLoader, ttl time.Duration) *SheetCache {
	return &SheetCache{
		loader:     loader,
		ttl:        ttl,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:      make(map[string]cachedSheet),
		generation: make(map[string]uint64),
	}
}

func (c *SheetCache) GetSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error) {
	if sheet, ok := c.lookup(quizID); ok {
		return sheet, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if sheet, ok := c.lookup(quizID); ok {
			return sheet, nil
		}
		c.mu.RLock()
		gen := c.generation[quizID]
		c.mu.RUnlock()

		sheet, err := c.loader.LoadSheet(ctx, quizID)
		if err != nil {
			return domain.QuestionSheet{}, err
		}

		c.mu.Lock()
		if c.generation[quizID] == gen && c.ttl > 0 {
			c.cache[quizID] = cachedSheet{
				sheet:     sheet,
				expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
			}
		}
		c.mu.Unlock()
		return sheet, nil
	})
	if err != nil {
		return domain.QuestionSheet{}, err
	}
	return result.(domain.QuestionSheet), nil
}

// Invalidate drops the cached sheet of a quiz.
func (c *SheetCache) Invalidate(_ context.Context, quizID string) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.generation[quizID]++
	c.mu.Unlock()
	c.sf.Forget(quizID)
	return nil
}

func (c *SheetCache) lookup(quizID string) (domain.QuestionSheet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuestionSheet{}, false
	}
	return entry.sheet, true
}

func (c *SheetCache) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
