package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"torcida-quiz-service/internal/domain"
)

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SheetLoader fetches question sheets from the backing store.
type SheetLoader interface {
	LoadSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error)
}

// SheetCache caches question sheets in Redis as JSON under quiz:{quizID}:sheet
// and falls back to a loader on cache miss. Invalidate bumps
// quiz:{quizID}:sheet:version; a load only writes back when the version it
// read before loading is still current.
type SheetCache struct {
	client *redis.Client
	loader SheetLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSheetCache(client *redis.Client, loader SheetLoader, ttl time.Duration) *SheetCache {
	return &SheetCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SheetCache) GetSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error) {
	if sheet, ok := c.cached(ctx, quizID); ok {
		return sheet, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if sheet, ok := c.cached(ctx, quizID); ok {
			return sheet, nil
		}

		version, err := c.version(ctx, c.client, quizID)
		if err != nil {
			return domain.QuestionSheet{}, err
		}
		sheet, err := c.loader.LoadSheet(ctx, quizID)
		if err != nil {
			return domain.QuestionSheet{}, err
		}
		if c.ttl <= 0 {
			return sheet, nil
		}
		raw, err := json.Marshal(sheet)
		if err != nil {
			return domain.QuestionSheet{}, fmt.Errorf("encode sheet: %w", err)
		}
		// a failed write only costs a reload next time
		_ = c.storeIfCurrent(ctx, quizID, version, raw)
		return sheet, nil
	})
	if err != nil {
		return domain.QuestionSheet{}, err
	}
	return result.(domain.QuestionSheet), nil
}

// storeIfCurrent writes the sheet unless an invalidation happened after
// version was read.
func (c *SheetCache) storeIfCurrent(ctx context.Context, quizID string, version int64, raw []byte) error {
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sheetKey(quizID), raw, c.ttlWithJitter())
			return nil
		})
		return err
	}, versionKey(quizID))
}

func (c *SheetCache) version(ctx context.Context, cmd getter, quizID string) (int64, error) {
	v, err := cmd.Get(ctx, versionKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sheet version: %w", err)
	}
	return v, nil
}

// Invalidate deletes the cached sheet of a quiz and fences off loads that
// started before it.
func (c *SheetCache) Invalidate(ctx context.Context, quizID string) error {
	c.sf.Forget(quizID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(quizID))
		pipe.Del(ctx, sheetKey(quizID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate sheet: %w", err)
	}
	return nil
}

func (c *SheetCache) cached(ctx context.Context, quizID string) (domain.QuestionSheet, bool) {
	raw, err := c.client.Get(ctx, sheetKey(quizID)).Bytes()
	if err != nil {
		return domain.QuestionSheet{}, false
	}
	var sheet domain.QuestionSheet
	if err := json.Unmarshal(raw, &sheet); err != nil {
		return domain.QuestionSheet{}, false
	}
	return sheet, true
}

func sheetKey(quizID string) string {
	return "quiz:" + quizID + ":sheet"
}

func versionKey(quizID string) string {
	return sheetKey(quizID) + ":version"
}

func (c *SheetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
