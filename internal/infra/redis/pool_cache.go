package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"course-exam-service/internal/domain"
	"course-exam-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PoolCache keeps each course's question pool in Redis as a JSON blob and
// falls back to the loader on a miss.
// Pools are stored as: SET exam:pool:{courseID} <json> EX ttl
type PoolCache struct {
	client *redis.Client
	loader memory.PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPoolCache(client *redis.Client, loader memory.PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) Pool(ctx context.Context, courseID int64) ([]domain.Question, error) {
	key := poolKey(courseID)
	if questions, ok := c.cached(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if questions, ok := c.cached(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.loader.ListQuestions(ctx, courseID)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("pool cache: store course %d: %v", courseID, err)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate removes the cached pool so the next read reloads it.
func (c *PoolCache) Invalidate(ctx context.Context, courseID int64) error {
	key := poolKey(courseID)
	c.sf.Forget(key)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("invalidate pool %d: %w: %w", courseID, domain.ErrPersistence, err)
	}
	return nil
}

func (c *PoolCache) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("pool cache: read %s: %v", key, err)
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		log.Printf("pool cache: decode %s: %v", key, err)
		return nil, false
	}
	return questions, true
}

func poolKey(courseID int64) string {
	return "exam:pool:" + strconv.FormatInt(courseID, 10)
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
