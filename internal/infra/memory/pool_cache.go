package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"course-exam-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PoolLoader fetches a course's questions from the backing store.
type PoolLoader interface {
	ListQuestions(ctx context.Context, courseID int64) ([]domain.Question, error)
}

// PoolCache caches question pools with TTL to avoid repeated store hits.
type PoolCache struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu       sync.RWMutex
	rnd      *rand.Rand
	cache    map[int64]cachedPool
	versions map[int64]uint64 // bumped by Invalidate
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewPoolCache(loader PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[int64]cachedPool),
		versions: make(map[int64]uint64),
	}
}

func (c *PoolCache) Pool(ctx context.Context, courseID int64) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[courseID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.FormatInt(courseID, 10), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[courseID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		version := c.versions[courseID]
		c.mu.RUnlock()

		questions, err := c.loader.ListQuestions(ctx, courseID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// an Invalidate during the load means questions may already be stale
		if c.versions[courseID] == version {
			c.cache[courseID] = cachedPool{
				questions: questions,
				expiresAt: now.Add(c.ttlWithJitterLocked()),
			}
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached pool so the next read reloads it.
func (c *PoolCache) Invalidate(_ context.Context, courseID int64) error {
	c.mu.Lock()
	delete(c.cache, courseID)
	c.versions[courseID]++
	c.mu.Unlock()
	c.sf.Forget(strconv.FormatInt(courseID, 10))
	return nil
}

func (c *PoolCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
