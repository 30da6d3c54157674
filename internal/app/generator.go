package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"course-exam-service/internal/domain"
)

// Generator draws random exam sets from a course's question pool.
type Generator struct {
	pool QuestionPool

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(pool QuestionPool) *Generator {
	return NewGeneratorWithSource(pool, rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWithSource allows a seeded source in tests.
func NewGeneratorWithSource(pool QuestionPool, src rand.Source) *Generator {
	return &Generator{pool: pool, rnd: rand.New(src)}
}

// Generate returns up to count distinct questions of the course, chosen uniformly
// without replacement. A smaller pool yields fewer questions, not an error.
func (g *Generator) Generate(ctx context.Context, courseID int64, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	pool, err := g.pool.Pool(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return g.draw(courseID, pool, count), nil
}

// GenerateExam draws course.ExamLength questions. A cached pool holding fewer
// questions than the store reports for the course is reloaded before the draw.
func (g *Generator) GenerateExam(ctx context.Context, course domain.Course) ([]domain.Question, error) {
	if course.ExamLength <= 0 {
		return nil, nil
	}
	pool, err := g.pool.Pool(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	if len(pool) < course.TotalQuestions {
		if err := g.pool.Invalidate(ctx, course.ID); err != nil {
			return nil, err
		}
		if pool, err = g.pool.Pool(ctx, course.ID); err != nil {
			return nil, err
		}
	}
	return g.draw(course.ID, pool, course.ExamLength), nil
}

func (g *Generator) draw(courseID int64, pool []domain.Question, count int) []domain.Question {
	// work on a copy; the pool slice may be shared by a cache
	candidates := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if q.CourseID == courseID {
			candidates = append(candidates, q)
		}
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	g.mu.Lock()
	for i := 0; i < count; i++ {
		j := i + g.rnd.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	g.mu.Unlock()

	return candidates[:count]
}
