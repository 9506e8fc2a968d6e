package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hw-quiz-service/internal/domain"
)

// ContentLoader fetches quiz content from a backing source (directory, HTTP,
// Postgres).
type ContentLoader interface {
	LoadQuestions(ctx context.Context, fileRef string) ([]domain.Question, error)
}

// ContentRepository caches parsed quiz content with a TTL so restarting the
// same quiz does not refetch the file on every load.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (r *ContentRepository) GetQuestions(ctx context.Context, fileRef string) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[fileRef]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(fileRef, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[fileRef]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, fileRef)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[fileRef] = cachedContent{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader serves quiz content from an in-memory map, for tests
// and demos.
type StaticContentLoader struct {
	files map[string][]domain.Question
}

func NewStaticContentLoader(files map[string][]domain.Question) *StaticContentLoader {
	return &StaticContentLoader{files: files}
}

func (l *StaticContentLoader) LoadQuestions(_ context.Context, fileRef string) ([]domain.Question, error) {
	if questions, ok := l.files[fileRef]; ok {
		return questions, nil
	}
	return nil, domain.ErrQuizNotFound
}
