package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"hw-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches quiz content from a backing source (directory, HTTP,
// Postgres).
type ContentLoader interface {
	LoadQuestions(ctx context.Context, fileRef string) ([]domain.Question, error)
}

// ContentRepository caches quiz content JSON in Redis and falls back to a
// loader on cache miss. Content is stored as: SET hw:content:{fileRef} {json}.
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetQuestions(ctx context.Context, fileRef string) ([]domain.Question, error) {
	if questions, ok := r.fromCache(ctx, fileRef); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(fileRef, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if questions, ok := r.fromCache(ctx, fileRef); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, fileRef)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(questions); err == nil {
			_ = r.client.Set(ctx, contentKey(fileRef), raw, r.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, fileRef string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, contentKey(fileRef)).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func contentKey(fileRef string) string {
	return "hw:content:" + fileRef
}
