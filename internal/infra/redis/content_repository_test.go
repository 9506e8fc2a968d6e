package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"hw-quiz-service/internal/domain"
)

type countingLoader struct {
	files map[string][]domain.Question
	calls int
}

func (l *countingLoader) LoadQuestions(_ context.Context, fileRef string) ([]domain.Question, error) {
	l.calls++
	if questions, ok := l.files[fileRef]; ok {
		return questions, nil
	}
	return nil, domain.ErrQuizNotFound
}

func TestContentRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{files: map[string][]domain.Question{
		"questions/alg-1.json": {
			{Type: domain.TypeChoice, Display: domain.DisplayText, Content: "1+1=?", Choice: &domain.ChoiceBody{Options: []string{"1", "2"}, Answer: "2"}},
		},
	}}
	repo := NewContentRepository(redis.NewClient(&redis.Options{Addr: mr.Addr()}), loader, time.Minute)

	ctx := context.Background()
	first, err := repo.GetQuestions(ctx, "questions/alg-1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !mr.Exists("hw:content:questions/alg-1.json") {
		t.Fatalf("expected cached content key")
	}

	second, err := repo.GetQuestions(ctx, "questions/alg-1.json")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected a single loader call, got %d", loader.calls)
	}
	if len(first) != len(second) || second[0].Choice == nil || second[0].Choice.Answer != "2" {
		t.Fatalf("cache round trip lost data: %+v", second)
	}
}
