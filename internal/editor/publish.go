package editor

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/gateway"
)

var metaValidator = validator.New()

func validateMeta(meta gateway.QuizMeta) error {
	if err := metaValidator.Struct(meta); err != nil {
		return fmt.Errorf("invalid quiz metadata: %w", err)
	}
	return nil
}

// AdminBackend is the slice of the backend gateway publishing needs.
type AdminBackend interface {
	ListQuizzes(ctx context.Context, account string) ([]gateway.QuizListItem, error)
	UpsertQuizMeta(ctx context.Context, meta gateway.QuizMeta) error
	UpsertAnswerKeys(ctx context.Context, quizID string, quizVersion int, keys []gateway.AnswerKey) error
}

// Publisher pushes a finished draft to the backend.
type Publisher struct {
	backend AdminBackend
}

func NewPublisher(backend AdminBackend) *Publisher {
	return &Publisher{backend: backend}
}

// Inventory lists the backend's quizzes for the editor's open dialog.
func (p *Publisher) Inventory(ctx context.Context) ([]gateway.QuizListItem, error) {
	return p.backend.ListQuizzes(ctx, "")
}

// Publish writes the quiz metadata first and the derived answer keys second,
// so a key row never references a quiz version the backend has not seen.
func (p *Publisher) Publish(ctx context.Context, draft *Draft, meta gateway.QuizMeta) error {
	if draft.Len() == 0 {
		return fmt.Errorf("cannot publish an empty draft")
	}
	if err := validateMeta(meta); err != nil {
		return err
	}
	if err := p.backend.UpsertQuizMeta(ctx, meta); err != nil {
		return fmt.Errorf("upsert quiz metadata: %w", err)
	}
	if err := p.backend.UpsertAnswerKeys(ctx, meta.QuizID, meta.QuizVersion, draft.BuildAnswerKeys()); err != nil {
		return fmt.Errorf("upsert answer keys: %w", err)
	}
	log.Info().Str("quiz", meta.QuizID).Int("version", meta.QuizVersion).Int("questions", draft.Len()).Msg("quiz published")
	return nil
}
