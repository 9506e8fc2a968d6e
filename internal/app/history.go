package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/domain"
	"hw-quiz-service/internal/gateway"
)

// HistoryService serves the past-attempt surfaces. The backend stores only
// index-level answers, so the detail view re-fetches the quiz content and
// rebuilds the wrong-answer review from it.
type HistoryService struct {
	backend HistoryBackend
	content ContentRepository
}

func NewHistoryService(backend HistoryBackend, content ContentRepository) *HistoryService {
	return &HistoryService{backend: backend, content: content}
}

// List returns the account's attempt history. Scope "best" keeps one best
// row per quiz; "all" lists every attempt. Anything else falls back to best.
func (s *HistoryService) List(ctx context.Context, account, scope string) ([]gateway.HistoryItem, error) {
	if scope != "all" {
		scope = "best"
	}
	return s.backend.HistoryList(ctx, account, scope)
}

// AttemptReview is one past attempt expanded for display.
type AttemptReview struct {
	AttemptID         string       `json:"attempt_id"`
	QuizTitle         string       `json:"quiz_title"`
	QuizVersion       int          `json:"quiz_version"`
	Score             Score        `json:"score"`
	ClientStartedAt   string       `json:"client_started_at,omitempty"`
	ClientSubmittedAt string       `json:"client_submitted_at,omitempty"`
	Review            []ReviewItem `json:"review,omitempty"`
	ReviewUnavailable bool         `json:"review_unavailable,omitempty"`
}

// Detail loads one attempt and rebuilds its wrong-answer review. A content
// fetch failure degrades to scores-only instead of failing the whole view.
func (s *HistoryService) Detail(ctx context.Context, account, attemptID string) (*AttemptReview, error) {
	attempt, meta, err := s.backend.FetchAttemptDetail(ctx, account, attemptID)
	if err != nil {
		return nil, err
	}

	review := &AttemptReview{
		AttemptID:         attemptID,
		QuizTitle:         meta.Title,
		QuizVersion:       attempt.QuizVersion,
		Score:             Score{Correct: attempt.Score, Total: attempt.MaxScore},
		ClientStartedAt:   attempt.ClientStartedAt,
		ClientSubmittedAt: attempt.ClientSubmittedAt,
	}

	questions, err := s.content.GetQuestions(ctx, meta.File)
	if err != nil {
		log.Warn().Err(err).Str("file", meta.File).Msg("quiz content unavailable for history review")
		review.ReviewUnavailable = true
		return review, nil
	}

	answers := rebuildAnswers(questions, attempt.Answers)
	review.Review = BuildReview(questions, answers)
	return review, nil
}

// rebuildAnswers maps stored answer rows back onto answer slots, starting
// from an all-unanswered array so missing rows stay unanswered.
func rebuildAnswers(questions []domain.Question, entries []gateway.AnswerEntry) []domain.Answer {
	answers := domain.NewAnswers(questions)
	for _, e := range entries {
		if e.QIndex < 0 || e.QIndex >= len(answers) {
			continue
		}
		switch questions[e.QIndex].Type {
		case domain.TypeChoice:
			if e.SelectedIndex != nil {
				answers[e.QIndex].Selected = *e.SelectedIndex
			}
		case domain.TypeCloze:
			if len(e.SelectedIndices) == len(answers[e.QIndex].Blanks) {
				copy(answers[e.QIndex].Blanks, e.SelectedIndices)
			}
		}
	}
	return answers
}
