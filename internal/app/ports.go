package app

import (
	"context"

	"hw-quiz-service/internal/domain"
	"hw-quiz-service/internal/gateway"
)

// SessionStore abstracts how sessions and selected-quiz pointers are kept
// (in-memory, Redis).
type SessionStore interface {
	SaveSession(ctx context.Context, token string, sess domain.Session) error
	GetSession(ctx context.Context, token string) (domain.Session, bool, error)
	ClearSession(ctx context.Context, token string) error
	SaveSelectedQuiz(ctx context.Context, token string, quiz domain.SelectedQuiz) error
	GetSelectedQuiz(ctx context.Context, token string) (domain.SelectedQuiz, bool, error)
	ClearSelectedQuiz(ctx context.Context, token string) error
}

// ContentRepository loads quiz question arrays by file reference
// (cache + loader behind it).
type ContentRepository interface {
	GetQuestions(ctx context.Context, fileRef string) ([]domain.Question, error)
}

// Authenticator is the slice of the backend gateway the login flow needs.
type Authenticator interface {
	Authenticate(ctx context.Context, account, password string) (*gateway.AuthResult, error)
}

// Submitter uploads finished attempts for authoritative scoring.
type Submitter interface {
	SubmitAttempt(ctx context.Context, payload gateway.AttemptPayload) (*gateway.SubmitResult, error)
}

// HistoryBackend is the slice of the backend gateway the history surface needs.
type HistoryBackend interface {
	HistoryList(ctx context.Context, account, scope string) ([]gateway.HistoryItem, error)
	FetchAttemptDetail(ctx context.Context, account, attemptID string) (*gateway.AttemptDetail, *gateway.QuizMetaInfo, error)
}
