package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/domain"
)

// AuthFailedError carries the backend's rejection message for a bad login.
type AuthFailedError struct {
	Reason string
}

func (e *AuthFailedError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// AuthService runs the login lifecycle: backend credential checks, session
// issue and teardown, and the selected-quiz pointer. A second login request
// from the same client cancels the one still in flight.
type AuthService struct {
	backend  Authenticator
	sessions SessionStore

	mu       sync.Mutex
	gen      uint64
	inflight map[string]*loginAttempt
}

type loginAttempt struct {
	gen    uint64
	cancel context.CancelFunc
}

func NewAuthService(backend Authenticator, sessions SessionStore) *AuthService {
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		inflight: make(map[string]*loginAttempt),
	}
}

// Login verifies credentials against the backend and stores a fresh session,
// returning its bearer token. clientKey identifies the requesting client
// across retries; a newer Login with the same key cancels this one, which
// then returns domain.ErrLoginCanceled.
func (s *AuthService) Login(ctx context.Context, clientKey, account, password string) (string, domain.Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if prev, ok := s.inflight[clientKey]; ok {
		prev.cancel()
	}
	s.gen++
	mine := &loginAttempt{gen: s.gen, cancel: cancel}
	s.inflight[clientKey] = mine
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if cur, ok := s.inflight[clientKey]; ok && cur.gen == mine.gen {
			delete(s.inflight, clientKey)
		}
		s.mu.Unlock()
	}()

	result, err := s.backend.Authenticate(ctx, account, password)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", domain.Session{}, domain.ErrLoginCanceled
		}
		return "", domain.Session{}, err
	}
	if !result.OK {
		return "", domain.Session{}, &AuthFailedError{Reason: result.Error}
	}

	sess := domain.Session{
		Account:     result.Account,
		DisplayName: result.DisplayName,
		Role:        result.Role,
		Quizzes:     result.Quizzes,
	}
	token := uuid.NewString()
	if err := s.sessions.SaveSession(ctx, token, sess); err != nil {
		return "", domain.Session{}, err
	}
	log.Info().Str("account", sess.Account).Str("role", sess.Role).Msg("session created")
	return token, sess, nil
}

// RequireSession resolves a bearer token to its session.
func (s *AuthService) RequireSession(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	sess, ok, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return sess, nil
}

// Logout destroys the token's session and selected-quiz pointer.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.ClearSession(ctx, token)
}

// SelectQuiz records which assigned quiz the token's session picked. The
// quiz must be on the session's assignment list.
func (s *AuthService) SelectQuiz(ctx context.Context, token, quizID string) (domain.SelectedQuiz, error) {
	sess, err := s.RequireSession(ctx, token)
	if err != nil {
		return domain.SelectedQuiz{}, err
	}
	for _, q := range sess.Quizzes {
		if q.ID == quizID {
			selected := domain.SelectedQuiz{
				ID:               q.ID,
				Name:             q.Name,
				File:             q.File,
				Version:          q.Version,
				TimeLimitMinutes: q.TimeLimitMinutes,
			}
			if err := s.sessions.SaveSelectedQuiz(ctx, token, selected); err != nil {
				return domain.SelectedQuiz{}, err
			}
			return selected, nil
		}
	}
	return domain.SelectedQuiz{}, domain.ErrQuizNotFound
}

// SelectedQuiz returns the token's current quiz pick.
func (s *AuthService) SelectedQuiz(ctx context.Context, token string) (domain.SelectedQuiz, error) {
	selected, ok, err := s.sessions.GetSelectedQuiz(ctx, token)
	if err != nil {
		return domain.SelectedQuiz{}, err
	}
	if !ok {
		return domain.SelectedQuiz{}, domain.ErrNoQuizSelected
	}
	return selected, nil
}

// ClearSelected drops the quiz pick while keeping the session.
func (s *AuthService) ClearSelected(ctx context.Context, token string) error {
	return s.sessions.ClearSelectedQuiz(ctx, token)
}
