package memory

import (
	"context"
	"sync"

	"hw-quiz-service/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionStore. Entries
// live for the process lifetime, which mirrors the original per-tab storage:
// they survive surface navigation but not a restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	selected map[string]domain.SelectedQuiz
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
		selected: make(map[string]domain.SelectedQuiz),
	}
}

func (s *SessionStore) SaveSession(_ context.Context, token string, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sess
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, token string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	return sess, ok, nil
}

// ClearSession removes the session and the selected-quiz pointer together.
func (s *SessionStore) ClearSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	delete(s.selected, token)
	return nil
}

func (s *SessionStore) SaveSelectedQuiz(_ context.Context, token string, quiz domain.SelectedQuiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[token] = quiz
	return nil
}

func (s *SessionStore) GetSelectedQuiz(_ context.Context, token string) (domain.SelectedQuiz, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.selected[token]
	return quiz, ok, nil
}

func (s *SessionStore) ClearSelectedQuiz(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, token)
	return nil
}
