package app

import (
	"sync"
	"time"

	"hw-quiz-service/internal/domain"
)

// AttemptManager keeps one live Attempt per client token. Opening an attempt
// for a token replaces any previous one.
type AttemptManager struct {
	content   ContentRepository
	submitter Submitter
	now       func() time.Time

	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewAttemptManager(content ContentRepository, submitter Submitter) *AttemptManager {
	return NewAttemptManagerWithClock(content, submitter, time.Now)
}

// NewAttemptManagerWithClock is test-only for deterministic timestamps.
func NewAttemptManagerWithClock(content ContentRepository, submitter Submitter, now func() time.Time) *AttemptManager {
	return &AttemptManager{
		content:   content,
		submitter: submitter,
		now:       now,
		attempts:  make(map[string]*Attempt),
	}
}

// Open creates a fresh attempt for the token, discarding any previous one.
func (m *AttemptManager) Open(token, account, userAgent string, quiz domain.SelectedQuiz) *Attempt {
	attempt := newAttempt(token, account, userAgent, quiz, m.content, m.submitter, m.now)

	m.mu.Lock()
	prev := m.attempts[token]
	m.attempts[token] = attempt
	m.mu.Unlock()

	if prev != nil {
		prev.BackToPicker()
	}
	return attempt
}

// Get returns the token's live attempt, if any.
func (m *AttemptManager) Get(token string) (*Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[token]
	return attempt, ok
}

// Drop discards the token's attempt, stopping its countdown.
func (m *AttemptManager) Drop(token string) {
	m.mu.Lock()
	attempt := m.attempts[token]
	delete(m.attempts, token)
	m.mu.Unlock()

	if attempt != nil {
		attempt.BackToPicker()
	}
}
