package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hw-quiz-service/internal/domain"
)

// SessionStore keeps sessions and selected-quiz pointers in Redis so a
// restart of the service does not log every client out. Values are JSON under
// two distinct keys per client token and are always cleared together on
// logout.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) SaveSession(ctx context.Context, token string, sess domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(token), raw, s.ttl).Err()
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *SessionStore) ClearSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token), selectedKey(token)).Err()
}

func (s *SessionStore) SaveSelectedQuiz(ctx context.Context, token string, quiz domain.SelectedQuiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, selectedKey(token), raw, s.ttl).Err()
}

func (s *SessionStore) GetSelectedQuiz(ctx context.Context, token string) (domain.SelectedQuiz, bool, error) {
	raw, err := s.client.Get(ctx, selectedKey(token)).Bytes()
	if err == redis.Nil {
		return domain.SelectedQuiz{}, false, nil
	}
	if err != nil {
		return domain.SelectedQuiz{}, false, err
	}
	var quiz domain.SelectedQuiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.SelectedQuiz{}, false, nil
	}
	return quiz, true, nil
}

func (s *SessionStore) ClearSelectedQuiz(ctx context.Context, token string) error {
	return s.client.Del(ctx, selectedKey(token)).Err()
}

func sessionKey(token string) string {
	return "hw:session:" + token
}

func selectedKey(token string) string {
	return "hw:current:" + token
}
