package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/domain"
)

// Client talks to the opaque scoring backend: one endpoint URL, JSON in and
// out, no retries. A transport failure or a non-JSON body is normalized to
// domain.ErrBackendUnavailable so callers handle it like an explicit ok:false.
type Client struct {
	endpoint string
	httpc    *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// AuthResult mirrors the backend's auth reply.
type AuthResult struct {
	OK          bool                  `json:"ok"`
	Error       string                `json:"error,omitempty"`
	Account     string                `json:"account"`
	DisplayName string                `json:"display_name"`
	Role        string                `json:"role"`
	Quizzes     []domain.AssignedQuiz `json:"quizzes"`
}

// Authenticate verifies credentials. The context is the cancellation signal:
// a caller issuing a fresh attempt cancels the prior one through it.
func (c *Client) Authenticate(ctx context.Context, account, password string) (*AuthResult, error) {
	body := map[string]any{"action": "auth", "account": account, "password": password}
	var result AuthResult
	if err := c.post(ctx, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnswerEntry is one normalized answer row of a submission payload.
type AnswerEntry struct {
	QIndex          int   `json:"q_index"`
	SelectedIndex   *int  `json:"selected_index,omitempty"`
	SelectedIndices []int `json:"selected_indices,omitempty"`
}

// AttemptPayload is the attempt submission body. It carries no action tag;
// the backend recognizes it by shape.
type AttemptPayload struct {
	Account           string        `json:"account"`
	QuizID            string        `json:"quiz_id"`
	QuizVersion       int           `json:"quiz_version"`
	Answers           []AnswerEntry `json:"answers"`
	ClientStartedAt   string        `json:"client_started_at"`
	ClientSubmittedAt string        `json:"client_submitted_at"`
	UserAgent         string        `json:"user_agent"`
}

// SubmitResult is the backend's authoritative scoring reply.
type SubmitResult struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
}

// SubmitAttempt uploads one attempt for server-side scoring. Fire and forget:
// a failure is reported to the caller but never retried here.
func (c *Client) SubmitAttempt(ctx context.Context, payload AttemptPayload) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.post(ctx, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HistoryItem is one row of the history list. The best and all scopes share
// the card shape; best-scope rows fill the Best* fields instead.
type HistoryItem struct {
	AttemptID         string `json:"attempt_id"`
	QuizID            string `json:"quiz_id"`
	QuizVersion       int    `json:"quiz_version"`
	Title             string `json:"title,omitempty"`
	Score             int    `json:"score,omitempty"`
	MaxScore          int    `json:"max_score,omitempty"`
	BestScore         int    `json:"best_score,omitempty"`
	BestMax           int    `json:"best_max,omitempty"`
	ClientStartedAt   string `json:"client_started_at,omitempty"`
	ClientSubmittedAt string `json:"client_submitted_at,omitempty"`
	ServerUpdatedAt   string `json:"server_updated_at,omitempty"`
}

type historyListResult struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	Items []HistoryItem `json:"items"`
}

// HistoryList fetches the account's attempt history, scope "best" or "all".
func (c *Client) HistoryList(ctx context.Context, account, scope string) ([]HistoryItem, error) {
	query := url.Values{"action": {"history_list"}, "account": {account}, "scope": {scope}}
	var result historyListResult
	if err := c.get(ctx, query, &result); err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, backendError(result.Error)
	}
	return result.Items, nil
}

// AttemptDetail is the stored record of one past attempt.
type AttemptDetail struct {
	QuizID            string        `json:"quiz_id"`
	QuizVersion       int           `json:"quiz_version"`
	Score             int           `json:"score"`
	MaxScore          int           `json:"max_score"`
	ClientStartedAt   string        `json:"client_started_at"`
	ClientSubmittedAt string        `json:"client_submitted_at"`
	Answers           []AnswerEntry `json:"answers"`
}

// QuizMetaInfo is the quiz metadata attached to an attempt detail reply.
type QuizMetaInfo struct {
	Title            string `json:"title"`
	File             string `json:"file"`
	QuizVersion      int    `json:"quiz_version"`
	TimeLimitMinutes int    `json:"time_limit_minutes,omitempty"`
}

type attemptDetailResult struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Attempt  AttemptDetail `json:"attempt"`
	QuizMeta QuizMetaInfo  `json:"quiz_meta"`
}

// FetchAttemptDetail loads one attempt with its quiz metadata.
func (c *Client) FetchAttemptDetail(ctx context.Context, account, attemptID string) (*AttemptDetail, *QuizMetaInfo, error) {
	query := url.Values{"action": {"history_detail"}, "account": {account}, "attempt_id": {attemptID}}
	var result attemptDetailResult
	if err := c.get(ctx, query, &result); err != nil {
		return nil, nil, err
	}
	if !result.OK {
		return nil, nil, backendError(result.Error)
	}
	return &result.Attempt, &result.QuizMeta, nil
}

// QuizListItem is one row of the admin quiz inventory.
type QuizListItem struct {
	QuizID           string `json:"quiz_id"`
	QuizVersion      int    `json:"quiz_version"`
	Title            string `json:"title"`
	File             string `json:"file"`
	TimeLimitMinutes int    `json:"time_limit_minutes,omitempty"`
	IsActive         bool   `json:"is_active"`
}

type quizListResult struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"`
	Items []QuizListItem `json:"items"`
}

// ListQuizzes returns the backend's quiz inventory, optionally scoped to one
// account.
func (c *Client) ListQuizzes(ctx context.Context, account string) ([]QuizListItem, error) {
	query := url.Values{"action": {"list_quizzes"}}
	if account != "" {
		query.Set("account", account)
	}
	var result quizListResult
	if err := c.get(ctx, query, &result); err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, backendError(result.Error)
	}
	return result.Items, nil
}

// QuizMeta is the admin-only quiz metadata upsert body.
type QuizMeta struct {
	Action           string `json:"action"`
	QuizID           string `json:"quiz_id" validate:"required"`
	QuizVersion      int    `json:"quiz_version" validate:"min=1"`
	Title            string `json:"title" validate:"required"`
	TotalPoints      int    `json:"total_points" validate:"min=0"`
	IsActive         bool   `json:"is_active"`
	File             string `json:"file" validate:"required"`
	TimeLimitMinutes int    `json:"time_limit_minutes" validate:"min=0"`
}

type okResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// UpsertQuizMeta writes quiz metadata. Admin only.
func (c *Client) UpsertQuizMeta(ctx context.Context, meta QuizMeta) error {
	meta.Action = "upsert_quiz"
	var result okResult
	if err := c.post(ctx, meta, &result); err != nil {
		return err
	}
	if !result.OK {
		return backendError(result.Error)
	}
	return nil
}

// AnswerKey is one row of the derived answer key table.
type AnswerKey struct {
	QIndex         int   `json:"q_index"`
	CorrectIndex   *int  `json:"correct_index,omitempty"`
	CorrectIndices []int `json:"correct_indices,omitempty"`
}

// UpsertAnswerKeys writes the derived answer keys for one quiz version.
// Admin only.
func (c *Client) UpsertAnswerKeys(ctx context.Context, quizID string, quizVersion int, keys []AnswerKey) error {
	body := map[string]any{
		"action":       "upsert_answer_keys",
		"quiz_id":      quizID,
		"quiz_version": quizVersion,
		"keys":         keys,
	}
	var result okResult
	if err := c.post(ctx, body, &result); err != nil {
		return err
	}
	if !result.OK {
		return backendError(result.Error)
	}
	return nil
}

// Ping is a best-effort warm-up request; all errors are swallowed.
func (c *Client) Ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("backend warm-up ping failed")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (c *Client) post(ctx context.Context, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	// The backend only accepts simple requests; JSON travels as text/plain.
	req.Header.Set("Content-Type", "text/plain")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		log.Warn().Err(err).Str("url", c.endpoint).Msg("backend request failed")
		return domain.ErrBackendUnavailable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrBackendUnavailable
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn().Int("status", resp.StatusCode).Msg("backend returned a non-JSON body")
		return domain.ErrBackendUnavailable
	}
	return nil
}

func backendError(msg string) error {
	if msg == "" {
		return domain.ErrBackendUnavailable
	}
	return fmt.Errorf("backend: %s", msg)
}
