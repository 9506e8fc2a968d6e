package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hw-quiz-service/internal/domain"
)

func TestAuthenticateSendsActionTaggedBody(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "account": "s001", "display_name": "Alice", "role": "plain",
			"quizzes": []map[string]any{{"id": "alg-1", "name": "Algebra", "file": "questions/alg-1.json", "version": 2, "time_limit_minutes": 20}},
		})
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	result, err := client.Authenticate(context.Background(), "s001", "pw")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got["action"] != "auth" || got["account"] != "s001" || got["password"] != "pw" {
		t.Fatalf("unexpected request body: %v", got)
	}
	if !result.OK || result.DisplayName != "Alice" || len(result.Quizzes) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Quizzes[0].Version != 2 || result.Quizzes[0].TimeLimitMinutes != 20 {
		t.Fatalf("unexpected quiz entry: %+v", result.Quizzes[0])
	}
}

func TestAuthenticateFailureIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "bad credentials"})
	}))
	defer server.Close()

	result, err := New(server.URL, time.Second).Authenticate(context.Background(), "s001", "nope")
	if err != nil {
		t.Fatalf("explicit failure should come back as a result: %v", err)
	}
	if result.OK || result.Error != "bad credentials" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestNonJSONBodyNormalizesToBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<!doctype html><title>error</title>"))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Authenticate(context.Background(), "a", "b")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestAuthenticateCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := New(server.URL, 10*time.Second).Authenticate(ctx, "a", "b")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("authenticate did not observe cancellation")
	}
}

func TestSubmitAttemptWireShape(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "text/plain" {
			t.Errorf("expected text/plain content type, got %q", r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "score": 2, "max_score": 3})
	}))
	defer server.Close()

	sel := 1
	payload := AttemptPayload{
		Account:           "s001",
		QuizID:            "alg-1",
		QuizVersion:       2,
		Answers:           []AnswerEntry{{QIndex: 0, SelectedIndex: &sel}, {QIndex: 1, SelectedIndices: []int{0, 2}}},
		ClientStartedAt:   "2026-09-01T10:00:00Z",
		ClientSubmittedAt: "2026-09-01T10:12:00Z",
		UserAgent:         "hw-quiz-service/test",
	}
	result, err := New(server.URL, time.Second).SubmitAttempt(context.Background(), payload)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.OK || result.Score != 2 || result.MaxScore != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, tagged := got["action"]; tagged {
		t.Fatalf("submission payload must not carry an action tag: %v", got)
	}
	answers := got["answers"].([]any)
	first := answers[0].(map[string]any)
	if first["q_index"].(float64) != 0 || first["selected_index"].(float64) != 1 {
		t.Fatalf("unexpected choice answer row: %v", first)
	}
	second := answers[1].(map[string]any)
	if _, hasChoice := second["selected_index"]; hasChoice {
		t.Fatalf("cloze row must not carry selected_index: %v", second)
	}
}

func TestHistoryListQueryShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "history_list" || q.Get("account") != "s001" || q.Get("scope") != "best" {
			t.Errorf("unexpected query: %v", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "items": []map[string]any{{"attempt_id": "a1", "quiz_id": "alg-1", "best_score": 3, "best_max": 3}}})
	}))
	defer server.Close()

	items, err := New(server.URL, time.Second).HistoryList(context.Background(), "s001", "best")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if len(items) != 1 || items[0].BestScore != 3 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestUpsertAnswerKeys(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	idx := 2
	keys := []AnswerKey{{QIndex: 0, CorrectIndex: &idx}, {QIndex: 1, CorrectIndices: []int{0, 1}}}
	if err := New(server.URL, time.Second).UpsertAnswerKeys(context.Background(), "alg-1", 2, keys); err != nil {
		t.Fatalf("upsert keys: %v", err)
	}
	if got["action"] != "upsert_answer_keys" || got["quiz_id"] != "alg-1" || got["quiz_version"].(float64) != 2 {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestPingSwallowsErrors(t *testing.T) {
	// Endpoint does not exist; Ping must still return quietly.
	New("http://127.0.0.1:1", 200*time.Millisecond).Ping(context.Background())
}
