package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func getJSON(t *testing.T, serverURL, path, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func postStatus(t *testing.T, serverURL, path, token, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, serverURL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s failed: %v", path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestUnauthenticatedRequestsRedirectToLogin(t *testing.T) {
	server, stop := newTestServer(t, "student")
	defer stop()

	var reply struct {
		OK       bool   `json:"ok"`
		Redirect string `json:"redirect"`
	}
	if status := getJSON(t, server.URL, "/api/session", "", &reply); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if reply.OK || reply.Redirect != "/login" {
		t.Fatalf("expected a login redirect, got %+v", reply)
	}

	if status := getJSON(t, server.URL, "/api/session", "stale-token", &reply); status != http.StatusUnauthorized {
		t.Fatalf("stale token should 401, got %d", status)
	}
}

func TestSessionAndQuizListRoutes(t *testing.T) {
	server, stop := newTestServer(t, "student")
	defer stop()
	token := loginAndSelect(t, server)

	var sessionReply struct {
		OK      bool `json:"ok"`
		Session struct {
			Account string `json:"account"`
			Role    string `json:"role"`
		} `json:"session"`
		Selected struct {
			ID string `json:"id"`
		} `json:"selected"`
	}
	if status := getJSON(t, server.URL, "/api/session", token, &sessionReply); status != http.StatusOK {
		t.Fatalf("session returned %d", status)
	}
	if sessionReply.Session.Account != "alice" || sessionReply.Selected.ID != "quiz-1" {
		t.Fatalf("unexpected session reply: %+v", sessionReply)
	}

	var quizReply struct {
		Quizzes []struct {
			ID string `json:"id"`
		} `json:"quizzes"`
	}
	if status := getJSON(t, server.URL, "/api/quizzes", token, &quizReply); status != http.StatusOK {
		t.Fatalf("quizzes returned %d", status)
	}
	if len(quizReply.Quizzes) != 1 || quizReply.Quizzes[0].ID != "quiz-1" {
		t.Fatalf("unexpected quiz list: %+v", quizReply)
	}

	if status := postStatus(t, server.URL, "/api/select", token, `{"quiz_id":"nope"}`); status != http.StatusNotFound {
		t.Fatalf("unassigned quiz should 404, got %d", status)
	}
}

func TestHistoryRoutes(t *testing.T) {
	server, stop := newTestServer(t, "student")
	defer stop()
	token := loginAndSelect(t, server)

	var reply struct {
		OK    bool `json:"ok"`
		Items []struct {
			AttemptID string `json:"attempt_id"`
		} `json:"items"`
	}
	if status := getJSON(t, server.URL, "/api/history?scope=best", token, &reply); status != http.StatusOK {
		t.Fatalf("history returned %d", status)
	}
	if len(reply.Items) != 1 || reply.Items[0].AttemptID != "a1" {
		t.Fatalf("unexpected history: %+v", reply)
	}
}

func TestEditorRequiresAdminRole(t *testing.T) {
	server, stop := newTestServer(t, "student")
	defer stop()
	token := loginAndSelect(t, server)

	if status := getJSON(t, server.URL, "/api/editor/draft", token, nil); status != http.StatusForbidden {
		t.Fatalf("student should be forbidden, got %d", status)
	}
}

func TestEditorDraftLifecycle(t *testing.T) {
	server, stop := newTestServer(t, "admin")
	defer stop()
	token := loginAndSelect(t, server)

	question := `{"question_type":"choice","question_content":"2+2?","options":["3","4"],"answer":"4"}`
	if status := postStatus(t, server.URL, "/api/editor/questions", token, question); status != http.StatusOK {
		t.Fatalf("add question returned %d", status)
	}
	bad := `{"question_type":"choice","question_content":"","options":[],"answer":""}`
	if status := postStatus(t, server.URL, "/api/editor/questions", token, bad); status != http.StatusBadRequest {
		t.Fatalf("invalid question should 400, got %d", status)
	}

	var draft struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if status := getJSON(t, server.URL, "/api/editor/draft", token, &draft); status != http.StatusOK {
		t.Fatalf("draft returned %d", status)
	}
	if len(draft.Questions) != 1 {
		t.Fatalf("expected 1 draft question, got %d", len(draft.Questions))
	}

	publish := `{"quiz_id":"quiz-9","file":"quizzes/new.json","version":1,"is_active":true}`
	if status := postStatus(t, server.URL, "/api/editor/publish", token, publish); status != http.StatusOK {
		t.Fatalf("publish returned %d", status)
	}
}
