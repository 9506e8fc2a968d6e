package memory

import (
	"context"
	"testing"

	"hw-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if _, ok, _ := store.GetSession(ctx, "t1"); ok {
		t.Fatalf("expected no session before save")
	}

	sess := domain.Session{Account: "s001", DisplayName: "Alice", Role: "plain"}
	if err := store.SaveSession(ctx, "t1", sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.SaveSelectedQuiz(ctx, "t1", domain.SelectedQuiz{ID: "alg-1", File: "questions/alg-1.json"}); err != nil {
		t.Fatalf("save selected: %v", err)
	}

	got, ok, _ := store.GetSession(ctx, "t1")
	if !ok || got.Account != "s001" {
		t.Fatalf("unexpected session: %+v ok=%v", got, ok)
	}
	if quiz, ok, _ := store.GetSelectedQuiz(ctx, "t1"); !ok || quiz.ID != "alg-1" {
		t.Fatalf("unexpected selected quiz: %+v ok=%v", quiz, ok)
	}

	// Logout clears the session and the pointer together.
	if err := store.ClearSession(ctx, "t1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.GetSession(ctx, "t1"); ok {
		t.Fatalf("session should be gone")
	}
	if _, ok, _ := store.GetSelectedQuiz(ctx, "t1"); ok {
		t.Fatalf("selected quiz should be cleared with the session")
	}
}

func TestClearSelectedQuizKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	_ = store.SaveSession(ctx, "t1", domain.Session{Account: "s001"})
	_ = store.SaveSelectedQuiz(ctx, "t1", domain.SelectedQuiz{ID: "alg-1"})

	_ = store.ClearSelectedQuiz(ctx, "t1")
	if _, ok, _ := store.GetSelectedQuiz(ctx, "t1"); ok {
		t.Fatalf("selected quiz should be cleared")
	}
	if _, ok, _ := store.GetSession(ctx, "t1"); !ok {
		t.Fatalf("session must survive clearing the pointer")
	}
}
