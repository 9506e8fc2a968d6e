package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/domain"
	"hw-quiz-service/internal/gateway"
)

// Phase is the attempt lifecycle stage.
type Phase string

const (
	PhasePicking   Phase = "picking"
	PhaseAnswering Phase = "answering"
	PhaseSubmitted Phase = "submitted"
)

const uploadTimeout = 30 * time.Second

// Upload status strings shown on the result surface.
const (
	StatusUploading = "uploading"
	StatusAccepted  = "accepted"
)

// Event is one envelope pushed to attempt subscribers.
type Event struct {
	Kind   string        `json:"kind"` // view | timer | result
	View   *ViewSnapshot `json:"view,omitempty"`
	Timer  *TimerView    `json:"timer,omitempty"`
	Result *ResultView   `json:"result,omitempty"`
}

// ConfirmRequiredError reports that a submission needs explicit confirmation
// because some questions are still unanswered.
type ConfirmRequiredError struct {
	Unanswered int
}

func (e *ConfirmRequiredError) Error() string {
	return fmt.Sprintf("%d questions unanswered, confirmation required", e.Unanswered)
}

// Attempt is the per-user quiz runtime: the loaded questions, the answer
// slots, the cursor and the countdown. All mutation goes through its methods;
// every state change rebroadcasts a complete snapshot.
type Attempt struct {
	token     string
	account   string
	userAgent string
	quiz      domain.SelectedQuiz

	content   ContentRepository
	submitter Submitter
	now       func() time.Time

	mu          sync.Mutex
	phase       Phase
	questions   []domain.Question
	answers     []domain.Answer
	index       int
	startedAt   time.Time
	submittedAt time.Time
	locked      bool
	countdown   *Countdown
	result      *ResultView

	// subscribers has its own lock so timer callbacks can broadcast while
	// a.mu is held.
	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

func newAttempt(token, account, userAgent string, quiz domain.SelectedQuiz, content ContentRepository, submitter Submitter, clock func() time.Time) *Attempt {
	if clock == nil {
		clock = time.Now
	}
	return &Attempt{
		token:       token,
		account:     account,
		userAgent:   userAgent,
		quiz:        quiz,
		content:     content,
		submitter:   submitter,
		now:         clock,
		phase:       PhasePicking,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Quiz returns the quiz this attempt runs against.
func (a *Attempt) Quiz() domain.SelectedQuiz {
	return a.quiz
}

// Start loads the quiz content and moves the attempt to the answering phase,
// resetting any previous progress. A timed quiz arms its countdown here.
func (a *Attempt) Start(ctx context.Context) error {
	questions, err := a.content.GetQuestions(ctx, a.quiz.File)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.countdown != nil {
		a.countdown.Cancel()
		a.countdown = nil
	}
	a.questions = questions
	a.beginLocked()
	a.mu.Unlock()

	a.broadcastView()
	return nil
}

// beginLocked resets cursor, answers and clock for a fresh run over the
// already-loaded questions. Caller holds a.mu.
func (a *Attempt) beginLocked() {
	a.answers = domain.NewAnswers(a.questions)
	a.index = 0
	a.startedAt = a.now()
	a.submittedAt = time.Time{}
	a.phase = PhaseAnswering
	a.locked = false
	a.result = nil
	if a.quiz.TimeLimitMinutes > 0 {
		limit := time.Duration(a.quiz.TimeLimitMinutes) * time.Minute
		a.countdown = NewCountdown(a.startedAt, limit, a.now, a.pushTimer, a.forceSubmit)
		a.countdown.Run()
	}
}

// Prev moves the cursor back one question; a no-op at the first.
func (a *Attempt) Prev() {
	a.goTo(a.cursor() - 1)
}

// Next moves the cursor forward one question; a no-op at the last.
func (a *Attempt) Next() {
	a.goTo(a.cursor() + 1)
}

// GoTo jumps straight to a question by index. Out-of-range targets are
// ignored.
func (a *Attempt) GoTo(index int) {
	a.goTo(index)
}

func (a *Attempt) cursor() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index
}

func (a *Attempt) goTo(index int) {
	a.mu.Lock()
	if a.phase != PhaseAnswering || index < 0 || index >= len(a.questions) || index == a.index {
		a.mu.Unlock()
		return
	}
	a.index = index
	a.mu.Unlock()
	a.broadcastView()
}

// SelectChoice records an option pick on the current question. Ignored when
// the attempt is locked or the current question is not a choice question.
func (a *Attempt) SelectChoice(option int) {
	a.mu.Lock()
	q, ok := a.currentLocked()
	if !ok || q.Type != domain.TypeChoice || option < 0 || option >= len(q.Choice.Options) {
		a.mu.Unlock()
		return
	}
	a.answers[a.index].Selected = option
	a.mu.Unlock()
	a.broadcastView()
}

// SelectBlank records a token pick for one blank of the current cloze
// question.
func (a *Attempt) SelectBlank(blank, token int) {
	a.mu.Lock()
	q, ok := a.currentLocked()
	if !ok || q.Type != domain.TypeCloze || blank < 0 || blank >= len(q.Cloze.OptionSets) {
		a.mu.Unlock()
		return
	}
	if token < 0 || token >= len(q.Cloze.OptionSets[blank]) {
		a.mu.Unlock()
		return
	}
	a.answers[a.index].Blanks[blank] = token
	a.mu.Unlock()
	a.broadcastView()
}

// currentLocked returns the question under the cursor when the attempt
// accepts input. Caller holds a.mu.
func (a *Attempt) currentLocked() (domain.Question, bool) {
	if a.phase != PhaseAnswering || a.locked || a.index < 0 || a.index >= len(a.questions) {
		return domain.Question{}, false
	}
	return a.questions[a.index], true
}

// Submit finalizes the attempt. With unanswered questions left and confirmed
// false it refuses with ConfirmRequiredError so the caller can prompt;
// confirmed true submits regardless.
func (a *Attempt) Submit(confirmed bool) error {
	a.mu.Lock()
	if a.phase == PhaseSubmitted {
		a.mu.Unlock()
		return domain.ErrAttemptLocked
	}
	if a.phase != PhaseAnswering {
		a.mu.Unlock()
		return domain.ErrNoAttempt
	}
	if !confirmed {
		unanswered := 0
		for i, q := range a.questions {
			if !a.answers[i].Answered(q) {
				unanswered++
			}
		}
		if unanswered > 0 {
			a.mu.Unlock()
			return &ConfirmRequiredError{Unanswered: unanswered}
		}
	}
	a.finalizeLocked()
	return nil
}

// forceSubmit is the countdown expiry path: finalize without confirmation.
func (a *Attempt) forceSubmit() {
	a.mu.Lock()
	if a.phase != PhaseAnswering {
		a.mu.Unlock()
		return
	}
	log.Info().Str("quiz", a.quiz.ID).Str("account", a.account).Msg("time expired, auto-submitting attempt")
	a.finalizeLocked()
}

// finalizeLocked locks the attempt, scores it locally and kicks off the
// backend upload. Caller holds a.mu; released here.
func (a *Attempt) finalizeLocked() {
	a.phase = PhaseSubmitted
	a.locked = true
	a.submittedAt = a.now()
	if a.countdown != nil {
		a.countdown.Cancel()
		a.countdown = nil
	}
	a.result = &ResultView{
		Score:     LocalScore(a.questions, a.answers),
		Status:    StatusUploading,
		Review:    BuildReview(a.questions, a.answers),
		Submitted: a.submittedAt.UTC().Format(time.RFC3339),
	}
	payload := a.payloadLocked()
	a.mu.Unlock()

	a.broadcastView()
	go a.upload(payload)
}

// payloadLocked builds the submission body from the current answers. Caller
// holds a.mu.
func (a *Attempt) payloadLocked() gateway.AttemptPayload {
	entries := make([]gateway.AnswerEntry, len(a.questions))
	for i, q := range a.questions {
		entries[i] = gateway.AnswerEntry{QIndex: i}
		switch q.Type {
		case domain.TypeChoice:
			if sel := a.answers[i].Selected; sel != domain.Unanswered {
				v := sel
				entries[i].SelectedIndex = &v
			}
		case domain.TypeCloze:
			entries[i].SelectedIndices = a.answers[i].Blanks
		}
	}
	return gateway.AttemptPayload{
		Account:           a.account,
		QuizID:            a.quiz.ID,
		QuizVersion:       a.quiz.Version,
		Answers:           entries,
		ClientStartedAt:   a.startedAt.UTC().Format(time.RFC3339),
		ClientSubmittedAt: a.submittedAt.UTC().Format(time.RFC3339),
		UserAgent:         a.userAgent,
	}
}

// upload sends the finished attempt to the backend and reconciles the server
// score over the provisional local one.
func (a *Attempt) upload(payload gateway.AttemptPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	res, err := a.submitter.SubmitAttempt(ctx, payload)

	a.mu.Lock()
	if a.result == nil {
		a.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		log.Warn().Err(err).Str("quiz", payload.QuizID).Msg("attempt upload failed")
		a.result.Status = "upload failed: " + err.Error()
	case !res.OK:
		a.result.Status = "rejected: " + res.Error
	default:
		a.result.Score = Score{Correct: res.Score, Total: res.MaxScore}
		a.result.Status = StatusAccepted
	}
	result := *a.result
	a.mu.Unlock()

	a.broadcast(Event{Kind: "result", Result: &result})
}

// Restart runs the same quiz again after a submission.
func (a *Attempt) Restart() error {
	a.mu.Lock()
	if a.phase != PhaseSubmitted {
		a.mu.Unlock()
		return domain.ErrNoAttempt
	}
	a.beginLocked()
	a.mu.Unlock()

	a.broadcastView()
	return nil
}

// BackToPicker abandons the attempt surface and returns to quiz selection.
// The in-progress answers are discarded.
func (a *Attempt) BackToPicker() {
	a.mu.Lock()
	if a.countdown != nil {
		a.countdown.Cancel()
		a.countdown = nil
	}
	a.phase = PhasePicking
	a.questions = nil
	a.answers = nil
	a.index = 0
	a.locked = false
	a.result = nil
	a.mu.Unlock()

	a.broadcastView()
}

// Snapshot returns the full current view.
func (a *Attempt) Snapshot() ViewSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Attempt) snapshotLocked() ViewSnapshot {
	snap := ViewSnapshot{
		Phase:       a.phase,
		QuizID:      a.quiz.ID,
		QuizName:    a.quiz.Name,
		QuizVersion: a.quiz.Version,
		Index:       a.index,
		Total:       len(a.questions),
		Locked:      a.locked,
	}
	if a.result != nil {
		// Copy: the upload goroutine rewrites the live result when the
		// backend answers.
		result := *a.result
		snap.Result = &result
	}
	if a.phase == PhasePicking {
		return snap
	}
	snap.Sidebar = sidebarOf(a.questions, a.answers, a.index)
	if a.index >= 0 && a.index < len(a.questions) {
		snap.Question = questionViewOf(a.questions[a.index], a.answers[a.index], a.index == len(a.questions)-1)
	} else if len(a.questions) > 0 {
		snap.Question = errorQuestionView(a.index, len(a.questions))
		snap.Error = "current question unavailable"
	}
	if a.countdown != nil {
		view := a.countdown.View()
		snap.Timer = &view
	}
	return snap
}

// Subscribe registers a listener for attempt events, primed with the current
// view. The caller must invoke the returned cancel function to avoid leaks.
func (a *Attempt) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	a.mu.Lock()
	initial := a.snapshotLocked()
	a.mu.Unlock()

	a.subMu.Lock()
	a.subscribers[ch] = struct{}{}
	a.subMu.Unlock()

	ch <- Event{Kind: "view", View: &initial}

	cancel := func() {
		a.subMu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.subMu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) broadcastView() {
	a.mu.Lock()
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.broadcast(Event{Kind: "view", View: &snap})
}

func (a *Attempt) pushTimer(view TimerView) {
	a.broadcast(Event{Kind: "timer", Timer: &view})
}

func (a *Attempt) broadcast(ev Event) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for ch := range a.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop its oldest pending event and retry so
			// broadcast never blocks.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
