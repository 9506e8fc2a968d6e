package app

import (
	"fmt"

	"hw-quiz-service/internal/domain"
)

// ViewSnapshot is the full picture a connected client needs to render the
// attempt surface. Every broadcast carries a complete snapshot so clients
// never have to patch partial state.
type ViewSnapshot struct {
	Phase       Phase          `json:"phase"`
	QuizID      string         `json:"quiz_id,omitempty"`
	QuizName    string         `json:"quiz_name,omitempty"`
	QuizVersion int            `json:"quiz_version,omitempty"`
	Index       int            `json:"index"`
	Total       int            `json:"total"`
	Question    *QuestionView  `json:"question,omitempty"`
	Sidebar     []SidebarItem  `json:"sidebar,omitempty"`
	Timer       *TimerView     `json:"timer,omitempty"`
	Locked      bool           `json:"locked"`
	Result      *ResultView    `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// QuestionView is the current question rendered for display: the stem, the
// selectable options or blank token sets, and the user's current picks.
type QuestionView struct {
	Type    domain.QuestionType `json:"type"`
	Stem    StemView            `json:"stem"`
	Options []OptionView        `json:"options,omitempty"`
	Blanks  []BlankView         `json:"blanks,omitempty"`
	IsLast  bool                `json:"is_last"`
}

type OptionView struct {
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// BlankView carries one blank's token set and which token is picked,
// Unanswered when none.
type BlankView struct {
	Tokens   []string `json:"tokens"`
	Selected int      `json:"selected"`
}

// SidebarItem marks one question button: answered questions render
// differently, and the current one is highlighted.
type SidebarItem struct {
	Index    int  `json:"index"`
	Answered bool `json:"answered"`
	Current  bool `json:"current"`
}

// ResultView reports the attempt outcome: the provisional local score first,
// superseded by the server score once the upload settles.
type ResultView struct {
	Score     Score        `json:"score"`
	Status    string       `json:"status"`
	Review    []ReviewItem `json:"review,omitempty"`
	Submitted string       `json:"submitted_at,omitempty"`
}

func questionViewOf(q domain.Question, a domain.Answer, last bool) *QuestionView {
	view := &QuestionView{Type: q.Type, Stem: StemViewOf(q), IsLast: last}
	switch q.Type {
	case domain.TypeChoice:
		view.Options = make([]OptionView, len(q.Choice.Options))
		for i, opt := range q.Choice.Options {
			view.Options[i] = OptionView{Text: opt, Selected: i == a.Selected}
		}
	case domain.TypeCloze:
		view.Blanks = make([]BlankView, len(q.Cloze.OptionSets))
		for b, set := range q.Cloze.OptionSets {
			sel := domain.Unanswered
			if b < len(a.Blanks) {
				sel = a.Blanks[b]
			}
			view.Blanks[b] = BlankView{Tokens: set, Selected: sel}
		}
	}
	return view
}

func errorQuestionView(index, total int) *QuestionView {
	return &QuestionView{
		Type: domain.TypeChoice,
		Stem: StemView{Mode: "text", Text: fmt.Sprintf("question %d/%d unavailable", index+1, total)},
	}
}

func sidebarOf(questions []domain.Question, answers []domain.Answer, current int) []SidebarItem {
	items := make([]SidebarItem, len(questions))
	for i, q := range questions {
		answered := false
		if i < len(answers) {
			answered = answers[i].Answered(q)
		}
		items[i] = SidebarItem{Index: i, Answered: answered, Current: i == current}
	}
	return items
}
