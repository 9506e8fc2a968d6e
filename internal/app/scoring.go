package app

import (
	"strings"

	"hw-quiz-service/internal/domain"
)

const (
	textUnanswered = "(not answered)"
	textNoKey      = "(no answer key)"
	clozeEmptyMark = "∅"
)

// Score is a question-count score: fully-correct questions over total.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

func (s Score) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}

// ChoiceCorrectIndex resolves the designated answer string to an option
// index by linear scan. First text match wins when options repeat; -1 when
// the answer matches nothing.
func ChoiceCorrectIndex(q domain.Question) int {
	if q.Choice == nil {
		return -1
	}
	for i, opt := range q.Choice.Options {
		if opt == q.Choice.Answer {
			return i
		}
	}
	return -1
}

// QuestionCorrect applies the per-type correctness rule: choice needs the
// selected index to equal the answer's option index; cloze needs the
// selected-indices array to match the correct-indices array element-wise at
// equal length.
func QuestionCorrect(q domain.Question, a domain.Answer) bool {
	switch q.Type {
	case domain.TypeChoice:
		correct := ChoiceCorrectIndex(q)
		return correct >= 0 && a.Selected == correct
	case domain.TypeCloze:
		key := q.Cloze.AnswerIndices
		if len(key) == 0 || len(a.Blanks) != len(key) {
			return false
		}
		for i, idx := range a.Blanks {
			if idx != key[i] {
				return false
			}
		}
		return true
	}
	return false
}

// LocalScore computes the provisional score over a whole attempt. Pure:
// recomputing over the same inputs always yields the same score.
func LocalScore(questions []domain.Question, answers []domain.Answer) Score {
	score := Score{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && QuestionCorrect(q, answers[i]) {
			score.Correct++
		}
	}
	return score
}

// StemView is the render-ready stem: Mode "text", "image" (the content is an
// image reference) or "text_image" (text with a side image).
type StemView struct {
	Mode          string `json:"mode"`
	Text          string `json:"text,omitempty"`
	Image         string `json:"image,omitempty"`
	ClozeTemplate string `json:"cloze_template,omitempty"`
}

// StemViewOf applies the display rules shared by the quiz, review, history
// and editor-preview surfaces.
func StemViewOf(q domain.Question) StemView {
	view := StemView{Mode: "text", Text: q.Content}
	if q.Cloze != nil {
		view.ClozeTemplate = q.Cloze.Template
	}
	switch {
	case q.Display == domain.DisplayImage:
		view.Mode = "image"
		view.Text = ""
		view.Image = q.Content
	case q.Image != "":
		view.Mode = "text_image"
		view.Image = q.Image
	}
	return view
}

// ReviewItem is one wrong-answer row: the stem plus the user's answer and the
// correct answer rendered back to display text.
type ReviewItem struct {
	Index   int      `json:"index"`
	Stem    StemView `json:"stem"`
	Your    string   `json:"your"`
	Correct string   `json:"correct"`
}

// BuildReview lists every incorrect question of an attempt, in order.
func BuildReview(questions []domain.Question, answers []domain.Answer) []ReviewItem {
	var review []ReviewItem
	for i, q := range questions {
		var a domain.Answer
		if i < len(answers) {
			a = answers[i]
		}
		if QuestionCorrect(q, a) {
			continue
		}
		review = append(review, ReviewItem{
			Index:   i,
			Stem:    StemViewOf(q),
			Your:    AnswerText(q, a),
			Correct: CorrectText(q),
		})
	}
	return review
}

// AnswerText renders an answer slot back to display text.
func AnswerText(q domain.Question, a domain.Answer) string {
	switch q.Type {
	case domain.TypeChoice:
		if a.Selected == domain.Unanswered || a.Selected < 0 || a.Selected >= len(q.Choice.Options) {
			return textUnanswered
		}
		return q.Choice.Options[a.Selected]
	case domain.TypeCloze:
		return FormatClozePicks(q, a.Blanks, textUnanswered)
	}
	return textUnanswered
}

// CorrectText renders a question's answer key to display text.
func CorrectText(q domain.Question) string {
	switch q.Type {
	case domain.TypeChoice:
		if idx := ChoiceCorrectIndex(q); idx >= 0 {
			return q.Choice.Options[idx]
		}
		if q.Choice.Answer != "" {
			return q.Choice.Answer
		}
	case domain.TypeCloze:
		if len(q.Cloze.AnswerIndices) > 0 {
			return FormatClozePicks(q, q.Cloze.AnswerIndices, textNoKey)
		}
	}
	return textNoKey
}

// FormatClozePicks maps a per-blank index list to its tokens, joined with
// ", ". A pick outside its token set shows as the empty mark; a list with no
// real picks at all collapses to the fallback text.
func FormatClozePicks(q domain.Question, indices []int, fallback string) string {
	sets := q.Cloze.OptionSets
	any := false
	for _, idx := range indices {
		if idx != domain.Unanswered {
			any = true
			break
		}
	}
	if !any {
		return fallback
	}
	tokens := make([]string, len(indices))
	for b, idx := range indices {
		tokens[b] = clozeEmptyMark
		if b < len(sets) && idx >= 0 && idx < len(sets[b]) {
			tokens[b] = sets[b][idx]
		}
	}
	return strings.Join(tokens, ", ")
}
