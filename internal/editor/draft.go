// Package editor holds the admin quiz-authoring draft: an ordered question
// list with reorder and duplicate operations, import/export of the quiz file
// format, and derivation of the backend metadata and answer-key rows.
package editor

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"hw-quiz-service/internal/app"
	"hw-quiz-service/internal/domain"
	"hw-quiz-service/internal/gateway"
)

// Draft is an in-progress quiz. Not safe for concurrent use; the transport
// layer serializes access per editing session.
type Draft struct {
	questions []domain.Question
}

func NewDraft() *Draft {
	return &Draft{}
}

func (d *Draft) Len() int {
	return len(d.questions)
}

// Questions returns a deep copy so callers cannot mutate the draft behind
// its operations.
func (d *Draft) Questions() []domain.Question {
	out := make([]domain.Question, len(d.questions))
	for i, q := range d.questions {
		out[i] = cloneQuestion(q)
	}
	return out
}

// Add appends a new question after validating it.
func (d *Draft) Add(q domain.Question) error {
	if q.Display == "" {
		q.Display = domain.DisplayText
	}
	if err := q.Validate(); err != nil {
		return err
	}
	d.questions = append(d.questions, cloneQuestion(q))
	return nil
}

// Replace swaps the question at index for a validated new one.
func (d *Draft) Replace(index int, q domain.Question) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if q.Display == "" {
		q.Display = domain.DisplayText
	}
	if err := q.Validate(); err != nil {
		return err
	}
	d.questions[index] = cloneQuestion(q)
	return nil
}

// Move shifts a question from one position to another, preserving the order
// of everything else.
func (d *Draft) Move(from, to int) error {
	if err := d.checkIndex(from); err != nil {
		return err
	}
	if err := d.checkIndex(to); err != nil {
		return err
	}
	q := d.questions[from]
	rest := append(d.questions[:from], d.questions[from+1:]...)
	d.questions = append(rest[:to], append([]domain.Question{q}, rest[to:]...)...)
	return nil
}

// Duplicate inserts a deep copy of the question right after the original.
func (d *Draft) Duplicate(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	dup := cloneQuestion(d.questions[index])
	d.questions = append(d.questions[:index+1], append([]domain.Question{dup}, d.questions[index+1:]...)...)
	return nil
}

// Remove deletes the question at index.
func (d *Draft) Remove(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.questions = append(d.questions[:index], d.questions[index+1:]...)
	return nil
}

// AddClozeSet appends a blank with its token set to a cloze question. The
// answer index for the new blank starts unset.
func (d *Draft) AddClozeSet(index int, tokens []string) error {
	cloze, err := d.clozeAt(index)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: a blank needs at least one token", domain.ErrContentInvalid)
	}
	padAnswers(cloze)
	cloze.OptionSets = append(cloze.OptionSets, append([]string(nil), tokens...))
	cloze.AnswerIndices = append(cloze.AnswerIndices, domain.Unanswered)
	return nil
}

// DuplicateClozeSet inserts a copy of a blank right after the original,
// carrying its answer index along.
func (d *Draft) DuplicateClozeSet(index, set int) error {
	cloze, err := d.clozeAt(index)
	if err != nil {
		return err
	}
	if set < 0 || set >= len(cloze.OptionSets) {
		return fmt.Errorf("%w: no blank %d", domain.ErrContentInvalid, set)
	}
	tokens := append([]string(nil), cloze.OptionSets[set]...)
	answer := answerIndexAt(cloze, set)
	padAnswers(cloze)
	cloze.OptionSets = append(cloze.OptionSets[:set+1], append([][]string{tokens}, cloze.OptionSets[set+1:]...)...)
	cloze.AnswerIndices = append(cloze.AnswerIndices[:set+1], append([]int{answer}, cloze.AnswerIndices[set+1:]...)...)
	return nil
}

// MoveClozeSet shifts a blank from one position to another, keeping its
// answer index with it.
func (d *Draft) MoveClozeSet(index, from, to int) error {
	cloze, err := d.clozeAt(index)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(cloze.OptionSets) || to < 0 || to >= len(cloze.OptionSets) {
		return fmt.Errorf("%w: blank move out of range", domain.ErrContentInvalid)
	}
	padAnswers(cloze)

	tokens := cloze.OptionSets[from]
	sets := append(cloze.OptionSets[:from], cloze.OptionSets[from+1:]...)
	cloze.OptionSets = append(sets[:to], append([][]string{tokens}, sets[to:]...)...)

	answer := cloze.AnswerIndices[from]
	answers := append(cloze.AnswerIndices[:from], cloze.AnswerIndices[from+1:]...)
	cloze.AnswerIndices = append(answers[:to], append([]int{answer}, answers[to:]...)...)
	return nil
}

// RemoveClozeSet deletes a blank and its answer index. The last blank cannot
// be removed; a cloze question needs at least one.
func (d *Draft) RemoveClozeSet(index, set int) error {
	cloze, err := d.clozeAt(index)
	if err != nil {
		return err
	}
	if set < 0 || set >= len(cloze.OptionSets) {
		return fmt.Errorf("%w: no blank %d", domain.ErrContentInvalid, set)
	}
	if len(cloze.OptionSets) == 1 {
		return fmt.Errorf("%w: cloze question needs at least one blank", domain.ErrContentInvalid)
	}
	padAnswers(cloze)
	cloze.OptionSets = append(cloze.OptionSets[:set], cloze.OptionSets[set+1:]...)
	cloze.AnswerIndices = append(cloze.AnswerIndices[:set], cloze.AnswerIndices[set+1:]...)
	return nil
}

// Import replaces the draft with the content of a quiz file (bare array or
// wrapped form). A file that fails to parse leaves the draft untouched.
func (d *Draft) Import(data []byte) error {
	questions, err := domain.ParseQuestions(data)
	if err != nil {
		return err
	}
	d.questions = questions
	return nil
}

// Export serializes the draft in the quiz file format, indented for hand
// editing.
func (d *Draft) Export() ([]byte, error) {
	if len(d.questions) == 0 {
		return nil, fmt.Errorf("%w: draft is empty", domain.ErrContentInvalid)
	}
	return json.MarshalIndent(d.questions, "", "  ")
}

// BuildMeta derives the backend quiz-metadata row. An empty title defaults
// to the file's base name without its extension; total points equal the
// question count.
func (d *Draft) BuildMeta(quizID, title, file string, version, timeLimitMinutes int, active bool) (gateway.QuizMeta, error) {
	if title == "" {
		title = titleFromFile(file)
	}
	if version <= 0 {
		version = 1
	}
	meta := gateway.QuizMeta{
		QuizID:           quizID,
		QuizVersion:      version,
		Title:            title,
		TotalPoints:      len(d.questions),
		IsActive:         active,
		File:             file,
		TimeLimitMinutes: timeLimitMinutes,
	}
	if err := validateMeta(meta); err != nil {
		return gateway.QuizMeta{}, err
	}
	return meta, nil
}

// BuildAnswerKeys re-derives the answer-key rows from the draft questions:
// choice answers resolve to their option index, cloze answers travel as the
// per-blank index list.
func (d *Draft) BuildAnswerKeys() []gateway.AnswerKey {
	keys := make([]gateway.AnswerKey, len(d.questions))
	for i, q := range d.questions {
		keys[i] = gateway.AnswerKey{QIndex: i}
		switch q.Type {
		case domain.TypeChoice:
			if idx := app.ChoiceCorrectIndex(q); idx >= 0 {
				v := idx
				keys[i].CorrectIndex = &v
			}
		case domain.TypeCloze:
			keys[i].CorrectIndices = append([]int(nil), q.Cloze.AnswerIndices...)
		}
	}
	return keys
}

// PreviewRow is one question rendered for the editor's preview pane.
type PreviewRow struct {
	Index  int                 `json:"index"`
	Type   domain.QuestionType `json:"type"`
	Stem   app.StemView        `json:"stem"`
	Answer string              `json:"answer"`
}

// Preview renders the whole draft with each question's answer key as display
// text.
func (d *Draft) Preview() []PreviewRow {
	rows := make([]PreviewRow, len(d.questions))
	for i, q := range d.questions {
		rows[i] = PreviewRow{
			Index:  i,
			Type:   q.Type,
			Stem:   app.StemViewOf(q),
			Answer: app.CorrectText(q),
		}
	}
	return rows
}

func (d *Draft) checkIndex(index int) error {
	if index < 0 || index >= len(d.questions) {
		return fmt.Errorf("%w: no question %d", domain.ErrContentInvalid, index)
	}
	return nil
}

func (d *Draft) clozeAt(index int) (*domain.ClozeBody, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	q := d.questions[index]
	if q.Type != domain.TypeCloze {
		return nil, fmt.Errorf("%w: question %d is not a cloze question", domain.ErrContentInvalid, index)
	}
	return q.Cloze, nil
}

// answerIndexAt reads a blank's answer index, Unanswered when the key list
// is shorter than the set list.
func answerIndexAt(cloze *domain.ClozeBody, set int) int {
	if set < len(cloze.AnswerIndices) {
		return cloze.AnswerIndices[set]
	}
	return domain.Unanswered
}

// padAnswers grows AnswerIndices to match OptionSets so positional edits
// stay aligned.
func padAnswers(cloze *domain.ClozeBody) {
	for len(cloze.AnswerIndices) < len(cloze.OptionSets) {
		cloze.AnswerIndices = append(cloze.AnswerIndices, domain.Unanswered)
	}
}

func cloneQuestion(q domain.Question) domain.Question {
	out := q
	if q.Choice != nil {
		out.Choice = &domain.ChoiceBody{
			Options: append([]string(nil), q.Choice.Options...),
			Answer:  q.Choice.Answer,
		}
	}
	if q.Cloze != nil {
		sets := make([][]string, len(q.Cloze.OptionSets))
		for i, set := range q.Cloze.OptionSets {
			sets[i] = append([]string(nil), set...)
		}
		out.Cloze = &domain.ClozeBody{
			Template:      q.Cloze.Template,
			OptionSets:    sets,
			AnswerIndices: append([]int(nil), q.Cloze.AnswerIndices...),
		}
	}
	return out
}

func titleFromFile(file string) string {
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}
