package domain

import (
	"encoding/json"
	"fmt"
)

// QuestionType discriminates the two question variants.
type QuestionType string

const (
	TypeChoice QuestionType = "choice"
	TypeCloze  QuestionType = "cloze"
)

// DisplayMode controls how the stem is rendered. It is orthogonal to the
// question type: "image" means the stem content is an image reference, "text"
// with a non-empty Image means text with a side image.
type DisplayMode string

const (
	DisplayText  DisplayMode = "text"
	DisplayImage DisplayMode = "image"
)

// ChoiceBody holds the fields required by a single-select choice question.
// The correct option is designated by exact string match against Options,
// not by index; if two options share the same text the first match wins.
type ChoiceBody struct {
	Options []string
	Answer  string
}

// ClozeBody holds the fields required by a fill-in-the-blank question.
// OptionSets is ordered, one candidate token set per blank; AnswerIndices
// carries one correct token index per blank.
type ClozeBody struct {
	Template      string
	OptionSets    [][]string
	AnswerIndices []int
}

// Question is a tagged union: exactly one of Choice or Cloze is non-nil,
// matching Type. Instances produced by parsing always satisfy that; hand-built
// ones should go through Validate.
type Question struct {
	Type    QuestionType
	Display DisplayMode
	Content string
	Image   string
	Choice  *ChoiceBody
	Cloze   *ClozeBody
}

// questionWire is the JSON shape used by quiz content files and the editor.
type questionWire struct {
	QuestionType       string     `json:"question_type"`
	DisplayType        string     `json:"display_type,omitempty"`
	QuestionContent    string     `json:"question_content"`
	QuestionImage      string     `json:"question_image,omitempty"`
	Options            []string   `json:"options,omitempty"`
	Answer             string     `json:"answer,omitempty"`
	ClozeTemplate      string     `json:"cloze_template,omitempty"`
	ClozeOptions       [][]string `json:"cloze_options,omitempty"`
	ClozeAnswerIndices []int      `json:"cloze_answer_indices,omitempty"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	display := DisplayMode(w.DisplayType)
	if display == "" {
		display = DisplayText
	}

	parsed := Question{
		Type:    QuestionType(w.QuestionType),
		Display: display,
		Content: w.QuestionContent,
		Image:   w.QuestionImage,
	}

	switch parsed.Type {
	case TypeChoice:
		parsed.Choice = &ChoiceBody{Options: w.Options, Answer: w.Answer}
	case TypeCloze:
		parsed.Cloze = &ClozeBody{
			Template:      w.ClozeTemplate,
			OptionSets:    w.ClozeOptions,
			AnswerIndices: w.ClozeAnswerIndices,
		}
	default:
		return fmt.Errorf("%w: unknown question_type %q", ErrContentInvalid, w.QuestionType)
	}

	if err := parsed.Validate(); err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{
		QuestionType:    string(q.Type),
		DisplayType:     string(q.Display),
		QuestionContent: q.Content,
		QuestionImage:   q.Image,
	}
	switch {
	case q.Choice != nil:
		w.Options = q.Choice.Options
		w.Answer = q.Choice.Answer
	case q.Cloze != nil:
		w.ClozeTemplate = q.Cloze.Template
		w.ClozeOptions = q.Cloze.OptionSets
		w.ClozeAnswerIndices = q.Cloze.AnswerIndices
	}
	return json.Marshal(w)
}

// Validate enforces the per-variant required-field set.
func (q Question) Validate() error {
	if q.Content == "" {
		return fmt.Errorf("%w: question_content is required", ErrContentInvalid)
	}
	switch q.Type {
	case TypeChoice:
		if q.Cloze != nil || q.Choice == nil {
			return fmt.Errorf("%w: choice question carries the wrong body", ErrContentInvalid)
		}
		if len(q.Choice.Options) == 0 {
			return fmt.Errorf("%w: choice question needs at least one option", ErrContentInvalid)
		}
		if q.Choice.Answer == "" {
			return fmt.Errorf("%w: choice question needs an answer", ErrContentInvalid)
		}
	case TypeCloze:
		if q.Choice != nil || q.Cloze == nil {
			return fmt.Errorf("%w: cloze question carries the wrong body", ErrContentInvalid)
		}
		if q.Cloze.Template == "" {
			return fmt.Errorf("%w: cloze question needs a cloze_template", ErrContentInvalid)
		}
		if len(q.Cloze.OptionSets) == 0 {
			return fmt.Errorf("%w: cloze question needs at least one option set", ErrContentInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown question_type %q", ErrContentInvalid, q.Type)
	}
	return nil
}

// Blanks reports the number of blanks a cloze question expects; zero for choice.
func (q Question) Blanks() int {
	if q.Cloze == nil {
		return 0
	}
	return len(q.Cloze.OptionSets)
}

// ParseQuestions decodes a quiz content file: either a bare JSON array of
// question objects or an object wrapping it as {"questions":[...]}.
func ParseQuestions(data []byte) ([]Question, error) {
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		var wrapped struct {
			Questions []Question `json:"questions"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.Questions == nil {
			return nil, fmt.Errorf("%w: expected an array of questions or {questions:[...]}", ErrContentInvalid)
		}
		questions = wrapped.Questions
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", ErrContentInvalid)
	}
	return questions, nil
}
