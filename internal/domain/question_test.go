package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseQuestionsArray(t *testing.T) {
	data := []byte(`[
		{"question_type":"choice","display_type":"text","question_content":"1+1=?","options":["1","2","3"],"answer":"2"},
		{"question_type":"cloze","question_content":"Fill in","cloze_template":"(1) + (2) = 3","cloze_options":[["0","1","2"],["0","1","2"]],"cloze_answer_indices":[1,2]}
	]`)

	questions, err := ParseQuestions(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	choice := questions[0]
	if choice.Type != TypeChoice || choice.Choice == nil || choice.Cloze != nil {
		t.Fatalf("expected choice variant, got %+v", choice)
	}
	if choice.Choice.Answer != "2" || len(choice.Choice.Options) != 3 {
		t.Fatalf("unexpected choice body: %+v", choice.Choice)
	}

	cloze := questions[1]
	if cloze.Type != TypeCloze || cloze.Cloze == nil || cloze.Choice != nil {
		t.Fatalf("expected cloze variant, got %+v", cloze)
	}
	if cloze.Display != DisplayText {
		t.Fatalf("expected display to default to text, got %q", cloze.Display)
	}
	if cloze.Blanks() != 2 || !reflect.DeepEqual(cloze.Cloze.AnswerIndices, []int{1, 2}) {
		t.Fatalf("unexpected cloze body: %+v", cloze.Cloze)
	}
}

func TestParseQuestionsWrappedObject(t *testing.T) {
	data := []byte(`{"questions":[{"question_type":"choice","question_content":"q","options":["a"],"answer":"a"}]}`)
	questions, err := ParseQuestions(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
}

func TestParseQuestionsRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"not json":        `<!doctype html>`,
		"empty array":     `[]`,
		"unknown type":    `[{"question_type":"essay","question_content":"q"}]`,
		"missing content": `[{"question_type":"choice","options":["a"],"answer":"a"}]`,
		"no options":      `[{"question_type":"choice","question_content":"q","answer":"a"}]`,
		"no answer":       `[{"question_type":"choice","question_content":"q","options":["a"]}]`,
		"no template":     `[{"question_type":"cloze","question_content":"q","cloze_options":[["0"]]}]`,
		"no option sets":  `[{"question_type":"cloze","question_content":"q","cloze_template":"(1)"}]`,
	}
	for name, data := range cases {
		if _, err := ParseQuestions([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		} else if !errors.Is(err, ErrContentInvalid) {
			t.Errorf("%s: expected ErrContentInvalid, got %v", name, err)
		}
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	original := []byte(`[{"question_type":"cloze","display_type":"text","question_content":"Fill","question_image":"img/frac.png","cloze_template":"(1)/(2)","cloze_options":[["1","2"],["3","4"]],"cloze_answer_indices":[0,1]}]`)
	questions, err := ParseQuestions(original)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reparsed, err := ParseQuestions(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !reflect.DeepEqual(questions, reparsed) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", questions, reparsed)
	}
}

func TestNewAnswersMatchesQuestionShapes(t *testing.T) {
	questions := []Question{
		{Type: TypeChoice, Content: "q", Choice: &ChoiceBody{Options: []string{"a"}, Answer: "a"}},
		{Type: TypeCloze, Content: "q", Cloze: &ClozeBody{Template: "(1)(2)", OptionSets: [][]string{{"0"}, {"1"}}, AnswerIndices: []int{0, 0}}},
	}
	answers := NewAnswers(questions)
	if len(answers) != len(questions) {
		t.Fatalf("answer array length %d != question count %d", len(answers), len(questions))
	}
	if answers[0].Selected != Unanswered || answers[0].Answered(questions[0]) {
		t.Fatalf("choice slot should start unanswered: %+v", answers[0])
	}
	if len(answers[1].Blanks) != 2 || answers[1].Answered(questions[1]) {
		t.Fatalf("cloze slot should have one sentinel per blank: %+v", answers[1])
	}

	answers[1].Blanks[0] = 0
	if answers[1].Answered(questions[1]) {
		t.Fatalf("cloze with one empty blank must not count as answered")
	}
	answers[1].Blanks[1] = 0
	if !answers[1].Answered(questions[1]) {
		t.Fatalf("cloze with all blanks filled counts as answered")
	}
}
