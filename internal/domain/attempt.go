package domain

import "time"

// Unanswered is the sentinel for a blank or option index the user has not
// picked yet.
const Unanswered = -1

// Answer is the per-question answer slot. For choice questions Selected holds
// the option index; for cloze questions Blanks holds one token index per
// blank. Unused fields stay at their zero/sentinel values.
type Answer struct {
	Selected int   `json:"selected,omitempty"`
	Blanks   []int `json:"blanks,omitempty"`
}

// NewAnswers builds the answer array for a question list, everything
// unanswered. The returned slice always has the same length as questions.
func NewAnswers(questions []Question) []Answer {
	answers := make([]Answer, len(questions))
	for i, q := range questions {
		answers[i].Selected = Unanswered
		if q.Type == TypeCloze {
			answers[i].Blanks = make([]int, q.Blanks())
			for b := range answers[i].Blanks {
				answers[i].Blanks[b] = Unanswered
			}
		}
	}
	return answers
}

// Answered reports whether the slot counts as answered for its question type:
// a selected option for choice, every blank filled for cloze.
func (a Answer) Answered(q Question) bool {
	if q.Type == TypeCloze {
		if len(a.Blanks) == 0 {
			return false
		}
		for _, idx := range a.Blanks {
			if idx == Unanswered {
				return false
			}
		}
		return true
	}
	return a.Selected != Unanswered
}

// AttemptRecord is the client-local transient record of one run through a
// quiz, as carried by the runtime and serialized toward the backend.
type AttemptRecord struct {
	QuizID      string
	QuizVersion int
	Answers     []Answer
	StartedAt   time.Time
	SubmittedAt time.Time
}
