package domain

// RoleAdmin unlocks the quiz editor surfaces.
const RoleAdmin = "admin"

// AssignedQuiz is one entry of the quiz list handed out at authentication.
type AssignedQuiz struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	File             string `json:"file"`
	Version          int    `json:"version"`
	TimeLimitMinutes int    `json:"time_limit_minutes,omitempty"`
}

// Session is the logged-in user's state. Created on successful
// authentication, destroyed on explicit logout.
type Session struct {
	Account     string         `json:"account"`
	DisplayName string         `json:"display_name"`
	Role        string         `json:"role"`
	Quizzes     []AssignedQuiz `json:"quizzes"`
}

// IsAdmin reports whether the session may use admin-only surfaces.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// SelectedQuiz is the picker's choice, persisted separately from the session
// so the quiz surface can open without re-prompting selection.
type SelectedQuiz struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	File             string `json:"file"`
	Version          int    `json:"version"`
	TimeLimitMinutes int    `json:"time_limit_minutes,omitempty"`
}
