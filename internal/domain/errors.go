package domain

import "errors"

var (
	// ErrUnauthenticated is returned when no session is stored for a client;
	// callers must stop rendering and send the client back to the login entry.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrBackendUnavailable normalizes network failures and non-JSON replies
	// from the scoring backend; callers treat it like an explicit ok:false.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrQuizNotFound indicates the quiz content file could not be located.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrContentInvalid indicates quiz content that is not valid JSON or does
	// not match the question shape.
	ErrContentInvalid = errors.New("invalid quiz content")
	// ErrNoQuizSelected is returned when the quiz surface opens without a
	// selected-quiz pointer.
	ErrNoQuizSelected = errors.New("no quiz selected")
	// ErrNoAttempt is returned for attempt operations without a loaded quiz.
	ErrNoAttempt = errors.New("no active attempt")
	// ErrAttemptLocked rejects answer interactions after the timer expired.
	ErrAttemptLocked = errors.New("attempt locked")
	// ErrAdminOnly guards the editor surfaces.
	ErrAdminOnly = errors.New("admin role required")
	// ErrLoginCanceled reports an authentication request superseded by a newer
	// one. Cancellation is silent; it never reaches the user as an error.
	ErrLoginCanceled = errors.New("login canceled")
)
