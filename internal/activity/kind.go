// internal/activity/kind.go
package activity

import "errors"

// Kind is the classification of the activity in the content frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindQuiz
	KindReflection
	KindVideoOrPassive
)

func (k Kind) String() string {
	switch k {
	case KindQuiz:
		return "quiz"
	case KindReflection:
		return "reflection"
	case KindVideoOrPassive:
		return "video_or_passive"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in reports.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

var (
	// ErrUnclassifiedActivity is reported when no probe matched and no
	// generic advance control could be clicked. It never aborts a walk.
	ErrUnclassifiedActivity = errors.New("activity could not be classified")
	// ErrNoOptions is reported for a quiz without selectable options.
	ErrNoOptions = errors.New("quiz has no answer options")
	// ErrSubmitUnavailable is reported when the submit control could not
	// be clicked after answering.
	ErrSubmitUnavailable = errors.New("submit control unavailable")
	// ErrContinueUnavailable is reported when a passive activity offers no
	// continue control. The activity may have advanced on its own.
	ErrContinueUnavailable = errors.New("continue control unavailable")
)

// Outcome is the result of handling one activity. Failures are carried in
// Err and are never fatal to the caller.
type Outcome struct {
	Kind      Kind   `json:"kind"`
	Completed bool   `json:"completed"`
	Fallback  bool   `json:"fallback,omitempty"`
	Question  string `json:"question,omitempty"`
	Err       error  `json:"-"`
}
