package domain

// Action is an organizer command moving a quiz through its lifecycle.
type Action string

const (
	ActionActivate Action = "activate"
	ActionStart    Action = "start"
	ActionFinish   Action = "finish"
)

// Next returns the status an action leads to from s, or ErrInvalidTransition.
// Moves are monotonic: draft → active → in_progress → finished, skipping
// forward is allowed where it makes sense, going back never is.
func (s QuizStatus) Next(a Action) (QuizStatus, error) {
	switch a {
	case ActionActivate:
		if s == StatusDraft {
			return StatusActive, nil
		}
	case ActionStart:
		if s == StatusDraft || s == StatusActive {
			return StatusInProgress, nil
		}
	case ActionFinish:
		if s == StatusActive || s == StatusInProgress {
			return StatusFinished, nil
		}
	}
	return s, ErrInvalidTransition
}
