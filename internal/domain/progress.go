package domain

import "time"

// GraceMargin is added to the computed quiz duration before time runs out.
const GraceMargin = 30 * time.Second

// TimeBudget is the total time a participant has once the quiz started.
func TimeBudget(timeLimitSeconds, questionCount int) time.Duration {
	return time.Duration(timeLimitSeconds*questionCount)*time.Second + GraceMargin
}

// Deadline is the instant the quiz time budget runs out. ok is false when the
// quiz has no start timestamp.
func (q Quiz) Deadline(questionCount int) (deadline time.Time, ok bool) {
	if q.StartedAt == nil {
		return time.Time{}, false
	}
	return q.StartedAt.Add(TimeBudget(q.TimeLimit, questionCount)), true
}

// TimeExpired reports whether the time budget was exceeded at now.
func (q Quiz) TimeExpired(now time.Time, questionCount int) bool {
	if q.Status != StatusInProgress {
		return false
	}
	deadline, ok := q.Deadline(questionCount)
	if !ok {
		return false
	}
	return now.After(deadline)
}

// RemainingSeconds is the budget left at now in whole seconds, floored at zero.
// A quiz that has not started reports its full budget.
func (q Quiz) RemainingSeconds(now time.Time, questionCount int) int {
	total := int(TimeBudget(q.TimeLimit, questionCount) / time.Second)
	if q.StartedAt == nil {
		return total
	}
	elapsed := int(now.Sub(*q.StartedAt) / time.Second)
	if rem := total - elapsed; rem > 0 {
		return rem
	}
	return 0
}

// NextQuestionIndex is the 0-based position of the first unanswered question in
// ascending order, or len(questions) when every question was answered.
func NextQuestionIndex(questions []Question, answered map[string]bool) int {
	for i, q := range questions {
		if !answered[q.ID] {
			return i
		}
	}
	return len(questions)
}

// Progress is the resume view of one participant.
type Progress struct {
	QuizID              string   `json:"quiz_id"`
	ParticipantID       string   `json:"participant_id"`
	NextQuestionIndex   int      `json:"nextQuestionIndex"`
	TotalQuestions      int      `json:"totalQuestions"`
	AnsweredQuestionIDs []string `json:"answeredQuestionIds"`
	TotalScore          int      `json:"totalScore"`
	RemainingSeconds    int      `json:"remainingSeconds"`
	IsCompleted         bool     `json:"isCompleted"`
}
