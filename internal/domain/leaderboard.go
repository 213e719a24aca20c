package domain

import (
	"sort"
	"time"
)

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Position       int    `json:"position"`
	ParticipantID  string `json:"participant_id"`
	UserID         string `json:"user_id,omitempty"`
	Name           string `json:"user_name"`
	TotalScore     int    `json:"total_score"`
	TotalTimeMs    int64  `json:"total_time_ms"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalAnswered  int    `json:"total_answered"`
	TotalQuestions int    `json:"total_questions"`
	Completed      bool   `json:"completed"`
}

// Leaderboard captures the ordered scoreboard for a quiz.
type Leaderboard struct {
	QuizID    string             `json:"quiz_id"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// RankLeaderboard orders entries by score (desc), then total time (asc), then
// name and participant id, and numbers them from 1.
func RankLeaderboard(entries []LeaderboardEntry) []LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.TotalTimeMs != b.TotalTimeMs {
			return a.TotalTimeMs < b.TotalTimeMs
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ParticipantID < b.ParticipantID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
