package domain

import "math"

// Score returns the points for an answer. A correct answer given instantly is
// worth basePoints, one given at the time limit half of it, and slower answers
// keep decaying down to zero. A non-positive limit scores nothing; callers
// validate limits before they reach this point.
func Score(correct bool, basePoints int, timeTakenMs int64, timeLimitSeconds int) int {
	if !correct || timeLimitSeconds <= 0 {
		return 0
	}
	limitMs := float64(timeLimitSeconds) * 1000
	factor := math.Max(0, 1-(float64(timeTakenMs)/limitMs)*0.5)
	return int(math.Round(float64(basePoints) * factor))
}
