package assessment

import (
	"fmt"
	"math"
)

// EstimateAbility returns the skill level for a finished history: the mean
// difficulty of the correctly answered items, or finalDifficulty when no
// answer was correct. Either way the value is rounded to one decimal.
func EstimateAbility(responses []Response, finalDifficulty float64) float64 {
	var sum float64
	var n int
	for _, r := range responses {
		if r.IsCorrect {
			sum += r.DifficultyAtTime
			n++
		}
	}
	if n == 0 {
		return RoundTenth(finalDifficulty)
	}
	return RoundTenth(sum / float64(n))
}

// GradeLabel renders a skill level as "Grade N" with N = floor(level).
// Negative levels are not clamped and yield labels such as "Grade -1".
func GradeLabel(skillLevel float64) string {
	return fmt.Sprintf("Grade %d", int(math.Floor(skillLevel)))
}
