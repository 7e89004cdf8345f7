package assessment

import "math"

// Default difficulty scale: grade levels 0-12 moved in half-grade steps.
const (
	DefaultStep          = 0.5
	DefaultMinDifficulty = 0.0
	DefaultMaxDifficulty = 12.0
)

// Scale bounds the difficulty walk.
type Scale struct {
	Step float64 `validate:"gt=0"`
	Min  float64 `validate:"gte=0"`
	Max  float64 `validate:"gtfield=Min"`
}

// DefaultScale returns the grade 0-12 scale with a 0.5 step.
func DefaultScale() Scale {
	return Scale{Step: DefaultStep, Min: DefaultMinDifficulty, Max: DefaultMaxDifficulty}
}

// Contains reports whether d lies within [Min, Max].
func (s Scale) Contains(d float64) bool {
	return d >= s.Min && d <= s.Max
}

// Next applies NextDifficulty with this scale's parameters.
func (s Scale) Next(current float64, correct bool) float64 {
	return NextDifficulty(current, correct, s.Step, s.Min, s.Max)
}

// NextDifficulty moves current up by step after a correct answer and down
// by step after an incorrect one, clamped to [lo, hi]. The result is not
// rounded.
func NextDifficulty(current float64, correct bool, step, lo, hi float64) float64 {
	if correct {
		return math.Min(hi, current+step)
	}
	return math.Max(lo, current-step)
}

// RoundTenth rounds to one decimal place, halves away from zero.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
