package assessment

import (
	"math"
	"slices"
)

// Classification thresholds on a domain's correct/total ratio.
const (
	StrengthThreshold = 0.80
	WeaknessThreshold = 0.60
)

// AggregateDomains groups responses by domain and counts correct answers.
func AggregateDomains(responses []Response) map[string]DomainStats {
	perf := make(map[string]DomainStats)
	for _, r := range responses {
		ds := perf[r.Domain]
		ds.Total++
		if r.IsCorrect {
			ds.Correct++
		}
		perf[r.Domain] = ds
	}
	return perf
}

// ClassifyDomains splits domains into strengths (ratio >= 0.80) and
// weaknesses (ratio < 0.60). Domains in between are in neither list.
// Both lists are sorted.
func ClassifyDomains(perf map[string]DomainStats) (strengths, weaknesses []string) {
	strengths = []string{}
	weaknesses = []string{}
	for domain, ds := range perf {
		if ds.Total == 0 {
			continue
		}
		// Compare on integers so 4/5 lands exactly on the 80% boundary.
		switch {
		case ds.Correct*100 >= ds.Total*int(StrengthThreshold*100):
			strengths = append(strengths, domain)
		case ds.Correct*100 < ds.Total*int(WeaknessThreshold*100):
			weaknesses = append(weaknesses, domain)
		}
	}
	slices.Sort(strengths)
	slices.Sort(weaknesses)
	return strengths, weaknesses
}

// ScorePercentage returns round(100*correct/total), halves rounded up.
func ScorePercentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Floor(100*float64(correct)/float64(total) + 0.5)
}

// BuildResult derives the final report from a complete response history.
func BuildResult(responses []Response, finalDifficulty float64) *Result {
	correct := 0
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}

	perf := AggregateDomains(responses)
	strengths, weaknesses := ClassifyDomains(perf)
	level := EstimateAbility(responses, finalDifficulty)

	return &Result{
		SkillLevel:        level,
		GradeLevelLabel:   GradeLabel(level),
		ScorePercentage:   ScorePercentage(correct, len(responses)),
		CorrectCount:      correct,
		TotalCount:        len(responses),
		Strengths:         strengths,
		Weaknesses:        weaknesses,
		DomainPerformance: perf,
	}
}
