// Package progress reduces scored attempts into summary statistics.
package progress

import (
	"math"

	"github.com/samber/lo"

	"speakwell/internal/models"
)

// Summary is the aggregate of a sequence of attempts
type Summary struct {
	Overall       int `json:"overallScore"`
	Pronunciation int `json:"pronunciation"`
	Fluency       int `json:"fluency"`
	Accuracy      int `json:"accuracy"`
	Attempts      int `json:"attempts"`
}

// AttemptMean is the unrounded mean of one attempt's three sub-scores
func AttemptMean(a models.AttemptScore) float64 {
	return float64(a.Pronunciation+a.Fluency+a.Accuracy) / 3
}

// Summarize computes the overall score as the rounded mean of per-attempt
// means, and each skill as the rounded mean of that sub-score. An empty input
// yields the zero Summary.
func Summarize(attempts []models.AttemptScore) Summary {
	n := len(attempts)
	if n == 0 {
		return Summary{}
	}

	mean := func(f func(models.AttemptScore) float64) int {
		return int(math.Round(lo.SumBy(attempts, f) / float64(n)))
	}

	return Summary{
		Overall:       mean(AttemptMean),
		Pronunciation: mean(func(a models.AttemptScore) float64 { return float64(a.Pronunciation) }),
		Fluency:       mean(func(a models.AttemptScore) float64 { return float64(a.Fluency) }),
		Accuracy:      mean(func(a models.AttemptScore) float64 { return float64(a.Accuracy) }),
		Attempts:      n,
	}
}

// Skill names used by the roadmap
const (
	SkillPronunciation = "pronunciation"
	SkillFluency       = "fluency"
	SkillAccuracy      = "accuracy"
)

// WeakestSkill returns the lowest scoring skill. Ties resolve in the order
// pronunciation, fluency, accuracy.
func (s Summary) WeakestSkill() string {
	skill, score := SkillPronunciation, s.Pronunciation
	if s.Fluency < score {
		skill, score = SkillFluency, s.Fluency
	}
	if s.Accuracy < score {
		skill = SkillAccuracy
	}
	return skill
}

// Merge combines summaries of disjoint attempt sets, weighting by attempt
// count. Rounding happens once per summary, so the result can differ by one
// point from summarizing the concatenated attempts.
func Merge(summaries ...Summary) Summary {
	total := lo.SumBy(summaries, func(s Summary) int { return s.Attempts })
	if total == 0 {
		return Summary{}
	}

	weighted := func(f func(Summary) int) int {
		sum := lo.SumBy(summaries, func(s Summary) float64 { return float64(f(s) * s.Attempts) })
		return int(math.Round(sum / float64(total)))
	}

	return Summary{
		Overall:       weighted(func(s Summary) int { return s.Overall }),
		Pronunciation: weighted(func(s Summary) int { return s.Pronunciation }),
		Fluency:       weighted(func(s Summary) int { return s.Fluency }),
		Accuracy:      weighted(func(s Summary) int { return s.Accuracy }),
		Attempts:      total,
	}
}
