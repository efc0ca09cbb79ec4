package progress

import (
	"math/rand"
	"testing"
	"time"

	"speakwell/internal/models"
)

func attempt(word string, p, f, a int) models.AttemptScore {
	return models.AttemptScore{Word: word, Pronunciation: p, Fluency: f, Accuracy: a}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		attempts []models.AttemptScore
		want     Summary
	}{
		{
			name: "empty",
			want: Summary{},
		},
		{
			name: "two words",
			attempts: []models.AttemptScore{
				attempt("Sustainability", 80, 70, 90),
				attempt("Resilience", 60, 60, 60),
			},
			want: Summary{Overall: 70, Pronunciation: 70, Fluency: 65, Accuracy: 75, Attempts: 2},
		},
		{
			name:     "rounds half up",
			attempts: []models.AttemptScore{attempt("a", 71, 70, 70), attempt("b", 70, 70, 70)},
			// per-attempt means 70.33 and 70, overall 70.17; pronunciation 70.5
			want: Summary{Overall: 70, Pronunciation: 71, Fluency: 70, Accuracy: 70, Attempts: 2},
		},
		{
			name: "uses unrounded attempt means",
			attempts: []models.AttemptScore{
				attempt("a", 70, 71, 71),
				attempt("b", 70, 71, 71),
				attempt("c", 70, 70, 70),
			},
			// means 70.67, 70.67, 70 average to 70.44
			want: Summary{Overall: 70, Pronunciation: 70, Fluency: 71, Accuracy: 71, Attempts: 3},
		},
		{
			name:     "bounds",
			attempts: []models.AttemptScore{attempt("a", 0, 0, 0), attempt("b", 100, 100, 100)},
			want:     Summary{Overall: 50, Pronunciation: 50, Fluency: 50, Accuracy: 50, Attempts: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.attempts); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	in := []models.AttemptScore{attempt("a", 90, 80, 70), attempt("b", 10, 20, 30)}
	orig := append([]models.AttemptScore(nil), in...)

	first := Summarize(in)
	second := Summarize(in)
	if first != second {
		t.Errorf("Summarize() not deterministic: %+v vs %+v", first, second)
	}
	for i := range in {
		if in[i] != orig[i] {
			t.Errorf("attempt %d mutated: %+v", i, in[i])
		}
	}
}

func TestMonotonicAppend(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var attempts []models.AttemptScore
	var means []float64

	for k := 0; k < 25; k++ {
		a := models.AttemptScore{
			Word:          "w",
			Pronunciation: rng.Intn(101),
			Fluency:       rng.Intn(101),
			Accuracy:      rng.Intn(101),
			Timestamp:     time.Unix(int64(k), 0),
		}
		snapshot := append([]models.AttemptScore(nil), attempts...)
		attempts = append(attempts, a)
		means = append(means, AttemptMean(a))

		for i := range snapshot {
			if attempts[i] != snapshot[i] {
				t.Fatalf("attempt %d changed after append", i)
			}
			if AttemptMean(attempts[i]) != means[i] {
				t.Fatalf("mean of attempt %d changed after append", i)
			}
		}

		s := Summarize(attempts)
		if s.Attempts != k+1 {
			t.Fatalf("Attempts = %d, want %d", s.Attempts, k+1)
		}
		if s.Overall < 0 || s.Overall > 100 {
			t.Fatalf("Overall = %d out of range", s.Overall)
		}
	}
}

func TestWeakestSkill(t *testing.T) {
	tests := []struct {
		s    Summary
		want string
	}{
		{Summary{Pronunciation: 60, Fluency: 70, Accuracy: 80}, SkillPronunciation},
		{Summary{Pronunciation: 80, Fluency: 50, Accuracy: 80}, SkillFluency},
		{Summary{Pronunciation: 80, Fluency: 70, Accuracy: 40}, SkillAccuracy},
		{Summary{Pronunciation: 70, Fluency: 70, Accuracy: 70}, SkillPronunciation},
	}
	for _, tt := range tests {
		if got := tt.s.WeakestSkill(); got != tt.want {
			t.Errorf("WeakestSkill(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	a := Summary{Overall: 80, Pronunciation: 80, Fluency: 80, Accuracy: 80, Attempts: 3}
	b := Summary{Overall: 40, Pronunciation: 40, Fluency: 40, Accuracy: 40, Attempts: 1}

	got := Merge(a, b)
	want := Summary{Overall: 70, Pronunciation: 70, Fluency: 70, Accuracy: 70, Attempts: 4}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
	if got := Merge(); got != (Summary{}) {
		t.Errorf("Merge() of nothing = %+v", got)
	}
}
