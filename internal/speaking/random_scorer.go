package speaking

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// RandomScorer produces plausible scores between 70 and 99 without analysing
// the audio. It backs local development and demos.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer creates a RandomScorer. A zero seed uses the clock.
func NewRandomScorer(seed int64) *RandomScorer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomScorer{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomScorer) Score(ctx context.Context, _ Capture, target string) (Score, error) {
	if err := ctx.Err(); err != nil {
		return Score{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pick := func(a, b string) string {
		if s.rng.Intn(2) == 0 {
			return a
		}
		return b
	}

	return Score{
		Pronunciation: 70 + s.rng.Intn(30),
		Fluency:       70 + s.rng.Intn(30),
		Accuracy:      70 + s.rng.Intn(30),
		Feedback: fmt.Sprintf("You pronounced %q %s. Try %s. Your fluency is %s, keep practicing!",
			target,
			pick("well", "with some minor errors"),
			pick("emphasizing the second syllable more", "shortening the vowel sounds"),
			pick("good", "improving"),
		),
	}, nil
}
